package tape

// State is the lifecycle position of a Store or Replayer.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePumping
	StateDraining
	StateStopped
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StatePumping:
		return "Pumping"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	case StateLoadFailed:
		return "LoadFailed"
	default:
		return "Unknown"
	}
}
