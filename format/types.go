package format

type (
	FieldType uint8
	MsgType   uint8
	DataType  uint8
)

const (
	FieldUndef      FieldType = 0x0  // FieldUndef represents an undefined field.
	FieldString     FieldType = 0x1  // FieldString represents a length-prefixed string.
	FieldInt32      FieldType = 0x2  // FieldInt32 represents a 32-bit integer.
	FieldDouble     FieldType = 0x3  // FieldDouble represents a double with 10 implied decimals.
	FieldDate       FieldType = 0x4  // FieldDate represents a YYYYMMDD date scaled by 10^6.
	FieldTime       FieldType = 0x5  // FieldTime represents an HHMMSS.mmm time of day.
	FieldTimeSec    FieldType = 0x6  // FieldTimeSec represents a time of day rendered with seconds.
	FieldFloat      FieldType = 0x7  // FieldFloat represents a float with 4 implied decimals.
	FieldInt8       FieldType = 0x8  // FieldInt8 represents an 8-bit integer.
	FieldInt16      FieldType = 0x9  // FieldInt16 represents a 16-bit integer.
	FieldInt64      FieldType = 0xa  // FieldInt64 represents a 64-bit integer.
	FieldReal       FieldType = 0xb  // FieldReal represents a mantissa plus decimal hint.
	FieldBytestream FieldType = 0xc  // FieldBytestream represents an opaque byte sequence.
	FieldUnixTime   FieldType = 0xd  // FieldUnixTime represents a unix timestamp.
	FieldVector     FieldType = 0xe  // FieldVector represents a scaled array of doubles.
	fieldTypeMax    FieldType = 0xe
)

const (
	MsgUndef      MsgType = 0
	MsgImage      MsgType = 1
	MsgUpdate     MsgType = 2
	MsgStale      MsgType = 3
	MsgRecovering MsgType = 4
	MsgDead       MsgType = 5
	MsgMount      MsgType = 6
	MsgPing       MsgType = 7
	MsgCtl        MsgType = 8
	MsgOpen       MsgType = 9
	MsgClose      MsgType = 10
	MsgQuery      MsgType = 11
	MsgInsert     MsgType = 12
	MsgInsAck     MsgType = 13
	MsgGblStatus  MsgType = 14
	MsgHistory    MsgType = 15
	MsgDBQuery    MsgType = 16
	MsgDBTable    MsgType = 17
	msgTypeMax    MsgType = 17
)

const (
	DataUndef          DataType = 0
	DataControl        DataType = 'c'
	DataFieldList      DataType = 'f'
	DataBookOrder      DataType = 'o'
	DataBookPriceLevel DataType = 'p'
	DataBlobList       DataType = 'l'
	DataBlobTable      DataType = 't'
	DataFixedMsg       DataType = 'x'
)

// IsValid reports whether the field type is inside the closed enum range.
func (t FieldType) IsValid() bool {
	return t <= fieldTypeMax
}

// IsNumeric reports whether the field type carries a sign flag on the wire.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldInt32, FieldInt64, FieldDouble, FieldFloat, FieldDate, FieldUnixTime:
		return true
	default:
		return false
	}
}

func (t FieldType) String() string {
	switch t {
	case FieldUndef:
		return "Undef"
	case FieldString:
		return "String"
	case FieldInt32:
		return "Int32"
	case FieldDouble:
		return "Double"
	case FieldDate:
		return "Date"
	case FieldTime:
		return "Time"
	case FieldTimeSec:
		return "TimeSec"
	case FieldFloat:
		return "Float"
	case FieldInt8:
		return "Int8"
	case FieldInt16:
		return "Int16"
	case FieldInt64:
		return "Int64"
	case FieldReal:
		return "Real"
	case FieldBytestream:
		return "Bytestream"
	case FieldUnixTime:
		return "UnixTime"
	case FieldVector:
		return "Vector"
	default:
		return "Unknown"
	}
}

// IsValid reports whether the message type is inside the enum range.
func (m MsgType) IsValid() bool {
	return m <= msgTypeMax
}

func (m MsgType) String() string {
	switch m {
	case MsgUndef:
		return "Undef"
	case MsgImage:
		return "Image"
	case MsgUpdate:
		return "Update"
	case MsgStale:
		return "Stale"
	case MsgRecovering:
		return "Recovering"
	case MsgDead:
		return "Dead"
	case MsgMount:
		return "Mount"
	case MsgPing:
		return "Ping"
	case MsgCtl:
		return "Ctl"
	case MsgOpen:
		return "Open"
	case MsgClose:
		return "Close"
	case MsgQuery:
		return "Query"
	case MsgInsert:
		return "Insert"
	case MsgInsAck:
		return "InsAck"
	case MsgGblStatus:
		return "GblStatus"
	case MsgHistory:
		return "History"
	case MsgDBQuery:
		return "DBQuery"
	case MsgDBTable:
		return "DBTable"
	default:
		return "Unknown"
	}
}

func (d DataType) String() string {
	switch d {
	case DataUndef:
		return "Undef"
	case DataControl:
		return "Control"
	case DataFieldList:
		return "FieldList"
	case DataBookOrder:
		return "BookOrder"
	case DataBookPriceLevel:
		return "BookPriceLevel"
	case DataBlobList:
		return "BlobList"
	case DataBlobTable:
		return "BlobTable"
	case DataFixedMsg:
		return "FixedMsg"
	default:
		return "Unknown"
	}
}
