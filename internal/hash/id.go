// Package hash computes the lookup keys used for ticker records.
package hash

import "github.com/cespare/xxhash/v2"

// TickerKey returns the xxHash64 of service and ticker joined by a NUL
// byte, which keeps ("AB", "C") and ("A", "BC") apart.
func TickerKey(service, ticker string) uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString(service)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(ticker)

	return d.Sum64()
}
