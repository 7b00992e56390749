// Package collision maps service/ticker names to tape record indexes.
//
// Lookups go through a 64-bit hash of the name pair. Entries sharing a hash
// are kept side by side and told apart by comparing names, so a hash
// collision costs a string compare rather than a wrong record.
package collision

import (
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/hash"
)

type entry struct {
	service string
	ticker  string
	dbIdx   int
}

// Registry tracks ticker records by name.
type Registry struct {
	byKey        map[uint64][]entry
	count        int
	hasCollision bool
}

// NewRegistry creates an empty registry sized for hint records.
func NewRegistry(hint int) *Registry {
	return &Registry{byKey: make(map[uint64][]entry, hint)}
}

// Add registers dbIdx under service/ticker.
func (r *Registry) Add(service, ticker string, dbIdx int) error {
	if service == "" || ticker == "" {
		return errs.ErrInvalidTickerKey
	}

	key := hash.TickerKey(service, ticker)
	bucket := r.byKey[key]
	for _, e := range bucket {
		if e.service == service && e.ticker == ticker {
			return errs.ErrDuplicateTicker
		}
	}
	if len(bucket) > 0 {
		r.hasCollision = true
	}

	r.byKey[key] = append(bucket, entry{service: service, ticker: ticker, dbIdx: dbIdx})
	r.count++

	return nil
}

// Lookup returns the record index registered for service/ticker.
func (r *Registry) Lookup(service, ticker string) (int, bool) {
	for _, e := range r.byKey[hash.TickerKey(service, ticker)] {
		if e.service == service && e.ticker == ticker {
			return e.dbIdx, true
		}
	}

	return -1, false
}

// HasCollision reports whether two distinct names ever shared a hash.
func (r *Registry) HasCollision() bool {
	return r.hasCollision
}

// Count returns the number of registered tickers.
func (r *Registry) Count() int {
	return r.count
}

// Reset clears the registry, keeping map capacity.
func (r *Registry) Reset() {
	clear(r.byKey)
	r.count = 0
	r.hasCollision = false
}

// addKeyed registers an entry under an explicit key. Tests use it to force
// collisions.
func (r *Registry) addKeyed(key uint64, service, ticker string, dbIdx int) {
	bucket := r.byKey[key]
	if len(bucket) > 0 {
		r.hasCollision = true
	}
	r.byKey[key] = append(bucket, entry{service: service, ticker: ticker, dbIdx: dbIdx})
	r.count++
}
