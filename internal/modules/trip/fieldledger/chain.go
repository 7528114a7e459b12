// Package fieldledger resolves per-field provenance and values of a trip session
// across the structured ledger, legacy activity log payloads and the session row.
package fieldledger

import "github.com/yungbote/tripseal-backend/internal/domain/trip"

// Source is one tier of a resolution chain.
type Source[T any] struct {
	Name   string
	Lookup func(f trip.FieldSpec) (T, bool)
}

// Chain tries each source in order and returns the first hit.
type Chain[T any] []Source[T]

func (c Chain[T]) Resolve(f trip.FieldSpec) (T, string, bool) {
	for _, src := range c {
		if src.Lookup == nil {
			continue
		}
		if v, ok := src.Lookup(f); ok {
			return v, src.Name, true
		}
	}
	var zero T
	return zero, "", false
}
