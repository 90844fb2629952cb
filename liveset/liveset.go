// Package liveset records which ring members a replica has failed to reach
// (no ACK within the ring-forward deadline) since its last Reset. The
// control-channel forward uses the count of marked members to give up once
// every other member is marked; it does not skip marked members.
package liveset

import mapset "github.com/deckarep/golang-set"

// Set is a concurrency-safe set of node ids, backed by golang-set.
type Set struct {
	unreachable mapset.Set
}

// New returns an empty Set.
func New() *Set {
	return &Set{unreachable: mapset.NewSet()}
}

// MarkUnreachable records that id did not ACK within the ring-forward
// deadline during the current sweep.
func (s *Set) MarkUnreachable(id uint64) {
	s.unreachable.Add(id)
}

// IsUnreachable reports whether id was marked unreachable since the last
// Reset.
func (s *Set) IsUnreachable(id uint64) bool {
	return s.unreachable.Contains(id)
}

// Count returns the number of ids currently marked unreachable.
func (s *Set) Count() int {
	return s.unreachable.Cardinality()
}

// Reset clears the set, e.g. at the start of a fresh election round.
func (s *Set) Reset() {
	s.unreachable.Clear()
}
