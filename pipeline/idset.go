package pipeline

import "slices"

// EntityID identifies a catalog asset. Valid IDs are positive.
type EntityID int64

// IDSet is a set of EntityIDs. Insertion order carries no meaning; use
// Sorted for a deterministic view.
type IDSet map[EntityID]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...EntityID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was not already present.
func (s IDSet) Add(id EntityID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports whether id is in the set.
func (s IDSet) Has(id EntityID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of IDs.
func (s IDSet) Len() int { return len(s) }

// Sorted returns the IDs in ascending order.
func (s IDSet) Sorted() []EntityID {
	out := make([]EntityID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
