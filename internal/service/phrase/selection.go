package phrase

import (
	"encoding/json"
	"sort"
)

// SelectionSet holds the token indices covered by some phrase, including the
// whitespace tokens inside merged spans.
type SelectionSet struct {
	indices map[int]struct{}
}

func NewSelectionSet(indices ...int) *SelectionSet {
	s := &SelectionSet{indices: make(map[int]struct{}, len(indices))}
	for _, i := range indices {
		s.indices[i] = struct{}{}
	}
	return s
}

func (s *SelectionSet) Has(index int) bool {
	if s == nil {
		return false
	}
	_, ok := s.indices[index]
	return ok
}

func (s *SelectionSet) Add(index int) {
	s.indices[index] = struct{}{}
}

// RemoveRange drops every index in [start, stop].
func (s *SelectionSet) RemoveRange(start, stop int) {
	for i := start; i <= stop; i++ {
		delete(s.indices, i)
	}
}

func (s *SelectionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.indices)
}

// Clone returns an independent copy.
func (s *SelectionSet) Clone() *SelectionSet {
	c := &SelectionSet{indices: make(map[int]struct{}, s.Len())}
	if s != nil {
		for i := range s.indices {
			c.indices[i] = struct{}{}
		}
	}
	return c
}

// Indices returns the selected indices in ascending order.
func (s *SelectionSet) Indices() []int {
	out := make([]int, 0, s.Len())
	if s != nil {
		for i := range s.indices {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (s *SelectionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Indices())
}
