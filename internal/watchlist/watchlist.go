// Package watchlist implements the user-local bookmark set of market IDs.
// Membership is a pure toggle with no business-rule coupling to the ledger;
// the set is persisted under its own snapshot key.
package watchlist

import "sync"

// Set is a concurrency-safe membership set over market IDs.
type Set struct {
	mu       sync.Mutex
	ids      map[string]bool
	onChange func()
}

// NewSet creates a Set containing the given IDs. onChange runs after every
// mutation; pass nil to disable.
func NewSet(initial []string, onChange func()) *Set {
	ids := make(map[string]bool, len(initial))
	for _, id := range initial {
		ids[id] = true
	}
	return &Set{ids: ids, onChange: onChange}
}

// Toggle flips membership for the market ID and returns the new state.
func (s *Set) Toggle(marketID string) bool {
	s.mu.Lock()
	var member bool
	if s.ids[marketID] {
		delete(s.ids, marketID)
	} else {
		s.ids[marketID] = true
		member = true
	}
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
	return member
}

// Contains reports membership.
func (s *Set) Contains(marketID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[marketID]
}

// List returns the current members in unspecified order.
func (s *Set) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Restore replaces the set contents.
func (s *Set) Restore(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.ids[id] = true
	}
}
