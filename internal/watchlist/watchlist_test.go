package watchlist

import (
	"sort"
	"testing"
)

func TestSet_Toggle(t *testing.T) {
	changes := 0
	s := NewSet(nil, func() { changes++ })

	if got := s.Toggle("m1"); !got {
		t.Error("first Toggle() = false, want true")
	}
	if !s.Contains("m1") {
		t.Error("Contains() = false after add")
	}

	if got := s.Toggle("m1"); got {
		t.Error("second Toggle() = true, want false")
	}
	if s.Contains("m1") {
		t.Error("Contains() = true after remove")
	}

	if changes != 2 {
		t.Errorf("onChange fired %d times, want 2", changes)
	}
}

func TestSet_List(t *testing.T) {
	s := NewSet([]string{"m2", "m1"}, nil)

	got := s.List()
	sort.Strings(got)
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Errorf("List() = %v, want [m1 m2]", got)
	}
}

func TestSet_Restore(t *testing.T) {
	s := NewSet([]string{"old"}, nil)
	s.Restore([]string{"m1", "m3"})

	if s.Contains("old") {
		t.Error("Contains(old) = true after Restore")
	}
	if !s.Contains("m1") || !s.Contains("m3") {
		t.Error("restored members missing")
	}
}
