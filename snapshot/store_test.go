package snapshot

import (
	"errors"
	"testing"

	"github.com/jonwraymond/reqcache/method"
)

func newTestStore(t *testing.T, limit int) *Store {
	t.Helper()
	s, err := NewStore(limit)
	if err != nil {
		t.Fatalf("NewStore(%d) failed: %v", limit, err)
	}
	return s
}

func getMethod(t *testing.T, owner, name string, a int) *method.Method {
	t.Helper()
	m, err := method.New(method.Get, "/unit-test", nil, method.Config{
		Name:   name,
		Params: map[string]any{"a": a},
	}, method.WithOwner(owner))
	if err != nil {
		t.Fatalf("method.New failed: %v", err)
	}
	return m
}

func save(s *Store, m *method.Method) int {
	return s.Save(m.OwnerID, m.Key(), m)
}

func TestNewStore_NegativeLimit(t *testing.T) {
	if _, err := NewStore(-1); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("NewStore(-1) = %v, want ErrInvalidLimit", err)
	}
}

func TestStore_SaveIgnoresUnnamed(t *testing.T) {
	s := newTestStore(t, DefaultLimit)
	if n := s.Save("1", "k", nil); n != 0 {
		t.Errorf("Save(nil) evicted %d", n)
	}
	save(s, getMethod(t, "1", "", 1))
	if s.Len() != 0 {
		t.Errorf("unnamed method was stored, Len() = %d", s.Len())
	}
}

func TestStore_SlidingWindow(t *testing.T) {
	s := newTestStore(t, 2)
	m1 := getMethod(t, "1", "x", 1)
	m2 := getMethod(t, "1", "x", 2)
	m3 := getMethod(t, "1", "x", 3)

	save(s, m1)
	save(s, m2)
	if evicted := save(s, m3); evicted != 1 {
		t.Fatalf("third save evicted %d, want 1", evicted)
	}

	got := s.Match(ByName("x"))
	if len(got) != 2 || got[0] != m2 || got[1] != m3 {
		t.Errorf("window = %v, want [m2 m3]", got)
	}
}

func TestStore_LimitOne(t *testing.T) {
	s := newTestStore(t, 1)
	a := getMethod(t, "1", "x", 1)
	b := getMethod(t, "1", "x", 2)
	save(s, a)
	save(s, b)

	got := s.Match(ByName("x"))
	if len(got) != 1 || got[0] != b {
		t.Errorf("Match = %v, want only the newest", got)
	}
}

func TestStore_LimitZeroRetainsNothing(t *testing.T) {
	s := newTestStore(t, 0)
	if evicted := save(s, getMethod(t, "1", "x", 1)); evicted != 1 {
		t.Errorf("save with limit 0 evicted %d, want 1", evicted)
	}
	save(s, getMethod(t, "1", "y", 2))

	if s.Len() != 0 || len(s.Match(ByName("x"))) != 0 {
		t.Error("limit 0 must retain nothing")
	}
}

func TestStore_LimitIsPerOwnerAndName(t *testing.T) {
	s := newTestStore(t, 1)
	save(s, getMethod(t, "1", "x", 1))
	save(s, getMethod(t, "1", "y", 1))
	save(s, getMethod(t, "2", "x", 1))

	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestStore_ResaveMovesToEnd(t *testing.T) {
	s := newTestStore(t, DefaultLimit)
	m1 := getMethod(t, "1", "x", 1)
	m2 := getMethod(t, "1", "x", 2)
	save(s, m1)
	save(s, m2)
	save(s, m1)

	got := s.Match(ByName("x"))
	if len(got) != 2 || got[0] != m2 || got[1] != m1 {
		t.Errorf("re-save should move to the end, got %v", got)
	}
}

func TestStore_ResavedEntryEvictedLast(t *testing.T) {
	s := newTestStore(t, 2)
	m1 := getMethod(t, "1", "x", 1)
	m2 := getMethod(t, "1", "x", 2)
	m3 := getMethod(t, "1", "x", 3)
	save(s, m1)
	save(s, m2)
	save(s, m1)

	if evicted := save(s, m3); evicted != 1 {
		t.Fatalf("Save evicted %d, want 1", evicted)
	}
	got := s.Match(ByName("x"))
	if len(got) != 2 || got[0] != m1 || got[1] != m3 {
		t.Errorf("expected m2 evicted before the re-saved m1, got %v", got)
	}
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore(t, DefaultLimit)
	m := getMethod(t, "1", "x", 1)
	save(s, m)

	if !s.Remove("1", m.Key()) {
		t.Fatal("Remove should report the existing entry")
	}
	if s.Remove("1", m.Key()) {
		t.Error("second Remove should report false")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Remove", s.Len())
	}
}

func TestStore_AllRegistrationOrder(t *testing.T) {
	s := newTestStore(t, DefaultLimit)
	ms := []*method.Method{
		getMethod(t, "1", "x", 1),
		getMethod(t, "2", "y", 1),
		getMethod(t, "1", "y", 2),
		getMethod(t, "2", "x", 3),
	}
	for _, m := range ms {
		save(s, m)
	}

	all := s.All()
	if len(all) != len(ms) {
		t.Fatalf("All() returned %d entries, want %d", len(all), len(ms))
	}
	for i, e := range all {
		if e.Method != ms[i] {
			t.Errorf("All()[%d] = %v, want %v", i, e.Method, ms[i])
		}
	}
}

func TestStore_SetLimit(t *testing.T) {
	s := newTestStore(t, DefaultLimit)
	for i := 0; i < 5; i++ {
		save(s, getMethod(t, "1", "x", i))
	}
	newest := getMethod(t, "1", "x", 5)
	save(s, newest)

	evicted, err := s.SetLimit(1)
	if err != nil {
		t.Fatalf("SetLimit failed: %v", err)
	}
	if evicted != 5 {
		t.Errorf("SetLimit evicted %d, want 5", evicted)
	}
	if s.Limit() != 1 {
		t.Errorf("Limit() = %d, want 1", s.Limit())
	}
	if got, ok := s.MatchOne(ByName("x")); !ok || got != newest {
		t.Errorf("the newest entry should survive trimming, got %v", got)
	}

	if _, err := s.SetLimit(-3); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("SetLimit(-3) = %v, want ErrInvalidLimit", err)
	}
	if s.Limit() != 1 {
		t.Error("a rejected limit must not change the store")
	}
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore(t, 10)
	save(s, getMethod(t, "1", "x", 1))
	s.Reset()
	if s.Len() != 0 || s.Limit() != 10 {
		t.Errorf("after Reset: Len()=%d Limit()=%d", s.Len(), s.Limit())
	}
}
