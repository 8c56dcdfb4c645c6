package snapshot

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/jonwraymond/reqcache/method"
)

// DefaultLimit is the number of snapshots kept per owner and name.
const DefaultLimit = 1000

// Entry is one registered snapshot.
type Entry struct {
	Owner  string
	Key    string
	Name   string
	Method *method.Method

	seq uint64
}

type group struct {
	owner string
	name  string
}

type entryID struct {
	owner string
	key   string
}

// Store is a concurrency-safe snapshot registry.
type Store struct {
	mu     sync.RWMutex
	limit  int
	seq    uint64
	groups map[group][]*Entry
	byKey  map[entryID]*Entry
}

// NewStore creates a store keeping at most limit entries per owner and name.
func NewStore(limit int) (*Store, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return &Store{
		limit:  limit,
		groups: make(map[group][]*Entry),
		byKey:  make(map[entryID]*Entry),
	}, nil
}

// Save registers m under (owner, key). Methods without a name are ignored.
// Saving an existing (owner, key) replaces the entry and moves it to the
// newest position rather than keeping its original slot, so a method that is
// sent again is the last one evicted. Save returns how many entries were
// evicted, including m itself when the limit is zero.
func (s *Store) Save(owner, key string, m *method.Method) int {
	if m == nil || m.Name() == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(entryID{owner, key})

	s.seq++
	e := &Entry{Owner: owner, Key: key, Name: m.Name(), Method: m, seq: s.seq}
	g := group{owner, e.Name}
	s.groups[g] = append(s.groups[g], e)
	s.byKey[entryID{owner, key}] = e

	return s.trimLocked(g)
}

// trimLocked evicts the oldest entries of g beyond the limit.
func (s *Store) trimLocked(g group) int {
	seq := s.groups[g]
	over := len(seq) - s.limit
	if over <= 0 {
		return 0
	}
	for _, e := range seq[:over] {
		delete(s.byKey, entryID{e.Owner, e.Key})
	}
	if rest := seq[over:]; len(rest) > 0 {
		s.groups[g] = slices.Clone(rest)
	} else {
		delete(s.groups, g)
	}
	return over
}

// Remove drops the entry for (owner, key). It reports whether one existed.
func (s *Store) Remove(owner, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(entryID{owner, key})
}

func (s *Store) removeLocked(id entryID) bool {
	e, ok := s.byKey[id]
	if !ok {
		return false
	}
	delete(s.byKey, id)

	g := group{e.Owner, e.Name}
	seq := slices.DeleteFunc(s.groups[g], func(x *Entry) bool { return x == e })
	if len(seq) == 0 {
		delete(s.groups, g)
	} else {
		s.groups[g] = seq
	}
	return true
}

// All returns every entry in registration order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allLocked()
}

func (s *Store) allLocked() []Entry {
	out := make([]Entry, 0, len(s.byKey))
	for _, e := range s.byKey {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Limit returns the per owner and name cap.
func (s *Store) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limit
}

// SetLimit changes the cap. Lowering it trims every sequence from its oldest
// end immediately. It returns the number of evicted entries.
func (s *Store) SetLimit(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.limit = n
	evicted := 0
	for g := range s.groups {
		evicted += s.trimLocked(g)
	}
	return evicted, nil
}

// Reset drops every entry. The limit is kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.groups = make(map[group][]*Entry)
	s.byKey = make(map[entryID]*Entry)
	s.mu.Unlock()
}
