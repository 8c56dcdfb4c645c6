package snapshot

import "github.com/jonwraymond/reqcache/method"

// Match returns every snapshot selected by q, in registration order.
func (s *Store) Match(q Query) []*method.Method {
	s.mu.RLock()
	entries := s.allLocked()
	s.mu.RUnlock()

	var candidates []*method.Method
	for _, e := range entries {
		if !q.matchesName(e.Name) {
			continue
		}
		if q.owner != "" && e.Owner != q.owner {
			continue
		}
		candidates = append(candidates, e.Method)
	}

	// The filter runs outside the lock and never on an empty candidate set.
	if q.filter == nil || len(candidates) == 0 {
		return candidates
	}
	var out []*method.Method
	for i, m := range candidates {
		if q.filter(m, i, candidates) {
			out = append(out, m)
		}
	}
	return out
}

// MatchOne returns the first snapshot Match would return.
func (s *Store) MatchOne(q Query) (*method.Method, bool) {
	matched := s.Match(q)
	if len(matched) == 0 {
		return nil, false
	}
	return matched[0], true
}
