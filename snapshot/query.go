package snapshot

import (
	"fmt"
	"regexp"

	"github.com/jonwraymond/reqcache/method"
)

// FilterFunc narrows a match. It receives each candidate, its index among
// the name and owner matched candidates, and that full candidate list.
type FilterFunc func(m *method.Method, index int, candidates []*method.Method) bool

// QueryObject is the structured form of a query. Pattern takes precedence
// over Name when both are set.
type QueryObject struct {
	Name    string
	Pattern *regexp.Regexp
	Owner   string
	Filter  FilterFunc
}

// Query selects snapshots. Build one with ByName, ByPattern, ByQueryObject
// or ByPatternString.
type Query struct {
	name    string
	pattern *regexp.Regexp
	owner   string
	filter  FilterFunc
}

// ByName matches snapshots whose name equals name.
func ByName(name string) Query {
	return Query{name: name}
}

// ByPattern matches snapshots whose name matches re.
func ByPattern(re *regexp.Regexp) Query {
	return Query{pattern: re}
}

// ByPatternString compiles expr and matches names against it.
func ByPatternString(expr string) (Query, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Query{}, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return ByPattern(re), nil
}

// ByQueryObject builds a query with optional owner and filter restrictions.
func ByQueryObject(o QueryObject) Query {
	return Query{
		name:    o.Name,
		pattern: o.Pattern,
		owner:   o.Owner,
		filter:  o.Filter,
	}
}

// Owner returns the owner restriction, empty for none.
func (q Query) Owner() string {
	return q.owner
}

// WithOwner returns a copy of q restricted to owner.
func (q Query) WithOwner(owner string) Query {
	q.owner = owner
	return q
}

func (q Query) matchesName(name string) bool {
	if q.pattern != nil {
		return q.pattern.MatchString(name)
	}
	return q.name != "" && name == q.name
}

// String describes the query, e.g. "pattern=^get owner=1".
func (q Query) String() string {
	s := "name=" + q.name
	if q.pattern != nil {
		s = "pattern=" + q.pattern.String()
	}
	if q.owner != "" {
		s += " owner=" + q.owner
	}
	if q.filter != nil {
		s += " filtered"
	}
	return s
}
