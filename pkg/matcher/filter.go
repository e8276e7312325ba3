package matcher

import "slices"

// PathFilter is the "path" object of a fetch request.
// Field order fixes the JSON key order.
type PathFilter struct {
	Contains      string   `json:"contains,omitempty"`
	StartsWith    string   `json:"startsWith,omitempty"`
	EndsWith      string   `json:"endsWith,omitempty"`
	Equals        string   `json:"equals,omitempty"`
	EqualsNot     string   `json:"equalsNot,omitempty"`
	ContainsAllOf []string `json:"containsAllOf,omitempty"`
}

// Filter builds the wire filter for m.
//
// It returns nil when no predicate is set. Callers must then omit the
// filter from the request instead of sending an empty object: the daemon
// treats a missing filter as "match everything".
func (m Matcher) Filter() *PathFilter {
	if m.IsUniversal() {
		return nil
	}

	f := &PathFilter{
		Contains:   m.Contains,
		StartsWith: m.StartsWith,
		EndsWith:   m.EndsWith,
		Equals:     m.Equals,
		EqualsNot:  m.EqualsNot,
	}
	if len(m.ContainsAllOf) > 0 {
		f.ContainsAllOf = slices.Clone(m.ContainsAllOf)
	}
	return f
}

// Matcher converts a received filter back into a Matcher. A nil filter
// yields the universal matcher.
func (f *PathFilter) Matcher(caseInsensitive bool) Matcher {
	m := Matcher{CaseInsensitive: caseInsensitive}
	if f == nil {
		return m
	}
	m.Contains = f.Contains
	m.StartsWith = f.StartsWith
	m.EndsWith = f.EndsWith
	m.Equals = f.Equals
	m.EqualsNot = f.EqualsNot
	if len(f.ContainsAllOf) > 0 {
		m.ContainsAllOf = slices.Clone(f.ContainsAllOf)
	}
	return m
}
