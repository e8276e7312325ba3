package matcher

import (
	"slices"
	"strconv"
	"strings"
)

// Matcher is a predicate over Jet paths.
// Empty string fields and an empty ContainsAllOf are treated as not set.
type Matcher struct {
	// Contains matches paths containing the substring.
	Contains string `json:"contains,omitempty" yaml:"contains,omitempty"`

	// ContainsAllOf matches paths containing any one of the substrings.
	ContainsAllOf []string `json:"containsAllOf,omitempty" yaml:"contains_all_of,omitempty"`

	// StartsWith matches paths with the given prefix.
	StartsWith string `json:"startsWith,omitempty" yaml:"starts_with,omitempty"`

	// EndsWith matches paths with the given suffix.
	EndsWith string `json:"endsWith,omitempty" yaml:"ends_with,omitempty"`

	// Equals matches exactly one path.
	Equals string `json:"equals,omitempty" yaml:"equals,omitempty"`

	// EqualsNot matches every path except the given one.
	EqualsNot string `json:"equalsNot,omitempty" yaml:"equals_not,omitempty"`

	// CaseInsensitive switches every predicate to case-insensitive comparison.
	CaseInsensitive bool `json:"caseInsensitive,omitempty" yaml:"case_insensitive,omitempty"`
}

// All returns the universal matcher.
func All() Matcher {
	return Matcher{}
}

// IsUniversal reports whether no predicate is configured.
// CaseInsensitive alone does not count as a predicate.
func (m Matcher) IsUniversal() bool {
	return m.Contains == "" &&
		len(m.ContainsAllOf) == 0 &&
		m.StartsWith == "" &&
		m.EndsWith == "" &&
		m.Equals == "" &&
		m.EqualsNot == ""
}

// Match reports whether path satisfies the matcher.
func (m Matcher) Match(path string) bool {
	if m.IsUniversal() {
		return true
	}

	fold := func(s string) string { return s }
	if m.CaseInsensitive {
		fold = strings.ToLower
	}
	p := fold(path)

	if m.Contains != "" && strings.Contains(p, fold(m.Contains)) {
		return true
	}

	for _, sub := range m.ContainsAllOf {
		if strings.Contains(p, fold(sub)) {
			return true
		}
	}

	if m.StartsWith != "" && strings.HasPrefix(p, fold(m.StartsWith)) {
		return true
	}

	if m.EndsWith != "" && strings.HasSuffix(p, fold(m.EndsWith)) {
		return true
	}

	if m.Equals != "" && p == fold(m.Equals) {
		return true
	}

	if m.EqualsNot != "" && p != fold(m.EqualsNot) {
		return true
	}

	return false
}

// Clone returns a deep copy of the matcher.
func (m Matcher) Clone() Matcher {
	if m.ContainsAllOf != nil {
		m.ContainsAllOf = slices.Clone(m.ContainsAllOf)
	}
	return m
}

// Equal reports whether both matchers have identical fields.
// A nil and an empty ContainsAllOf are equal.
func (m Matcher) Equal(other Matcher) bool {
	return m.Key() == other.Key()
}

// Key is the comparable form of a Matcher.
type Key struct {
	contains        string
	containsAllOf   string
	startsWith      string
	endsWith        string
	equals          string
	equalsNot       string
	caseInsensitive bool
}

// Key returns the comparable form of the matcher.
func (m Matcher) Key() Key {
	return Key{
		contains:        m.Contains,
		containsAllOf:   encodeList(m.ContainsAllOf),
		startsWith:      m.StartsWith,
		endsWith:        m.EndsWith,
		equals:          m.Equals,
		equalsNot:       m.EqualsNot,
		caseInsensitive: m.CaseInsensitive,
	}
}

// encodeList length-prefixes every element so that no two different
// lists encode to the same string.
func encodeList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range list {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// String returns a compact description for logs.
func (m Matcher) String() string {
	if m.IsUniversal() {
		return "*"
	}

	var parts []string
	if m.Contains != "" {
		parts = append(parts, "contains="+m.Contains)
	}
	if len(m.ContainsAllOf) > 0 {
		parts = append(parts, "containsAllOf="+strings.Join(m.ContainsAllOf, ","))
	}
	if m.StartsWith != "" {
		parts = append(parts, "startsWith="+m.StartsWith)
	}
	if m.EndsWith != "" {
		parts = append(parts, "endsWith="+m.EndsWith)
	}
	if m.Equals != "" {
		parts = append(parts, "equals="+m.Equals)
	}
	if m.EqualsNot != "" {
		parts = append(parts, "equalsNot="+m.EqualsNot)
	}
	if m.CaseInsensitive {
		parts = append(parts, "caseInsensitive")
	}
	return strings.Join(parts, " ")
}
