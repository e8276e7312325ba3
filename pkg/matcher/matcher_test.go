package matcher

import (
	"strings"
	"testing"
)

func TestMatchPredicates(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		path    string
		want    bool
	}{
		{"contains", Matcher{Contains: "hello/world"}, "hello/world/how/are/you", true},
		{"contains case mismatch", Matcher{Contains: "hello/world"}, "hello/World/how/are/you", false},
		{"contains case insensitive", Matcher{Contains: "hello/world", CaseInsensitive: true}, "Hello/World/how/are/you", true},

		{"startsWith", Matcher{StartsWith: "hello"}, "hello/world/how/are/you", true},
		{"startsWith case mismatch", Matcher{StartsWith: "hello"}, "Hello/World/how/are/you", false},
		{"startsWith case insensitive", Matcher{StartsWith: "hello", CaseInsensitive: true}, "Hello/World", true},
		{"startsWith in the middle", Matcher{StartsWith: "world"}, "hello/world", false},

		{"endsWith", Matcher{EndsWith: "world"}, "hello/world", true},
		{"endsWith case mismatch", Matcher{EndsWith: "world"}, "Hello/World", false},
		{"endsWith case insensitive", Matcher{EndsWith: "world", CaseInsensitive: true}, "hello/World", true},

		{"equals", Matcher{Equals: "hello/world"}, "hello/world", true},
		{"equals case mismatch", Matcher{Equals: "hello/world"}, "Hello/World", false},
		{"equals case insensitive", Matcher{Equals: "hello/world", CaseInsensitive: true}, "hello/World", true},
		{"equals prefix only", Matcher{Equals: "hello"}, "hello/world", false},

		{"equalsNot differs", Matcher{EqualsNot: "hello/world"}, "Hello/World", true},
		{"equalsNot same", Matcher{EqualsNot: "hello/world"}, "hello/world", false},
		{"equalsNot same case insensitive", Matcher{EqualsNot: "hello/world", CaseInsensitive: true}, "hello/World", false},

		{"universal", Matcher{}, "Hello/World", true},
		{"universal empty list", Matcher{ContainsAllOf: []string{}}, "hello/world", true},
		{"universal case insensitive", Matcher{CaseInsensitive: true}, "hello/World", true},
		{"universal empty path", Matcher{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// ContainsAllOf is satisfied by any one of its substrings.
func TestMatchContainsAllOfIsAnyOf(t *testing.T) {
	m := Matcher{ContainsAllOf: []string{"hello", "world"}}

	if !m.Match("hello/world/how/are/you") {
		t.Error("path with both substrings should match")
	}
	if !m.Match("hello/World/how/are/you") {
		t.Error("path with only 'hello' should match")
	}
	if !m.Match("foo/world") {
		t.Error("path with only 'world' should match")
	}
	if m.Match("foo/bar") {
		t.Error("path with neither substring should not match")
	}

	m.CaseInsensitive = true
	if !m.Match("HELLO/x") {
		t.Error("case-insensitive match expected")
	}
}

// Predicates are OR-ed: one satisfied predicate is enough.
func TestMatchPredicatesAreOred(t *testing.T) {
	m := Matcher{StartsWith: "plant/", Equals: "other/path"}

	if !m.Match("plant/a") {
		t.Error("startsWith alone should match")
	}
	if !m.Match("other/path") {
		t.Error("equals alone should match")
	}
	if m.Match("nowhere") {
		t.Error("no predicate satisfied, should not match")
	}
}

func TestMatchCaseInsensitiveEqualsNormalizedCaseSensitive(t *testing.T) {
	paths := []string{"Hello/World", "HELLO/world/x", "abc", "a/HeLLo", "World"}
	matchers := []Matcher{
		{Contains: "hello"},
		{StartsWith: "hello"},
		{EndsWith: "world"},
		{Equals: "hello/world"},
		{EqualsNot: "abc"},
	}

	for _, m := range matchers {
		ci := m
		ci.CaseInsensitive = true
		for _, p := range paths {
			want := m.Match(strings.ToLower(p))
			if got := ci.Match(p); got != want {
				t.Errorf("%s: Match(%q) = %v, case-sensitive on lowered path = %v", m, p, got, want)
			}
		}
	}
}

func TestKeyStructuralEquality(t *testing.T) {
	a := Matcher{Contains: "x", ContainsAllOf: []string{"a", "b"}, CaseInsensitive: true}
	b := Matcher{Contains: "x", ContainsAllOf: []string{"a", "b"}, CaseInsensitive: true}

	if a.Key() != b.Key() {
		t.Error("structurally equal matchers must have equal keys")
	}
	if !a.Equal(b) {
		t.Error("Equal() = false, want true")
	}

	set := map[Key]int{a.Key(): 1}
	set[b.Key()] = 2
	if len(set) != 1 {
		t.Errorf("map has %d entries, want 1", len(set))
	}
}

func TestKeyDistinguishesFields(t *testing.T) {
	variants := []Matcher{
		{},
		{Contains: "a"},
		{StartsWith: "a"},
		{EndsWith: "a"},
		{Equals: "a"},
		{EqualsNot: "a"},
		{ContainsAllOf: []string{"a"}},
		{ContainsAllOf: []string{"a", "b"}},
		{ContainsAllOf: []string{"ab"}},
		{ContainsAllOf: []string{"a:1", "b"}},
		{ContainsAllOf: []string{"a", "1:b"}},
		{CaseInsensitive: true},
	}

	seen := make(map[Key]int)
	for i, m := range variants {
		if j, ok := seen[m.Key()]; ok {
			t.Errorf("variant %d (%s) collides with variant %d", i, m, j)
		}
		seen[m.Key()] = i
	}
}

func TestKeyNilAndEmptyListEqual(t *testing.T) {
	if (Matcher{}).Key() != (Matcher{ContainsAllOf: []string{}}).Key() {
		t.Error("nil and empty ContainsAllOf should produce the same key")
	}
}

func TestClone(t *testing.T) {
	orig := Matcher{ContainsAllOf: []string{"a", "b"}}
	c := orig.Clone()
	orig.ContainsAllOf[0] = "z"

	if c.ContainsAllOf[0] != "a" {
		t.Errorf("clone shares backing array: got %q", c.ContainsAllOf[0])
	}
}

func TestString(t *testing.T) {
	if got := All().String(); got != "*" {
		t.Errorf("All().String() = %q, want *", got)
	}
	m := Matcher{StartsWith: "a/", CaseInsensitive: true}
	if got := m.String(); got != "startsWith=a/ caseInsensitive" {
		t.Errorf("String() = %q", got)
	}
}
