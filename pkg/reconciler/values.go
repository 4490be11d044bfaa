package reconciler

import (
	"regexp"
	"sort"
	"strings"
)

// ValueSet is the set of enumerated values found in a CHECK expression,
// normalized to uppercase.
//
// Two definitions with equal value sets are treated as the same constraint
// regardless of casts, parentheses, ordering or casing. This is a token-level
// heuristic aimed at enum-style ARRAY['A', 'B'] checks, not SQL equivalence.
type ValueSet map[string]struct{}

var quotedTokenPattern = regexp.MustCompile(`(?i)'([A-Z_]+)'`)

// ExtractValues collects every single-quoted token made of letters and
// underscores from sql. Empty input yields an empty set.
func ExtractValues(sql string) ValueSet {
	values := make(ValueSet)
	if sql == "" {
		return values
	}
	for _, m := range quotedTokenPattern.FindAllStringSubmatch(sql, -1) {
		values[strings.ToUpper(m[1])] = struct{}{}
	}
	return values
}

// Equal reports whether both sets contain exactly the same values.
func (s ValueSet) Equal(other ValueSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if _, ok := other[v]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the values in ascending order.
func (s ValueSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// String renders the set as a sorted bracketed list, e.g. ['APPROVED', 'PENDING'].
func (s ValueSet) String() string {
	sorted := s.Sorted()
	quoted := make([]string, len(sorted))
	for i, v := range sorted {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
