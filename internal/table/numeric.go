package table

import (
	"regexp"
	"strings"
)

// DefaultNumericTokens are placeholder values that count as numeric-like even
// though they contain no digits ("included", "unlimited", a bare dash, ...).
var DefaultNumericTokens = []string{
	"inclus", "illimité", "illimite", "included", "unlimited",
	"n/a", "na", "—", "-", "x",
}

// DefaultNumericUnits are the optional suffixes accepted after a number.
var DefaultNumericUnits = []string{"€", "%", "eur", "mo", "mn", "min", "$", "usd", "£"}

// NumericMatcher decides whether a cell looks like a value rather than a label.
// The token and unit sets are locale dependent, so both are configurable.
type NumericMatcher struct {
	tokens  map[string]bool
	pattern *regexp.Regexp
}

// NewNumericMatcher builds a matcher from placeholder tokens and unit suffixes.
// Empty slices fall back to the defaults.
func NewNumericMatcher(tokens, units []string) *NumericMatcher {
	if len(tokens) == 0 {
		tokens = DefaultNumericTokens
	}
	if len(units) == 0 {
		units = DefaultNumericUnits
	}

	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			set[tok] = true
		}
	}

	quoted := make([]string, 0, len(units))
	for _, u := range units {
		u = strings.TrimSpace(u)
		if u != "" {
			quoted = append(quoted, regexp.QuoteMeta(u))
		}
	}
	expr := `(?i)^\s*[-+]?[\d\s.,]+\s*$`
	if len(quoted) > 0 {
		expr = `(?i)^\s*[-+]?[\d\s.,]+(?:` + strings.Join(quoted, "|") + `)?\s*$`
	}

	return &NumericMatcher{
		tokens:  set,
		pattern: regexp.MustCompile(expr),
	}
}

// DefaultNumericMatcher returns a matcher using the default token and unit sets.
func DefaultNumericMatcher() *NumericMatcher {
	return NewNumericMatcher(nil, nil)
}

// IsNumericLike reports whether s is a placeholder token or a number with
// optional punctuation and unit. Empty strings are not numeric-like.
func (m *NumericMatcher) IsNumericLike(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if m.tokens[strings.ToLower(s)] {
		return true
	}
	return m.pattern.MatchString(s)
}
