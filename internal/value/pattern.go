package value

import (
	"regexp"
	"strings"
)

// PatternMatcher evaluates a LIKE-style pattern against a document value.
// The design treats pattern matching as an external black box; this is a
// minimal SQL-LIKE-compatible implementation (% matches any run of
// characters, _ matches exactly one) so the executor has something real to
// call.
type PatternMatcher interface {
	Match(value interface{}, pattern string) bool
}

type likeMatcher struct{}

// DefaultPatternMatcher is the built-in LIKE-style matcher used when the
// caller does not supply its own.
var DefaultPatternMatcher PatternMatcher = likeMatcher{}

func (likeMatcher) Match(value interface{}, pattern string) bool {
	s, ok := value.(string)
	if !ok {
		s = MustNormalize(value)
	}
	re := compileLikePattern(pattern)
	return re.MatchString(s)
}

func compileLikePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		// A pattern that fails to compile matches nothing rather than
		// panicking mid-query.
		return regexp.MustCompile(`[^\x00-\x{10FFFF}]`)
	}
	return re
}
