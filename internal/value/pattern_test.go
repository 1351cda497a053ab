package value

import "testing"

func TestLikeMatcher(t *testing.T) {
	cases := []struct {
		value   interface{}
		pattern string
		want    bool
	}{
		{"hello world", "hello%", true},
		{"hello world", "%world", true},
		{"hello world", "%wor%", true},
		{"hello world", "goodbye%", false},
		{"abc", "a_c", true},
		{"abc", "a__c", false},
		{"ABC", "abc", true}, // case-insensitive
	}
	for _, c := range cases {
		got := DefaultPatternMatcher.Match(c.value, c.pattern)
		if got != c.want {
			t.Errorf("Match(%v, %q) = %v, want %v", c.value, c.pattern, got, c.want)
		}
	}
}

func TestLikeMatcherNonStringIsNormalizedFirst(t *testing.T) {
	if !DefaultPatternMatcher.Match(float64(42), "4%") {
		t.Error("a non-string value should be normalized before pattern matching")
	}
	if DefaultPatternMatcher.Match(float64(42), "5%") {
		t.Error("42 should not match pattern 5%")
	}
}
