// Package value implements the small set of black-box collaborators the
// design defers to an external implementation: canonical scalar
// normalization, LIKE-style pattern matching, and bounded top-N ordering.
// None of these are part of the hard engineering this module specifies —
// they exist here only so the index engine and query executor have a real
// collaborator to call during tests.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Separator is the reserved byte between segments of a composite key. It is
// the ASCII unit separator (0x1F), chosen because it cannot occur in any
// value Normalize produces, so composite keys never need escaping.
const Separator = "\x1f"

// ErrContainsSeparator is returned by Normalize when a string value
// contains the reserved composite-key separator verbatim.
var ErrContainsSeparator = fmt.Errorf("value: normalized string contains reserved separator byte 0x1f")

// Normalize produces a deterministic, canonical string form of a scalar
// value (string, number, bool, or nil) suitable for composite-key encoding
// and equality comparison. Nested values (maps, slices) are not scalars and
// are rejected with an error.
func Normalize(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		if strings.Contains(t, Separator) {
			return "", ErrContainsSeparator
		}
		return t, nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case float64:
		return formatNumber(t), nil
	case float32:
		return formatNumber(float64(t)), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		return "", fmt.Errorf("value: cannot normalize non-scalar of type %T", v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// MustNormalize normalizes v, mapping any error to the empty string. It
// serves call sites that want the canonical form without an error path
// (Compare's string fallback, the LIKE matcher).
func MustNormalize(v interface{}) string {
	s, err := Normalize(v)
	if err != nil {
		return ""
	}
	return s
}

// Equal reports whether two scalar values are equal after normalization.
func Equal(a, b interface{}) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return na == nb
}

// Compare orders two scalar values numerically when both are numbers,
// falling back to a normalized string comparison otherwise. It returns a
// negative number, zero, or a positive number as a < b, a == b, a > b.
func Compare(a, b interface{}) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	na := MustNormalize(a)
	nb := MustNormalize(b)
	return strings.Compare(na, nb)
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// TopN returns the first k items of items in the order defined by less,
// sorted, without fully sorting the input: it keeps a sorted buffer of at
// most k items. It is the bounded top-N primitive the query executor's
// TOP_N_OPTIMIZATION strategy treats as a black box.
func TopN(items []interface{}, k int, less func(a, b interface{}) bool) []interface{} {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	top := make([]interface{}, 0, k+1)
	for _, item := range items {
		i := sort.Search(len(top), func(j int) bool { return less(item, top[j]) })
		if i >= k {
			continue
		}
		top = append(top, nil)
		copy(top[i+1:], top[i:])
		top[i] = item
		if len(top) > k {
			top = top[:k]
		}
	}
	return top
}
