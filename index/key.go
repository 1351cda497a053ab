package index

import (
	"crypto/md5"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/augustgrove/shardodb/internal/value"
)

// Separator is the reserved byte between segments of a composite key. Using
// the ASCII unit separator (0x1F) rather than the literal "|" the original
// source used sidesteps the collision risk entirely: it cannot occur in any
// value Normalize produces, so no escaping or length-prefixing is needed.
const Separator = value.Separator

// EncodeKey builds the composite key for an ordered tuple of values.
func EncodeKey(values []interface{}) (string, error) {
	segments := make([]string, len(values))
	for i, v := range values {
		n, err := value.Normalize(v)
		if err != nil {
			if errors.Is(err, value.ErrContainsSeparator) {
				return "", fmt.Errorf("%w: %v", ErrReservedSeparator, err)
			}
			return "", fmt.Errorf("index: encode key: %w", err)
		}
		segments[i] = n
	}
	return strings.Join(segments, Separator), nil
}

// KeyPrefix builds the prefix a shorter value tuple projects onto a
// composite key: either an exact match (len(values) == fieldCount) or the
// prefix string a longer key must start with.
func KeyPrefix(values []interface{}) (string, error) {
	return EncodeKey(values)
}

// ShardIndex computes which shard (0..shardCount-1) a composite key routes
// to: md5(compositeKey)[0:2] mod shardCount. This is stable for the
// lifetime of the index — it must never change for a given key.
func ShardIndex(compositeKey string, shardCount int) int {
	sum := md5.Sum([]byte(compositeKey))
	// first byte of the digest, i.e. its first two hex digits
	h := int(sum[0])
	return h % shardCount
}

// SplitKey splits a composite key back into its normalized segments.
func SplitKey(key string) []string {
	return strings.Split(key, Separator)
}

// LastSegmentAsNumber parses the final segment of a composite key as a
// float64, for getRange's bound comparison. ok is false if the segment
// isn't numeric.
func LastSegmentAsNumber(key string) (float64, bool) {
	segs := SplitKey(key)
	if len(segs) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(segs[len(segs)-1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
