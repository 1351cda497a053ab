package query

import (
	"sort"

	"github.com/augustgrove/shardodb/internal/docpath"
	"github.com/augustgrove/shardodb/internal/value"
)

// SortDocuments orders docs in place by field, ascending unless desc is
// set. Documents missing field sort after every document that has it.
// The generic constraint lets callers pass []storage.Document directly
// without an intermediate []map[string]interface{} conversion.
func SortDocuments[T ~map[string]interface{}](docs []T, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi, oki := docpath.Get(docs[i], field)
		vj, okj := docpath.Get(docs[j], field)
		if !oki && !okj {
			return false
		}
		if !oki {
			return false
		}
		if !okj {
			return true
		}
		c := value.Compare(vi, vj)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// TopN returns the n smallest (or largest, if desc) documents by field,
// using the bounded top-N primitive rather than a full sort followed by a
// slice — the TOP_N_OPTIMIZATION strategy's whole point when n is much
// smaller than len(docs).
func TopN[T ~map[string]interface{}](docs []T, field string, desc bool, n int) []T {
	items := make([]interface{}, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	less := func(a, b interface{}) bool {
		da := a.(T)
		db := b.(T)
		va, oka := docpath.Get(da, field)
		vb, okb := docpath.Get(db, field)
		if !oka {
			return false
		}
		if !okb {
			return true
		}
		c := value.Compare(va, vb)
		if desc {
			return c > 0
		}
		return c < 0
	}
	top := value.TopN(items, n, less)
	out := make([]T, len(top))
	for i, v := range top {
		out[i] = v.(T)
	}
	return out
}
