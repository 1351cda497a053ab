package query

import (
	"context"

	"github.com/augustgrove/shardodb/storage"
)

// DataSource is the document-level access the executor needs once it has
// a candidate id set (or, for FullScan, instead of one).
type DataSource interface {
	LoadDocument(ctx context.Context, id string) (storage.Document, error)
	GetAllDocuments(ctx context.Context, fn func(id string, doc storage.Document) bool) error
}

// Options carries sort/pagination parameters into Execute.
type Options struct {
	SortField string
	SortDesc  bool
	Limit     int
	Skip      int
}

// Execute parses where, asks the planner for a strategy over indices,
// runs that strategy against source, applies the residual filter, and
// finally orders and paginates the result.
func Execute(ctx context.Context, source DataSource, where map[string]interface{}, opts Options, indices []IndexDescriptor) ([]storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := Parse(where)
	if err != nil {
		return nil, err
	}
	matcher, _ := root.(Matcher)

	plan := ChoosePlan(root, indices)

	var docs []storage.Document
	if plan.Strategy == FullScan {
		err = source.GetAllDocuments(ctx, func(id string, doc storage.Document) bool {
			if matcher == nil || matcher.Matches(doc) {
				docs = append(docs, doc)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	} else {
		ids, err := candidateIDs(ctx, plan)
		if err != nil {
			return nil, err
		}
		docs = make([]storage.Document, 0, len(ids))
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			doc, err := source.LoadDocument(ctx, id)
			if err != nil {
				continue // deleted or corrupted since the index was read; tolerated
			}
			if matcher == nil || matcher.Matches(doc) {
				docs = append(docs, doc)
			}
		}
	}

	return paginate(orderBy(docs, opts), opts), nil
}

func candidateIDs(ctx context.Context, plan Plan) ([]string, error) {
	switch plan.Strategy {
	case ExactMatch:
		return plan.Index.GetExact(ctx, plan.Values)
	case PrefixMatch, IndexSeekFilter:
		return plan.Index.GetPrefix(ctx, plan.Values)
	case IndexIntersect:
		return intersectLegs(ctx, plan.Legs)
	case IndexUnion:
		return unionLegs(ctx, plan.Legs)
	default:
		return nil, nil
	}
}

func intersectLegs(ctx context.Context, legs []leg) ([]string, error) {
	counts := make(map[string]int)
	for _, l := range legs {
		ids, err := l.lookup.GetExact(ctx, []interface{}{l.value})
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			counts[id]++
		}
	}
	var out []string
	for id, n := range counts {
		if n == len(legs) {
			out = append(out, id)
		}
	}
	return out, nil
}

func unionLegs(ctx context.Context, legs []leg) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range legs {
		ids, err := l.lookup.GetExact(ctx, []interface{}{l.value})
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// orderBy sorts docs by opts.SortField when set. When a limit is also set
// and the result is large relative to it, the bounded TopN primitive
// (TOP_N_OPTIMIZATION) is used instead of a full sort.
func orderBy(docs []storage.Document, opts Options) []storage.Document {
	if opts.SortField == "" {
		return docs
	}
	if opts.Limit > 0 && opts.Skip == 0 && opts.Limit < len(docs) {
		return TopN(docs, opts.SortField, opts.SortDesc, opts.Limit)
	}
	SortDocuments(docs, opts.SortField, opts.SortDesc)
	return docs
}

func paginate(docs []storage.Document, opts Options) []storage.Document {
	if opts.Skip > 0 {
		if opts.Skip >= len(docs) {
			return nil
		}
		docs = docs[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(docs) {
		docs = docs[:opts.Limit]
	}
	return docs
}
