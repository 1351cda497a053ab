package query

import "context"

// Strategy identifies the access path the executor should run.
type Strategy int

const (
	FullScan Strategy = iota
	ExactMatch
	PrefixMatch
	IndexSeekFilter
	IndexIntersect
	IndexUnion
)

func (s Strategy) String() string {
	switch s {
	case ExactMatch:
		return "EXACT_MATCH"
	case PrefixMatch:
		return "PREFIX_MATCH"
	case IndexSeekFilter:
		return "INDEX_SEEK_FILTER"
	case IndexIntersect:
		return "INDEX_INTERSECT"
	case IndexUnion:
		return "INDEX_UNION"
	default:
		return "FULL_SCAN"
	}
}

// IndexLookup is the subset of index.Engine the planner and executor
// need. index.Engine satisfies this structurally; no adapter is needed.
type IndexLookup interface {
	Fields() []string
	GetExact(ctx context.Context, values []interface{}) ([]string, error)
	GetPrefix(ctx context.Context, values []interface{}) ([]string, error)
}

// IndexDescriptor names a lookup so the chosen Plan can be reported back
// to a caller (tests, diagnostics) without exposing the engine itself.
type IndexDescriptor struct {
	Name   string
	Lookup IndexLookup
}

// leg pairs a single-field lookup with the equality value the planner
// matched it against, used by IndexIntersect and IndexUnion.
type leg struct {
	lookup IndexLookup
	value  interface{}
}

// Plan is the chosen strategy plus whatever the executor needs to run it.
type Plan struct {
	Strategy Strategy
	Index    IndexLookup   // ExactMatch, PrefixMatch, IndexSeekFilter
	Values   []interface{} // matched field values, in index field order
	Legs     []leg         // IndexIntersect, IndexUnion
}

// ChoosePlan inspects root's top-level shape against the available named
// indices and picks the narrowest admissible strategy. Full scan is
// always admissible and is the fallback when no index applies.
func ChoosePlan(root Node, indices []IndexDescriptor) Plan {
	if field, ok := root.(*FieldNode); ok {
		// Parse leaves a single condition unwrapped; plan it as a
		// one-leaf conjunction.
		root = &LogicalNode{Operator: "$and", Children: []Node{field}}
	}
	logical, ok := root.(*LogicalNode)
	if !ok {
		return Plan{Strategy: FullScan}
	}

	if logical.Operator == "$or" {
		if plan, ok := planUnion(logical, indices); ok {
			return plan
		}
		return Plan{Strategy: FullScan}
	}

	eqs := topLevelEquals(logical)
	if len(eqs) == 0 {
		return Plan{Strategy: FullScan}
	}

	singlePlan, singleOk := planSingleIndex(eqs, indices)
	intersectPlan, intersectOk := planIntersect(eqs, indices)

	singleCoverage := 0
	if singleOk {
		singleCoverage = len(singlePlan.Values)
	}
	intersectCoverage := 0
	if intersectOk {
		intersectCoverage = len(intersectPlan.Legs)
	}

	switch {
	case singleOk && singlePlan.Strategy == ExactMatch && len(singlePlan.Index.Fields()) > 1:
		// A real composite index fully covers the query; preferred over
		// approximating the same result with an intersection of
		// single-field indices.
		return singlePlan
	case intersectCoverage > singleCoverage:
		return intersectPlan
	case singleOk:
		return singlePlan
	default:
		return Plan{Strategy: FullScan}
	}
}

// topLevelEquals collects the $eq conditions directly under a top-level
// $and; anything else (ranges, $or, nested logic) is left for the
// executor's residual filter and does not participate in index selection.
// The result is matched against an index's field list by membership, not
// by the caller's original field order (DESIGN.md open question 5: the
// map-shaped query API carries no such order to preserve).
func topLevelEquals(n *LogicalNode) map[string]interface{} {
	eqs := make(map[string]interface{})
	for _, child := range n.Children {
		if f, ok := child.(*FieldNode); ok && f.Operator == OpEq {
			eqs[f.Field] = f.Value
		}
	}
	return eqs
}

// planSingleIndex finds the index whose field list has the longest prefix
// p covered by eqs. The strategy is decided by comparing p against the
// index's total field count k and the query's total equality-leaf count
// |eqs|, not by the literal value of p:
//   - p == k: every index field is pinned — ExactMatch.
//   - p == |eqs| (and p < k): every query condition is covered by the
//     index's leading fields, even though the index has further unused
//     trailing fields — PrefixMatch.
//   - otherwise (p < k and p < |eqs|): the index only narrows the scan;
//     query conditions past the covered prefix still need the executor's
//     residual filter — IndexSeekFilter.
func planSingleIndex(eqs map[string]interface{}, indices []IndexDescriptor) (Plan, bool) {
	var best Plan
	bestScore := -1

	for _, idx := range indices {
		fields := idx.Lookup.Fields()
		values := make([]interface{}, 0, len(fields))
		for _, f := range fields {
			v, ok := eqs[f]
			if !ok {
				break
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}

		strat := IndexSeekFilter
		switch {
		case len(values) == len(fields):
			strat = ExactMatch
		case len(values) == len(eqs):
			strat = PrefixMatch
		}

		score := len(values) * 10
		if strat == ExactMatch {
			score += 1000
		}
		if score > bestScore {
			bestScore = score
			best = Plan{Strategy: strat, Index: idx.Lookup, Values: values}
		}
	}
	return best, bestScore >= 0
}

// planIntersect fires when at least two distinct single-field indices
// each cover a different equality condition; their posting lists are
// intersected by the executor instead of falling back to a full scan.
func planIntersect(eqs map[string]interface{}, indices []IndexDescriptor) (Plan, bool) {
	var legs []leg
	for _, idx := range indices {
		fields := idx.Lookup.Fields()
		if len(fields) != 1 {
			continue
		}
		v, ok := eqs[fields[0]]
		if !ok {
			continue
		}
		legs = append(legs, leg{lookup: idx.Lookup, value: v})
	}
	if len(legs) < 2 {
		return Plan{}, false
	}
	return Plan{Strategy: IndexIntersect, Legs: legs}, true
}

// planUnion fires when every child of a top-level $or is a single-field
// equality with its own single-field index.
func planUnion(n *LogicalNode, indices []IndexDescriptor) (Plan, bool) {
	byField := make(map[string]IndexLookup)
	for _, idx := range indices {
		fields := idx.Lookup.Fields()
		if len(fields) == 1 {
			byField[fields[0]] = idx.Lookup
		}
	}

	var legs []leg
	for _, child := range n.Children {
		f, ok := child.(*FieldNode)
		if !ok || f.Operator != OpEq {
			return Plan{}, false
		}
		lookup, ok := byField[f.Field]
		if !ok {
			return Plan{}, false
		}
		legs = append(legs, leg{lookup: lookup, value: f.Value})
	}
	if len(legs) == 0 {
		return Plan{}, false
	}
	return Plan{Strategy: IndexUnion, Legs: legs}, true
}
