// Package query implements the condition-tree parser, the strategy
// planner, and the executor that runs a chosen strategy against a
// collection's document store and named indices.
//
// Unstructured where-maps (e.g. {"age": {"$gt": 25}}) are parsed into a
// small AST of field conditions joined by $and/$or, which the planner
// inspects to pick a strategy and the executor evaluates as a residual
// filter over whatever candidate set that strategy produced.
package query

import (
	"fmt"

	"github.com/augustgrove/shardodb/internal/docpath"
	"github.com/augustgrove/shardodb/internal/value"
)

// Operator is a field-level comparison operator.
type Operator string

const (
	OpEq   Operator = "$eq"
	OpNe   Operator = "$ne"
	OpGt   Operator = "$gt"
	OpGte  Operator = "$gte"
	OpLt   Operator = "$lt"
	OpLte  Operator = "$lte"
	OpIn   Operator = "$in"
	OpLike Operator = "$like"
)

// Node is the common interface of every AST node. Matcher is the only
// capability callers need; it is declared separately so FieldNode and
// LogicalNode satisfy it without an explicit implements declaration.
type Node interface{}

// FieldNode is a single field condition, addressed by dot-path.
type FieldNode struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// LogicalNode joins Children with $and or $or.
type LogicalNode struct {
	Operator string // "$and" or "$or"
	Children []Node
}

// Matcher is satisfied by every node; Execute type-asserts to it.
type Matcher interface {
	Matches(doc map[string]interface{}) bool
}

// Parse converts a where-map into an AST. Top-level keys are implicitly
// ANDed; "$and"/"$or" keys hold a list of sub-maps. A bare value under a
// field key is an implicit $eq; a map value is read as one or more
// operator/value pairs.
func Parse(q map[string]interface{}) (Node, error) {
	var nodes []Node

	for key, val := range q {
		if key == "$and" || key == "$or" {
			list, ok := val.([]interface{})
			if !ok {
				return nil, fmt.Errorf("query: value for %s must be a list", key)
			}
			children := make([]Node, 0, len(list))
			for _, item := range list {
				subMap, ok := item.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("query: element of %s must be an object", key)
				}
				child, err := Parse(subMap)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			nodes = append(nodes, &LogicalNode{Operator: key, Children: children})
			continue
		}

		if valMap, ok := val.(map[string]interface{}); ok {
			for op, opVal := range valMap {
				switch Operator(op) {
				case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpLike:
					nodes = append(nodes, &FieldNode{Field: key, Operator: Operator(op), Value: opVal})
				default:
					return nil, fmt.Errorf("query: unknown operator %q", op)
				}
			}
			continue
		}

		nodes = append(nodes, &FieldNode{Field: key, Operator: OpEq, Value: val})
	}

	// A single condition needs no $and wrapper: $and of one child is the
	// child itself, and leaving it unwrapped lets an explicit top-level
	// "$or"/"$and" key surface as such to the planner instead of being
	// buried one level down where it no longer looks top-level.
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &LogicalNode{Operator: "$and", Children: nodes}, nil
}

// Matches reports whether doc satisfies this field condition, resolving
// Field as a dot-path so nested documents are addressable the same way
// named indices address them.
func (n *FieldNode) Matches(doc map[string]interface{}) bool {
	val, ok := docpath.Get(doc, n.Field)
	if !ok {
		return n.Operator == OpNe
	}
	return compare(val, n.Operator, n.Value)
}

func (n *LogicalNode) Matches(doc map[string]interface{}) bool {
	switch n.Operator {
	case "$or":
		for _, child := range n.Children {
			if m, ok := child.(Matcher); ok && m.Matches(doc) {
				return true
			}
		}
		return len(n.Children) == 0
	default: // "$and"
		for _, child := range n.Children {
			if m, ok := child.(Matcher); ok && !m.Matches(doc) {
				return false
			}
		}
		return true
	}
}

// Compare evaluates a single operator/value comparison without building a
// whole document.
func Compare(actual interface{}, op Operator, expected interface{}) bool {
	return compare(actual, op, expected)
}

func compare(actual interface{}, op Operator, expected interface{}) bool {
	switch op {
	case OpEq:
		return matchesValue(actual, expected)
	case OpNe:
		return !matchesValue(actual, expected)
	case OpGt:
		return value.Compare(actual, expected) > 0
	case OpGte:
		return value.Compare(actual, expected) >= 0
	case OpLt:
		return value.Compare(actual, expected) < 0
	case OpLte:
		return value.Compare(actual, expected) <= 0
	case OpIn:
		list, ok := expected.([]interface{})
		if !ok {
			return false
		}
		for _, item := range list {
			if value.Equal(actual, item) {
				return true
			}
		}
		return false
	case OpLike:
		pattern, ok := expected.(string)
		if !ok {
			return false
		}
		return value.DefaultPatternMatcher.Match(actual, pattern)
	}
	return false
}

// matchesValue implements the equality predicate: if actual is a sequence
// (the document's field holds an array), the predicate holds iff any
// element matches expected after normalization; otherwise it's a plain
// scalar equality.
func matchesValue(actual, expected interface{}) bool {
	if list, ok := actual.([]interface{}); ok {
		for _, item := range list {
			if value.Equal(item, expected) {
				return true
			}
		}
		return false
	}
	return value.Equal(actual, expected)
}

// CompareValues orders two scalar values, for ORDER BY.
func CompareValues(a, b interface{}) int {
	return value.Compare(a, b)
}
