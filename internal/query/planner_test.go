package query

import (
	"context"
	"testing"
)

type fakeLookup struct {
	fields  []string
	exact   map[string][]string // normalized composite key -> ids
	onExact func(values []interface{}) ([]string, error)
}

func (f *fakeLookup) Fields() []string { return f.fields }

func (f *fakeLookup) GetExact(ctx context.Context, values []interface{}) ([]string, error) {
	if f.onExact != nil {
		return f.onExact(values)
	}
	return nil, nil
}

func (f *fakeLookup) GetPrefix(ctx context.Context, values []interface{}) ([]string, error) {
	return f.GetExact(ctx, values)
}

func TestChoosePlanFullScanWithNoIndices(t *testing.T) {
	root, _ := Parse(map[string]interface{}{"name": "ada"})
	plan := ChoosePlan(root, nil)
	if plan.Strategy != FullScan {
		t.Fatalf("expected FullScan, got %v", plan.Strategy)
	}
}

func TestChoosePlanExactMatchSingleField(t *testing.T) {
	idx := &fakeLookup{fields: []string{"email"}}
	root, _ := Parse(map[string]interface{}{"email": "a@example.com"})
	plan := ChoosePlan(root, []IndexDescriptor{{Name: "by_email", Lookup: idx}})
	if plan.Strategy != ExactMatch {
		t.Fatalf("expected ExactMatch, got %v", plan.Strategy)
	}
}

func TestChoosePlanPrefixMatchOnComposite(t *testing.T) {
	idx := &fakeLookup{fields: []string{"org", "role"}}
	root, _ := Parse(map[string]interface{}{"org": "acme"})
	plan := ChoosePlan(root, []IndexDescriptor{{Name: "by_org_role", Lookup: idx}})
	if plan.Strategy != PrefixMatch {
		t.Fatalf("expected PrefixMatch when the query's only condition is covered by the index's leading field, got %v", plan.Strategy)
	}
}

func TestChoosePlanIndexSeekFilterWhenQueryLeavesUncoveredByIndex(t *testing.T) {
	idx := &fakeLookup{fields: []string{"org", "role", "active"}}
	root, _ := Parse(map[string]interface{}{"org": "acme", "role": "admin", "country": "US"})
	plan := ChoosePlan(root, []IndexDescriptor{{Name: "by_org_role_active", Lookup: idx}})
	if plan.Strategy != IndexSeekFilter {
		t.Fatalf("expected IndexSeekFilter when the index covers a prefix but not every query condition, got %v", plan.Strategy)
	}
	if len(plan.Values) != 2 {
		t.Fatalf("expected the matched prefix to cover 2 fields (org, role), got %d", len(plan.Values))
	}
}

func TestChoosePlanExactMatchPrefersFullCoverage(t *testing.T) {
	idx := &fakeLookup{fields: []string{"org", "role"}}
	root, _ := Parse(map[string]interface{}{"org": "acme", "role": "admin"})
	plan := ChoosePlan(root, []IndexDescriptor{{Name: "by_org_role", Lookup: idx}})
	if plan.Strategy != ExactMatch {
		t.Fatalf("expected ExactMatch when all fields are covered, got %v", plan.Strategy)
	}
}

func TestChoosePlanIntersectsDistinctSingleFieldIndices(t *testing.T) {
	orgIdx := &fakeLookup{fields: []string{"org"}}
	roleIdx := &fakeLookup{fields: []string{"role"}}
	root, _ := Parse(map[string]interface{}{"org": "acme", "role": "admin"})
	plan := ChoosePlan(root, []IndexDescriptor{
		{Name: "by_org", Lookup: orgIdx},
		{Name: "by_role", Lookup: roleIdx},
	})
	if plan.Strategy != IndexIntersect {
		t.Fatalf("expected IndexIntersect, got %v", plan.Strategy)
	}
	if len(plan.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(plan.Legs))
	}
}

func TestChoosePlanUnionOnTopLevelOr(t *testing.T) {
	orgIdx := &fakeLookup{fields: []string{"org"}}
	root, _ := Parse(map[string]interface{}{
		"$or": []interface{}{
			map[string]interface{}{"org": "acme"},
			map[string]interface{}{"org": "other"},
		},
	})
	plan := ChoosePlan(root, []IndexDescriptor{{Name: "by_org", Lookup: orgIdx}})
	if plan.Strategy != IndexUnion {
		t.Fatalf("expected IndexUnion, got %v", plan.Strategy)
	}
	if len(plan.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(plan.Legs))
	}
}

func TestChoosePlanFallsBackToFullScanForRangeQuery(t *testing.T) {
	idx := &fakeLookup{fields: []string{"age"}}
	root, _ := Parse(map[string]interface{}{"age": map[string]interface{}{"$gt": 25}})
	plan := ChoosePlan(root, []IndexDescriptor{{Name: "by_age", Lookup: idx}})
	if plan.Strategy != FullScan {
		t.Fatalf("expected FullScan for a non-equality condition, got %v", plan.Strategy)
	}
}
