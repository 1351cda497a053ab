package shardodb

import (
	"context"

	"github.com/augustgrove/shardodb/internal/docpath"
	"github.com/augustgrove/shardodb/internal/value"
	"github.com/augustgrove/shardodb/storage"
)

// checkRelations verifies that every relation-bearing field present on doc
// resolves to an existing document in its target collection. Only
// existence is checked (generalized from the teacher's on-delete
// restrict/set_null/cascade rule set, which this module's relation model
// has no use for: population and cascade are both external collaborators
// per the design, not this engine's responsibility).
func (c *Collection) checkRelations(ctx context.Context, doc map[string]interface{}) error {
	if !c.schema.ValidateRelations || len(c.schema.Relations) == 0 {
		return nil
	}
	for field, rel := range c.schema.Relations {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok := docpath.Get(doc, field)
		if !ok {
			continue
		}
		normalized, err := value.Normalize(v)
		if err != nil {
			return &ValidationError{Field: field, Reason: "relation value is not a normalizable scalar"}
		}

		target, err := c.db.Collection(rel.TargetCollection, nil)
		if err != nil {
			return &RelationError{Field: field, TargetCollection: rel.TargetCollection, Value: v}
		}

		resolved, err := target.resolvesRelation(ctx, rel.targetField(), normalized)
		if err != nil {
			return err
		}
		if !resolved {
			return &RelationError{Field: field, TargetCollection: rel.TargetCollection, Value: v}
		}
	}
	return nil
}

// resolvesRelation reports whether some document in c has the given
// normalized value at targetField. When targetField is "id" this is a
// direct document lookup; otherwise it falls back to a full scan, since
// the target field need not be indexed.
func (c *Collection) resolvesRelation(ctx context.Context, targetField, normalizedValue string) (bool, error) {
	if targetField == "id" {
		_, err := c.store.LoadDocument(ctx, normalizedValue)
		return err == nil, nil
	}

	found := false
	err := c.store.GetAllDocuments(ctx, func(id string, doc storage.Document) bool {
		v, ok := docpath.Get(doc, targetField)
		if !ok {
			return true
		}
		if value.Equal(v, normalizedValue) {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
