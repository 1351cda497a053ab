package shardodb

import (
	"context"
	"errors"
	"testing"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Create(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertSynthesizesID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	doc, err := col.Insert(ctx, map[string]interface{}{"name": "ada"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id, ok := doc.ID()
	if !ok || id == "" {
		t.Fatalf("expected a synthesized id, got %v", doc)
	}
}

func TestInsertRejectsMissingRequiredField(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{
		Fields: map[string]FieldSchema{"email": {Type: TypeString, Required: true}},
	})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	_, err = col.Insert(ctx, map[string]interface{}{"name": "ada"})
	if err == nil {
		t.Fatal("expected an error inserting a document missing a required field")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	if _, err := col.Insert(ctx, map[string]interface{}{"id": "u1", "name": "ada"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, err = col.Insert(ctx, map[string]interface{}{"id": "u1", "name": "ada lovelace"})
	if err == nil {
		t.Fatal("expected an error inserting a document with an id already in use")
	}
	if !errors.Is(err, ErrDocumentExists) {
		t.Fatalf("expected ErrDocumentExists, got %v", err)
	}
	if errors.Is(err, ErrCollectionExists) {
		t.Fatalf("a duplicate document id must not satisfy errors.Is(err, ErrCollectionExists)")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	doc, err := col.Insert(ctx, map[string]interface{}{"id": "u1", "name": "ada"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id, _ := doc.ID()

	updated, err := col.Update(ctx, id, map[string]interface{}{"name": "ada lovelace"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated["name"] != "ada lovelace" {
		t.Fatalf("Update result = %v", updated)
	}

	removed, err := col.Delete(ctx, id)
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	if _, err := col.GetByID(ctx, id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if _, err := col.Update(ctx, "nonexistent", map[string]interface{}{"name": "x"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByExactIndex(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{
		Indices: map[string][]string{"by_email": {"email"}},
	})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	if _, err := col.Insert(ctx, map[string]interface{}{"id": "u1", "email": "a@example.com"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := col.Insert(ctx, map[string]interface{}{"id": "u2", "email": "b@example.com"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	docs, err := col.Find(ctx, map[string]interface{}{"email": "b@example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(docs))
	}
	if id, _ := docs[0].ID(); id != "u2" {
		t.Fatalf("expected u2, got %s", id)
	}
}

func TestIndexReconciledOnUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{
		Indices: map[string][]string{"by_email": {"email"}},
	})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	doc, err := col.Insert(ctx, map[string]interface{}{"id": "u1", "email": "old@example.com"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id, _ := doc.ID()

	if _, err := col.Update(ctx, id, map[string]interface{}{"email": "new@example.com"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stale, err := col.Find(ctx, map[string]interface{}{"email": "old@example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no matches for the old indexed value, got %d", len(stale))
	}

	fresh, err := col.Find(ctx, map[string]interface{}{"email": "new@example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected 1 match for the new indexed value, got %d", len(fresh))
	}
}

func TestEnsureIndexBuildsExistingDocumentsAfterReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := Create(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	col, err := db.Collection("users", &Schema{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if _, err := col.Insert(ctx, map[string]interface{}{"id": "u1", "email": "a@example.com"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	opts := DefaultOptions()
	opts.SkipInitialIndexBuild = true
	reopened, err := Open(dir, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	col2, err := reopened.Collection("users", nil)
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if err := col2.EnsureIndex(ctx, "by_email", []string{"email"}, opts); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	docs, err := col2.Find(ctx, map[string]interface{}{"email": "a@example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected EnsureIndex to build from the existing document set, got %d matches", len(docs))
	}
}

func TestRelationValidation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	teams, err := db.Collection("teams", &Schema{})
	if err != nil {
		t.Fatalf("Collection(teams): %v", err)
	}
	if _, err := teams.Insert(ctx, map[string]interface{}{"id": "team1", "name": "Engineering"}); err != nil {
		t.Fatalf("Insert team: %v", err)
	}

	users, err := db.Collection("users", &Schema{
		ValidateRelations: true,
		Relations: map[string]RelationSchema{
			"teamId": {TargetCollection: "teams"},
		},
	})
	if err != nil {
		t.Fatalf("Collection(users): %v", err)
	}

	if _, err := users.Insert(ctx, map[string]interface{}{"id": "u1", "teamId": "team1"}); err != nil {
		t.Fatalf("expected insert with a valid relation to succeed, got %v", err)
	}

	_, err = users.Insert(ctx, map[string]interface{}{"id": "u2", "teamId": "nonexistent"})
	if err == nil {
		t.Fatal("expected an error inserting a document with a dangling relation")
	}
	if _, ok := err.(*RelationError); !ok {
		t.Fatalf("expected *RelationError, got %T", err)
	}
}

func TestInsertRespectsCancelledContext(t *testing.T) {
	db := newTestDB(t)
	col, err := db.Collection("users", &Schema{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := col.Insert(ctx, map[string]interface{}{"name": "ada"}); err == nil {
		t.Fatal("expected Insert to report the cancelled context")
	}
}
