package docpath

import "testing"

func TestGetTopLevel(t *testing.T) {
	doc := map[string]interface{}{"name": "ada"}
	v, ok := Get(doc, "name")
	if !ok || v != "ada" {
		t.Fatalf("Get(name) = %v, %v", v, ok)
	}
}

func TestGetNested(t *testing.T) {
	doc := map[string]interface{}{
		"address": map[string]interface{}{
			"city": "london",
		},
	}
	v, ok := Get(doc, "address.city")
	if !ok || v != "london" {
		t.Fatalf("Get(address.city) = %v, %v", v, ok)
	}
}

func TestGetMissing(t *testing.T) {
	doc := map[string]interface{}{"name": "ada"}
	if _, ok := Get(doc, "age"); ok {
		t.Error("expected missing field to report not-ok")
	}
	if _, ok := Get(doc, "address.city"); ok {
		t.Error("expected missing nested path to report not-ok")
	}
}

func TestGetThroughNonMap(t *testing.T) {
	doc := map[string]interface{}{"name": "ada"}
	if _, ok := Get(doc, "name.first"); ok {
		t.Error("descending into a scalar should report not-ok")
	}
}

func TestGetNullValue(t *testing.T) {
	doc := map[string]interface{}{"deletedAt": nil}
	if _, ok := Get(doc, "deletedAt"); ok {
		t.Error("a present but null field should report not-ok")
	}
}
