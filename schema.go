package shardodb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/augustgrove/shardodb/internal/docpath"
)

// FieldType is the declared scalar shape of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
	TypeDate    FieldType = "date"
)

// FieldSchema declares one field's type and whether it must be present.
type FieldSchema struct {
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// RelationSchema declares that a local field references a document in
// another collection.
type RelationSchema struct {
	TargetCollection string `json:"targetCollection"`
	// TargetField defaults to "id" when empty.
	TargetField string `json:"targetField,omitempty"`
}

func (r RelationSchema) targetField() string {
	if r.TargetField == "" {
		return "id"
	}
	return r.TargetField
}

// Schema describes a collection's field types, relations, and named
// indices. Unlisted fields are permitted and carry no constraints.
type Schema struct {
	Fields            map[string]FieldSchema    `json:"fields,omitempty"`
	Relations         map[string]RelationSchema `json:"relations,omitempty"`
	ValidateRelations bool                      `json:"validateRelations,omitempty"`
	// Indices maps an index name to its ordered field list. A single-field
	// index is simply a list of length 1.
	Indices map[string][]string `json:"indices,omitempty"`
}

// compiled holds the JSON Schema document compiled from Fields, used as a
// secondary structural validation pass alongside the direct type checks in
// Schema.validate and checkType below. Wiring an actual JSON Schema
// validator here, rather than hand-rolling every type rule twice, is the
// whole reason this module depends on gojsonschema.
type compiledSchema struct {
	schema *gojsonschema.Schema
}

func compileSchema(s Schema) (*compiledSchema, error) {
	if len(s.Fields) == 0 {
		return &compiledSchema{}, nil
	}

	properties := make(map[string]interface{}, len(s.Fields))
	var required []string
	for name, f := range s.Fields {
		properties[name] = jsonSchemaType(f.Type)
		if f.Required {
			required = append(required, name)
		}
	}

	doc := map[string]interface{}{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("shardodb: marshal generated json schema: %w", err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("shardodb: compile json schema: %w", err)
	}
	return &compiledSchema{schema: compiled}, nil
}

func jsonSchemaType(t FieldType) map[string]interface{} {
	switch t {
	case TypeString, TypeDate:
		return map[string]interface{}{"type": "string"}
	case TypeNumber:
		return map[string]interface{}{"type": "number"}
	case TypeBoolean:
		return map[string]interface{}{"type": "boolean"}
	case TypeArray:
		return map[string]interface{}{"type": "array"}
	case TypeObject:
		return map[string]interface{}{"type": "object"}
	default:
		return map[string]interface{}{}
	}
}

// validate runs both the generated JSON Schema (structural: required
// fields, JSON-level type) and the direct type checks below (which
// additionally understand the "date" field type, parsed as RFC3339,
// something JSON Schema's own vocabulary can't express without a format
// extension the library doesn't enforce by default).
func (s Schema) validate(doc map[string]interface{}, compiled *compiledSchema) error {
	for name, f := range s.Fields {
		v, present := docpath.Get(doc, name)
		if !present {
			if f.Required {
				return &ValidationError{Field: name, Reason: "required field is missing"}
			}
			continue
		}
		if err := checkType(name, f.Type, v); err != nil {
			return err
		}
	}

	if compiled != nil && compiled.schema != nil {
		result, err := compiled.schema.Validate(gojsonschema.NewGoLoader(doc))
		if err != nil {
			return fmt.Errorf("shardodb: schema validation error: %w", err)
		}
		if !result.Valid() {
			descs := result.Errors()
			reason := "document does not conform to schema"
			if len(descs) > 0 {
				reason = descs[0].String()
			}
			return &ValidationError{Field: descs0Field(descs), Reason: reason}
		}
	}
	return nil
}

func descs0Field(descs []gojsonschema.ResultError) string {
	if len(descs) == 0 {
		return ""
	}
	if f := descs[0].Field(); f != "" {
		return f
	}
	return "(document)"
}

func checkType(field string, t FieldType, v interface{}) error {
	if v == nil {
		return nil
	}
	switch t {
	case TypeString:
		if _, ok := v.(string); !ok {
			return &ValidationError{Field: field, Reason: "expected string"}
		}
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return &ValidationError{Field: field, Reason: "expected number"}
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return &ValidationError{Field: field, Reason: "expected boolean"}
		}
	case TypeArray:
		if _, ok := v.([]interface{}); !ok {
			return &ValidationError{Field: field, Reason: "expected array"}
		}
	case TypeObject:
		if _, ok := v.(map[string]interface{}); !ok {
			return &ValidationError{Field: field, Reason: "expected object"}
		}
	case TypeDate:
		s, ok := v.(string)
		if !ok {
			return &ValidationError{Field: field, Reason: "expected date string"}
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return &ValidationError{Field: field, Reason: "expected RFC3339 date string"}
		}
	}
	return nil
}
