package shardodb

import (
	"encoding/json"
	"reflect"
)

// schemaEqual reports whether two schema JSON documents are equivalent for
// the purpose of reopen-time override checks. Key order differences are
// ignored by unmarshaling and comparing with reflect.DeepEqual.
func schemaEqual(a, b string) (bool, error) {
	if a == b {
		return true, nil
	}
	var va, vb interface{}
	if err := json.Unmarshal([]byte(a), &va); err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(b), &vb); err != nil {
		return false, err
	}
	return reflect.DeepEqual(va, vb), nil
}
