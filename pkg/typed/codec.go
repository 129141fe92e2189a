package typed

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/aretw0/sparti/pkg/schema"
)

// Encode converts a struct into schema fields through its JSON form.
func Encode[T any](v T) (schema.Document, error) {
	data, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	fields, err := schema.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("typed data must encode to a JSON object: %w", err)
	}
	return fields, nil
}

// Decode fills a T from schema fields through their JSON form.
func Decode[T any](fields schema.Document) (T, error) {
	var out T
	data, err := gojson.Marshal(fields.ToMap())
	if err != nil {
		return out, fmt.Errorf("fields marshal failed: %w", err)
	}
	if err := gojson.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshal to target type failed: %w", err)
	}
	return out, nil
}
