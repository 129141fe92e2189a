package fs

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sparti/pkg/schema"
)

// Keys of the on-disk envelope.
const (
	keyFlavor = "flavor"
	keyFields = "fields"
)

// record is the stored form of a document. Tenant and ID come from the path.
type record struct {
	Flavor string
	Fields schema.Document
}

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads an envelope from r.
	Parse(r io.Reader) (*record, error)
	// Serialize converts a record to bytes.
	Serialize(rec record) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers, keyed by
// extension.
func DefaultSerializers(strict bool) map[string]Serializer {
	return map[string]Serializer{
		".json": NewJSONSerializer(strict),
		".yaml": NewYAMLSerializer(strict),
		".yml":  NewYAMLSerializer(strict),
	}
}

// extensions lists the readable extensions in lookup order.
func extensions(serializers map[string]Serializer) []string {
	preferred := []string{".json", ".yaml", ".yml"}
	out := make([]string, 0, len(serializers))
	for _, ext := range preferred {
		if _, ok := serializers[ext]; ok {
			out = append(out, ext)
		}
	}
	var extra []string
	for ext := range serializers {
		known := false
		for _, p := range preferred {
			if p == ext {
				known = true
			}
		}
		if !known {
			extra = append(extra, ext)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// unwrap splits a decoded payload into flavor and fields. In strict mode the
// payload must be an envelope; otherwise a plain object is read as fields.
func unwrap(payload schema.Document, strict bool) (*record, error) {
	rawFields, hasFields := payload[keyFields]
	flavor, _ := payload[keyFlavor].(schema.String)

	if !hasFields {
		if strict {
			return nil, fmt.Errorf("missing %q object", keyFields)
		}
		fields := payload.Clone()
		delete(fields, keyFlavor)
		return &record{Flavor: string(flavor), Fields: fields}, nil
	}

	fields, ok := rawFields.(schema.Document)
	if !ok {
		return nil, fmt.Errorf("%q must be an object, got %s", keyFields, schema.Classify(rawFields))
	}
	if strict {
		for k := range payload {
			if k != keyFields && k != keyFlavor {
				return nil, fmt.Errorf("unexpected top-level key %q", k)
			}
		}
	}
	return &record{Flavor: string(flavor), Fields: fields}, nil
}

func wrap(rec record) map[string]any {
	fields := rec.Fields
	if fields == nil {
		fields = schema.Document{}
	}
	payload := map[string]any{keyFields: fields.ToMap()}
	if rec.Flavor != "" {
		payload[keyFlavor] = rec.Flavor
	}
	return payload
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON files.
type JSONSerializer struct {
	// Strict rejects files that are not a {flavor, fields} envelope.
	Strict bool
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer(strict bool) *JSONSerializer {
	return &JSONSerializer{Strict: strict}
}

func (s *JSONSerializer) Parse(r io.Reader) (*record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &record{Fields: schema.Document{}}, nil
	}
	payload, err := schema.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return unwrap(payload, s.Strict)
}

func (s *JSONSerializer) Serialize(rec record) ([]byte, error) {
	data, err := gojson.MarshalIndent(wrap(rec), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// --- YAML Serializer ---

// YAMLSerializer handles reading and writing YAML files.
type YAMLSerializer struct {
	// Strict rejects files that are not a {flavor, fields} envelope.
	Strict bool
}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer(strict bool) *YAMLSerializer {
	return &YAMLSerializer{Strict: strict}
}

func (s *YAMLSerializer) Parse(r io.Reader) (*record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return unwrap(schema.FromMap(payload), s.Strict)
}

func (s *YAMLSerializer) Serialize(rec record) ([]byte, error) {
	return yaml.Marshal(wrap(rec))
}
