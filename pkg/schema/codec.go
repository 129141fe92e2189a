package schema

import (
	"bytes"
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrParse marks malformed raw document text.
var ErrParse = errors.New("invalid document")

func parseJSONValue(data []byte) (Value, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after value", ErrParse)
	}
	return FromAny(raw), nil
}

// ParseJSON decodes a JSON object into a Document.
func ParseJSON(data []byte) (Document, error) {
	v, err := parseJSONValue(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(Document)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value must be an object, got %s", ErrParse, v.Kind())
	}
	return doc, nil
}

// UnmarshalJSON decodes an object, keeping numbers exact until conversion.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// MarshalYAML encodes the document through its plain map form.
func (d Document) MarshalYAML() (any, error) {
	return d.ToMap(), nil
}

// UnmarshalYAML decodes a YAML mapping into the document.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*d = FromMap(raw)
	return nil
}

// UnmarshalJSON decodes a merge patch: null values become Delete.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]gojson.RawMessage
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	out := make(Patch, len(raw))
	for k, msg := range raw {
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			out[k] = Delete
			continue
		}
		v, err := parseJSONValue(msg)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = v
	}
	*p = out
	return nil
}

// RawEditor holds the text of a raw JSON document editor. Invalid text is
// reported but never replaces the last valid document.
type RawEditor struct {
	text string
	doc  Document
	err  error
}

// NewRawEditor seeds the editor with a document rendered as indented JSON.
func NewRawEditor(doc Document) *RawEditor {
	if doc == nil {
		doc = Document{}
	}
	text, err := gojson.MarshalIndent(doc, "", "  ")
	if err != nil {
		text = []byte("{}")
	}
	return &RawEditor{text: string(text), doc: doc}
}

// SetText replaces the editor text. It returns a parse error when the text is
// not a JSON object; the last valid document is kept in that case.
func (e *RawEditor) SetText(text string) error {
	e.text = text
	doc, err := ParseJSON([]byte(text))
	if err != nil {
		e.err = err
		return err
	}
	e.doc = doc
	e.err = nil
	return nil
}

// Text returns the current, possibly invalid, text.
func (e *RawEditor) Text() string { return e.text }

// Document returns the last valid document.
func (e *RawEditor) Document() Document { return e.doc }

// Err returns the parse error for the current text, if any.
func (e *RawEditor) Err() error { return e.err }

// Valid reports whether the current text parsed.
func (e *RawEditor) Valid() bool { return e.err == nil }
