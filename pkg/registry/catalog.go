package registry

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/sparti/pkg/schema"
)

// Widget identifiers used by editors to pick an input for a field.
const (
	WidgetText     = "text"
	WidgetRichText = "richtext"
	WidgetImage    = "image"
	WidgetNumber   = "number"
	WidgetToggle   = "toggle"
	WidgetList     = "list"
	WidgetGroup    = "group"
)

// Field describes a reserved field of a component.
type Field struct {
	Name   string      `yaml:"name"`
	Kind   schema.Kind `yaml:"kind"`
	Widget string      `yaml:"widget,omitempty"`
}

// Component is a page section type. Its name doubles as the document flavor.
type Component struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Fields      []Field         `yaml:"fields"`
	Defaults    schema.Document `yaml:"defaults,omitempty"`
}

// Catalog is a read-mostly lookup of components. Construct one and pass it to
// whatever needs it; there is no package-level instance.
type Catalog struct {
	mu         sync.RWMutex
	components map[string]Component
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{components: make(map[string]Component)}
}

// NewDefault returns a catalog with the built-in landing page sections.
func NewDefault() *Catalog {
	c := New()
	for _, comp := range builtins() {
		c.MustRegister(comp)
	}
	return c
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a component.
func (c *Catalog) Register(comp Component) error {
	name := normalize(comp.Name)
	if name == "" {
		return fmt.Errorf("registry: component name is required")
	}
	seen := make(map[string]bool, len(comp.Fields))
	fields := make([]Field, 0, len(comp.Fields))
	for _, f := range comp.Fields {
		if f.Name == "" {
			return fmt.Errorf("registry: component %q has a field without a name", name)
		}
		if seen[f.Name] {
			return fmt.Errorf("registry: component %q declares %q twice", name, f.Name)
		}
		seen[f.Name] = true
		if _, ok := schema.ParseKind(string(f.Kind)); !ok {
			f.Kind = schema.KindString
		}
		if f.Widget == "" {
			f.Widget = WidgetFor(f.Kind)
		}
		fields = append(fields, f)
	}
	comp.Name = name
	comp.Fields = fields
	comp.Defaults = comp.Defaults.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = comp
	return nil
}

// MustRegister mirrors Register but panics on error.
func (c *Catalog) MustRegister(comp Component) {
	if err := c.Register(comp); err != nil {
		panic(err)
	}
}

// Lookup returns a component by name.
func (c *Catalog) Lookup(name string) (Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	comp, ok := c.components[normalize(name)]
	return comp, ok
}

// List returns every component sorted by name.
func (c *Catalog) List() []Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Component, 0, len(c.components))
	for _, comp := range c.components {
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// KnownFields returns the reserved field names of a flavor, in declaration
// order. Unknown flavors have none.
func (c *Catalog) KnownFields(flavor string) []string {
	comp, ok := c.Lookup(flavor)
	if !ok {
		return nil
	}
	names := make([]string, len(comp.Fields))
	for i, f := range comp.Fields {
		names[i] = f.Name
	}
	return names
}

// Widget returns the widget of a reserved field, or "" when the field is not
// reserved for the flavor.
func (c *Catalog) Widget(flavor, field string) string {
	comp, ok := c.Lookup(flavor)
	if !ok {
		return ""
	}
	for _, f := range comp.Fields {
		if f.Name == field {
			return f.Widget
		}
	}
	return ""
}

// Instantiate builds a fresh document for a flavor: declared defaults first,
// then the empty value of every remaining reserved field.
func (c *Catalog) Instantiate(flavor string) (schema.Document, error) {
	comp, ok := c.Lookup(flavor)
	if !ok {
		return nil, fmt.Errorf("registry: unknown component %q", flavor)
	}
	doc := comp.Defaults.Clone()
	if doc == nil {
		doc = schema.Document{}
	}
	for _, f := range comp.Fields {
		if _, ok := doc[f.Name]; !ok {
			doc[f.Name] = schema.DefaultFor(f.Kind)
		}
	}
	return doc, nil
}

// Clone returns an independent copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := New()
	for name, comp := range c.components {
		comp.Fields = append([]Field(nil), comp.Fields...)
		comp.Defaults = comp.Defaults.Clone()
		out.components[name] = comp
	}
	return out
}

// WidgetFor picks the generic widget for a kind.
func WidgetFor(kind schema.Kind) string {
	switch kind {
	case schema.KindNumber:
		return WidgetNumber
	case schema.KindBoolean:
		return WidgetToggle
	case schema.KindArray:
		return WidgetList
	case schema.KindObject:
		return WidgetGroup
	}
	return WidgetText
}

type catalogFile struct {
	Components []Component `yaml:"components"`
}

// Load registers the components declared in a YAML catalog file into c,
// replacing built-ins with the same name.
func (c *Catalog) Load(r io.Reader) error {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("registry: failed to parse catalog: %w", err)
	}
	for _, comp := range file.Components {
		if err := c.Register(comp); err != nil {
			return err
		}
	}
	return nil
}
