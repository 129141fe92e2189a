package fs

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aretw0/sparti/pkg/schema"
)

func TestSerializers_RoundTrip(t *testing.T) {
	rec := record{
		Flavor: "header",
		Fields: schema.Document{
			"title":    schema.String("Acme"),
			"showCart": schema.Bool(true),
			"count":    schema.Number(42),
			"menu": schema.Array{
				schema.Document{"label": schema.String("Home"), "href": schema.String("/")},
			},
			"logo": schema.Document{"src": schema.String("/logo.png")},
		},
	}

	for ext, s := range DefaultSerializers(true) {
		t.Run(ext, func(t *testing.T) {
			data, err := s.Serialize(rec)
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}

			parsed, err := s.Parse(strings.NewReader(string(data)))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			if parsed.Flavor != rec.Flavor {
				t.Errorf("flavor = %q, want %q", parsed.Flavor, rec.Flavor)
			}
			if diff := cmp.Diff(rec.Fields, parsed.Fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializers_Envelope(t *testing.T) {
	tests := []struct {
		name    string
		s       Serializer
		input   string
		want    schema.Document
		flavor  string
		wantErr bool
	}{
		{
			name:   "json plain document",
			s:      NewJSONSerializer(false),
			input:  `{"title": "Hi", "flavor": "hero"}`,
			want:   schema.Document{"title": schema.String("Hi")},
			flavor: "hero",
		},
		{
			name:    "json plain document strict",
			s:       NewJSONSerializer(true),
			input:   `{"title": "Hi"}`,
			wantErr: true,
		},
		{
			name:    "json extra key strict",
			s:       NewJSONSerializer(true),
			input:   `{"fields": {}, "extra": 1}`,
			wantErr: true,
		},
		{
			name:    "json fields not an object",
			s:       NewJSONSerializer(false),
			input:   `{"fields": [1, 2]}`,
			wantErr: true,
		},
		{
			name:  "json empty file",
			s:     NewJSONSerializer(true),
			input: "  \n",
			want:  schema.Document{},
		},
		{
			name:    "json invalid",
			s:       NewJSONSerializer(false),
			input:   `{"fields": `,
			wantErr: true,
		},
		{
			name:   "yaml envelope",
			s:      NewYAMLSerializer(true),
			input:  "flavor: faq\nfields:\n  items:\n    - q: Why?\n      a: Because.\n",
			flavor: "faq",
			want: schema.Document{"items": schema.Array{
				schema.Document{"q": schema.String("Why?"), "a": schema.String("Because.")},
			}},
		},
		{
			name:  "yaml plain document",
			s:     NewYAMLSerializer(false),
			input: "title: Hi\nvisible: true\n",
			want:  schema.Document{"title": schema.String("Hi"), "visible": schema.Bool(true)},
		},
		{
			name:    "yaml invalid",
			s:       NewYAMLSerializer(false),
			input:   "title: [unclosed",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := tc.s.Parse(strings.NewReader(tc.input))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", rec)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if rec.Flavor != tc.flavor {
				t.Errorf("flavor = %q, want %q", rec.Flavor, tc.flavor)
			}
			if diff := cmp.Diff(tc.want, rec.Fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtensions_Order(t *testing.T) {
	got := extensions(DefaultSerializers(false))
	want := []string{".json", ".yaml", ".yml"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}
}
