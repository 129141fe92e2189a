package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Kind
	}{
		{"null", nil, KindString},
		{"array", []any{1, 2}, KindArray},
		{"empty object", map[string]any{}, KindObject},
		{"true", true, KindBoolean},
		{"float", 3.14, KindNumber},
		{"int", 42, KindNumber},
		{"json number", json.Number("12"), KindNumber},
		{"text", "hello", KindString},
		{"typed array", []string{"a"}, KindArray},
		{"yaml map", map[any]any{"a": 1}, KindObject},
		{"bytes", []byte("raw"), KindString},
		{"nil pointer", (*int)(nil), KindString},
		{"value document", Document{"a": String("b")}, KindObject},
		{"value number", Number(1), KindNumber},
		{"delete sentinel", Delete, KindString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			if got != tt.want {
				t.Errorf("Classify(%#v) = %q, want %q", tt.input, got, tt.want)
			}
			if again := Classify(tt.input); again != got {
				t.Errorf("Classify not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestDefaultFor_RoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		if got := Classify(DefaultFor(k)); got != k {
			t.Errorf("Classify(DefaultFor(%q)) = %q", k, got)
		}
	}

	if got := DefaultFor(Kind("color")); !Equal(got, String("")) {
		t.Errorf("unknown kind default = %#v, want empty string", got)
	}
}

func TestValidateFieldName(t *testing.T) {
	known := []string{"logo", "menu"}
	tests := []struct {
		name     string
		input    string
		known    []string
		existing []string
		want     Validation
	}{
		{"empty is reported before grammar", "", nil, nil, Validation{Error: MsgEmptyName}},
		{"whitespace only", "   ", nil, nil, Validation{Error: MsgEmptyName}},
		{"valid", "myField", known, []string{"existingCustom"}, Validation{Valid: true}},
		{"dollar and underscore", "$_x1", nil, nil, Validation{Valid: true}},
		{"reserved", "logo", known, nil, Validation{Error: MsgReservedName}},
		{"duplicate", "existingCustom", nil, []string{"existingCustom"}, Validation{Error: MsgDuplicate}},
		{"starts with digit", "2bad", nil, nil, Validation{Error: MsgInvalidName}},
		{"contains dash", "my-field", nil, nil, Validation{Error: MsgInvalidName}},
		{"grammar before reserved", "lo go", []string{"lo go"}, nil, Validation{Error: MsgInvalidName}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateFieldName(tt.input, tt.known, tt.existing)
			if got != tt.want {
				t.Errorf("ValidateFieldName(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPartition_Complete(t *testing.T) {
	doc := Document{
		"logo":     String("/logo.png"),
		"menu":     Array{String("Home")},
		"tagline":  String("Grow"),
		"showCart": Bool(true),
		"extra":    Document{"a": Number(1)},
	}
	known := []string{"logo", "menu", "showCart", "button"}

	unknown := PartitionUnknown(doc, known)
	reserved := PartitionKnown(doc, known)

	if len(unknown)+len(reserved) != len(doc) {
		t.Fatalf("partitions cover %d keys, document has %d", len(unknown)+len(reserved), len(doc))
	}
	for k := range unknown {
		if _, dup := reserved[k]; dup {
			t.Errorf("key %q present in both partitions", k)
		}
	}
	merged := ApplyUpdate(reserved, Patch(unknown))
	if diff := cmp.Diff(doc, merged); diff != "" {
		t.Errorf("partitions do not reassemble the document (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Document{"tagline": String("Grow"), "extra": Document{"a": Number(1)}}, unknown); diff != "" {
		t.Errorf("unexpected unknown partition (-want +got):\n%s", diff)
	}
}

func TestApplyUpdate_PureAndDeletes(t *testing.T) {
	original := Document{"a": Number(1), "b": Number(2)}
	snapshot := original.Clone()

	got := ApplyUpdate(original, Patch{"b": Delete})

	if diff := cmp.Diff(Document{"a": Number(1)}, got); diff != "" {
		t.Errorf("ApplyUpdate mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot, original); diff != "" {
		t.Errorf("input document was mutated (-want +got):\n%s", diff)
	}

	got = ApplyUpdate(original, Patch{"c": String("x"), "a": Number(5)})
	want := Document{"a": Number(5), "b": Number(2), "c": String("x")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ApplyUpdate set mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff(t *testing.T) {
	old := Document{"a": Number(1), "b": String("x"), "c": Array{Bool(true)}}
	new := Document{"a": Number(1), "b": String("y"), "d": Bool(false)}

	patch := Diff(old, new)
	if len(patch) != 3 {
		t.Fatalf("expected 3 changes, got %d: %#v", len(patch), patch)
	}
	if !IsDelete(patch["c"]) {
		t.Errorf("expected c to be deleted, got %#v", patch["c"])
	}
	if diff := cmp.Diff(new, ApplyUpdate(old, patch)); diff != "" {
		t.Errorf("applying the diff does not reproduce the target (-want +got):\n%s", diff)
	}
	if len(Diff(new, new.Clone())) != 0 {
		t.Error("expected empty diff for equal documents")
	}
}

func TestSetPath(t *testing.T) {
	doc := Document{
		"faq": Array{
			Document{"question": String("Why?"), "answer": String("Because")},
			Document{"question": String("How?"), "answer": String("Carefully")},
		},
	}
	snapshot := doc.Clone()

	updated, err := SetPath(doc, []string{"faq", "1", "answer"}, String("Quickly"))
	if err != nil {
		t.Fatalf("SetPath failed: %v", err)
	}
	got, ok := Lookup(updated, []string{"faq", "1", "answer"})
	if !ok || !Equal(got, String("Quickly")) {
		t.Errorf("Lookup after SetPath = %#v, %v", got, ok)
	}
	if diff := cmp.Diff(snapshot, doc); diff != "" {
		t.Errorf("SetPath mutated its input (-want +got):\n%s", diff)
	}

	removed, err := SetPath(updated, []string{"faq", "0"}, Delete)
	if err != nil {
		t.Fatalf("SetPath delete failed: %v", err)
	}
	if n := len(removed["faq"].(Array)); n != 1 {
		t.Errorf("expected 1 faq item after delete, got %d", n)
	}

	if _, err := SetPath(doc, []string{"faq", "9", "answer"}, String("x")); !errors.Is(err, ErrPath) {
		t.Errorf("expected ErrPath for out of range index, got %v", err)
	}
}

func TestCoerce(t *testing.T) {
	if v, err := Coerce(KindNumber, "3.5"); err != nil || !Equal(v, Number(3.5)) {
		t.Errorf("Coerce number = %#v, %v", v, err)
	}
	if _, err := Coerce(KindNumber, "abc"); err == nil {
		t.Error("expected error for non numeric text")
	}
	if v, err := Coerce(KindBoolean, "true"); err != nil || !Equal(v, Bool(true)) {
		t.Errorf("Coerce boolean = %#v, %v", v, err)
	}
	if v, err := Coerce(KindArray, `["a", 1]`); err != nil || !Equal(v, Array{String("a"), Number(1)}) {
		t.Errorf("Coerce array = %#v, %v", v, err)
	}
	if _, err := Coerce(KindObject, `[1]`); err == nil {
		t.Error("expected kind mismatch error")
	}
}

func TestRawEditor_KeepsLastGoodDocument(t *testing.T) {
	ed := NewRawEditor(Document{"title": String("Hello")})

	if err := ed.SetText(`{"title": "Hel`); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if ed.Valid() {
		t.Error("editor should report invalid text")
	}
	if diff := cmp.Diff(Document{"title": String("Hello")}, ed.Document()); diff != "" {
		t.Errorf("last good document lost (-want +got):\n%s", diff)
	}

	if err := ed.SetText(`[1, 2]`); !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse for non-object root, got %v", err)
	}

	if err := ed.SetText(`{"title": "Goodbye", "count": 3}`); err != nil {
		t.Fatalf("SetText valid: %v", err)
	}
	want := Document{"title": String("Goodbye"), "count": Number(3)}
	if diff := cmp.Diff(want, ed.Document()); diff != "" {
		t.Errorf("document not updated (-want +got):\n%s", diff)
	}
}

func TestPatch_UnmarshalNullDeletes(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"a": null, "b": {"c": true}}`), &p); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	if !IsDelete(p["a"]) {
		t.Errorf("expected a to be Delete, got %#v", p["a"])
	}
	if !Equal(p["b"], Document{"c": Bool(true)}) {
		t.Errorf("unexpected b: %#v", p["b"])
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"showCart":  "Show cart",
		"logo":      "Logo",
		"cta_label": "Cta label",
	}
	for in, want := range tests {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{String("Olá"), "Olá"},
		{Number(3), "3"},
		{Number(0.25), "0.25"},
		{Bool(true), "true"},
		{Array{Bool(true), String("x")}, `[true,"x"]`},
		{Document{"b": Number(1), "a": Array{}}, `{"a":[],"b":1}`},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
