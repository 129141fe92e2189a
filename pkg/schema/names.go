package schema

import (
	"regexp"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"
)

// Messages reported by ValidateFieldName.
const (
	MsgEmptyName    = "Field name cannot be empty"
	MsgInvalidName  = "Field name must start with a letter, underscore, or dollar sign and contain only letters, numbers, underscores, or dollar signs"
	MsgReservedName = "Field name conflicts with a reserved field name"
	MsgDuplicate    = "Field name already exists"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validation is the outcome of a field name check. Error is empty when Valid.
type Validation struct {
	Valid bool
	Error string
}

// ValidateFieldName checks a proposed custom field name. Checks run in a
// fixed order and stop at the first failure: empty, identifier grammar,
// reserved, duplicate.
func ValidateFieldName(name string, known, existing []string) Validation {
	if strings.TrimSpace(name) == "" {
		return Validation{Error: MsgEmptyName}
	}
	if !identifierPattern.MatchString(name) {
		return Validation{Error: MsgInvalidName}
	}
	if slices.Contains(known, name) {
		return Validation{Error: MsgReservedName}
	}
	if slices.Contains(existing, name) {
		return Validation{Error: MsgDuplicate}
	}
	return Validation{Valid: true}
}

// PartitionUnknown returns the entries of doc whose keys are not in known.
// Values are shared, not copied.
func PartitionUnknown(doc Document, known []string) Document {
	out := make(Document)
	for k, v := range doc {
		if !slices.Contains(known, k) {
			out[k] = v
		}
	}
	return out
}

// PartitionKnown is the complement of PartitionUnknown.
func PartitionKnown(doc Document, known []string) Document {
	out := make(Document)
	for k, v := range doc {
		if slices.Contains(known, k) {
			out[k] = v
		}
	}
	return out
}

// Label turns a field key into a human readable label ("showCart" -> "Show cart").
func Label(key string) string {
	words := strcase.ToDelimited(key, ' ')
	if words == "" {
		return key
	}
	return strings.ToUpper(words[:1]) + words[1:]
}
