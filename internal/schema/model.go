package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// FieldType enumerates the value types a field can declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// GenerationMethod tells the analysis service how to produce a field value.
type GenerationMethod string

const (
	MethodExtract  GenerationMethod = "extract"
	MethodGenerate GenerationMethod = "generate"
	MethodClassify GenerationMethod = "classify"
)

// Field is one extraction target. Array fields carry Items, object fields
// carry Properties. A field may instead reference a named definition via Ref.
type Field struct {
	Type        FieldType        `json:"type,omitempty"`
	Method      GenerationMethod `json:"generationMethod,omitempty"`
	Description string           `json:"description,omitempty"`
	Items       *Field           `json:"items,omitempty"`
	Properties  map[string]Field `json:"properties,omitempty"`
	Ref         string           `json:"$ref,omitempty"`
}

// Document is the canonical schema shape submitted to the analysis service.
// All accepted input shapes normalize into this one.
type Document struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Fields      map[string]Field `json:"fields"`
	Definitions map[string]Field `json:"definitions,omitempty"`
}

// Fingerprint returns a stable content hash of the canonical document. Two
// logically identical documents hash equal regardless of input shape, which
// is what analyzer reuse keys on.
func (d Document) Fingerprint() string {
	// json.Marshal sorts map keys, so the encoding is deterministic.
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FieldNames returns the field names in no particular order.
func (d Document) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	return names
}

func validFieldType(t FieldType) bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

func validMethod(m GenerationMethod) bool {
	switch m {
	case MethodExtract, MethodGenerate, MethodClassify:
		return true
	}
	return false
}

// definitionKey strips a JSON-pointer style prefix from a reference so both
// "#/definitions/Address" and "Address" resolve the same definition.
func definitionKey(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "#/definitions/")
	ref = strings.TrimPrefix(ref, "#/$defs/")
	return ref
}
