package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func mustNormalize(t *testing.T, raw any) Document {
	t.Helper()
	doc, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return doc
}

func TestNormalizeMapShape(t *testing.T) {
	doc := mustNormalize(t, map[string]any{
		"name":        "  invoice  ",
		"description": "invoice extraction",
		"fields": map[string]any{
			"vendor": map[string]any{
				"type":             "string",
				"generationMethod": "extract",
				"description":      " vendor name ",
			},
			"total": map[string]any{
				"type":   "number",
				"method": "extract",
			},
		},
	})

	if doc.Name != "invoice" {
		t.Fatalf("name = %q, want trimmed %q", doc.Name, "invoice")
	}
	if len(doc.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(doc.Fields))
	}
	vendor := doc.Fields["vendor"]
	if vendor.Description != "vendor name" {
		t.Fatalf("description = %q, want trimmed", vendor.Description)
	}
	total := doc.Fields["total"]
	if total.Method != MethodExtract {
		t.Fatalf("legacy method alias not renamed, got %q", total.Method)
	}
}

func TestNormalizeArrayShapeEquivalence(t *testing.T) {
	asMap := mustNormalize(t, map[string]any{
		"name": "invoice",
		"fields": map[string]any{
			"vendor": map[string]any{"type": "string", "generationMethod": "extract"},
			"total":  map[string]any{"type": "number", "generationMethod": "extract"},
		},
	})
	asArray := mustNormalize(t, map[string]any{
		"name": "invoice",
		"fields": []any{
			map[string]any{"name": "vendor", "type": "string", "generationMethod": "extract"},
			map[string]any{"name": "total", "type": "number", "generationMethod": "extract"},
		},
	})

	if !reflect.DeepEqual(asMap, asArray) {
		t.Fatalf("map and array shapes normalized differently:\n%+v\n%+v", asMap, asArray)
	}
}

func TestNormalizeEnvelopeShape(t *testing.T) {
	doc := mustNormalize(t, map[string]any{
		"invoiceAnalyzer": map[string]any{
			"description": "wrapped",
			"fields": map[string]any{
				"vendor": map[string]any{"type": "string", "generationMethod": "extract"},
			},
		},
	})
	if doc.Name != "invoiceAnalyzer" {
		t.Fatalf("envelope key not used as name, got %q", doc.Name)
	}
	if doc.Description != "wrapped" {
		t.Fatalf("description = %q", doc.Description)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first := mustNormalize(t, map[string]any{
		"name": "receipt",
		"fields": []any{
			map[string]any{"name": "merchant", "type": "string", "method": "extract"},
			map[string]any{
				"name": "items", "type": "array", "generationMethod": "extract",
				"items": map[string]any{"type": "string", "generationMethod": "extract"},
			},
		},
		"definitions": map[string]any{
			"Money": map[string]any{"type": "number", "generationMethod": "extract"},
		},
	})

	second := mustNormalize(t, first)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalize not idempotent:\n%+v\n%+v", first, second)
	}
	if first.Fingerprint() != second.Fingerprint() {
		t.Fatalf("fingerprints differ across idempotent normalization")
	}
}

func TestNormalizeSynthesizesFieldNames(t *testing.T) {
	doc := mustNormalize(t, map[string]any{
		"name": "doc",
		"fields": []any{
			map[string]any{"type": "string", "generationMethod": "extract"},
			map[string]any{"name": "  ", "type": "number", "generationMethod": "extract"},
		},
	})
	if _, ok := doc.Fields["field_0"]; !ok {
		t.Fatalf("missing synthesized field_0, fields: %v", doc.FieldNames())
	}
	if _, ok := doc.Fields["field_1"]; !ok {
		t.Fatalf("missing synthesized field_1, fields: %v", doc.FieldNames())
	}
}

func TestNormalizeMissingGenerationMethod(t *testing.T) {
	_, err := Normalize(map[string]any{
		"name": "doc",
		"fields": map[string]any{
			"vendor": map[string]any{"type": "string"},
		},
	})
	assertValidationCode(t, err, CodeMissingGenerationMethod)
}

func TestNormalizeUnrecognizedMethod(t *testing.T) {
	_, err := Normalize(map[string]any{
		"name": "doc",
		"fields": map[string]any{
			"vendor": map[string]any{"type": "string", "generationMethod": "hallucinate"},
		},
	})
	assertValidationCode(t, err, CodeMissingGenerationMethod)
}

func TestNormalizeUnresolvedDefinition(t *testing.T) {
	_, err := Normalize(map[string]any{
		"name": "doc",
		"fields": map[string]any{
			"address": map[string]any{"$ref": "#/definitions/Address"},
		},
		"definitions": map[string]any{
			"Money": map[string]any{"type": "number", "generationMethod": "extract"},
		},
	})
	assertValidationCode(t, err, CodeUnresolvedDefinition)
}

func TestNormalizeResolvedDefinition(t *testing.T) {
	doc := mustNormalize(t, map[string]any{
		"name": "doc",
		"fields": map[string]any{
			"address": map[string]any{"$ref": "#/definitions/Address"},
		},
		"definitions": map[string]any{
			"Address": map[string]any{
				"type": "object", "generationMethod": "extract",
				"properties": map[string]any{
					"city": map[string]any{"type": "string", "generationMethod": "extract"},
				},
			},
		},
	})
	if doc.Fields["address"].Ref != "#/definitions/Address" {
		t.Fatalf("reference not preserved: %+v", doc.Fields["address"])
	}
}

func TestNormalizeRejectsNonObjectShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  any
	}{
		{"scalar root", 42},
		{"fields holds scalar", map[string]any{"name": "x", "fields": "nope"}},
		{"array element scalar", map[string]any{"name": "x", "fields": []any{"nope"}}},
		{"unknown field type", map[string]any{"name": "x", "fields": map[string]any{
			"f": map[string]any{"type": "blob", "generationMethod": "extract"},
		}}},
		{"array without items", map[string]any{"name": "x", "fields": map[string]any{
			"f": map[string]any{"type": "array", "generationMethod": "extract"},
		}}},
		{"empty fields", map[string]any{"name": "x", "fields": map[string]any{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw)
			assertValidationCode(t, err, CodeNonSerializableSchema)
		})
	}
}

func TestNormalizeRejectsCyclicInput(t *testing.T) {
	inner := map[string]any{"type": "object", "generationMethod": "extract"}
	inner["properties"] = map[string]any{"self": inner}
	_, err := Normalize(map[string]any{
		"name":   "doc",
		"fields": map[string]any{"loop": inner},
	})
	assertValidationCode(t, err, CodeNonSerializableSchema)
}

func TestNormalizeJSONRoundTrip(t *testing.T) {
	raw := []byte(`{
		"name": "contract",
		"fields": {
			"parties": {
				"type": "array",
				"method": "extract",
				"items": {"type": "string", "method": "extract"}
			}
		}
	}`)
	doc, err := NormalizeJSON(raw)
	if err != nil {
		t.Fatalf("normalize json: %v", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := NormalizeJSON(data)
	if err != nil {
		t.Fatalf("re-normalize: %v", err)
	}
	if !reflect.DeepEqual(doc, again) {
		t.Fatalf("round trip changed document")
	}
	if again.Fields["parties"].Items.Method != MethodExtract {
		t.Fatalf("nested alias not renamed: %+v", again.Fields["parties"].Items)
	}
}

func assertValidationCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %T: %v", err, err)
	}
	if verr.Code != code {
		t.Fatalf("code = %s, want %s (err: %v)", verr.Code, code, err)
	}
}
