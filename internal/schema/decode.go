package schema

import "fmt"

// Result maps field names to their extracted values: scalars, arrays, or
// nested objects, matching the shapes the document declares.
type Result map[string]any

// wrapperKeys names the typed value key the service uses when it wraps a
// field value in an envelope object instead of sending the bare value.
var wrapperKeys = map[FieldType]string{
	TypeString:  "valueString",
	TypeNumber:  "valueNumber",
	TypeBoolean: "valueBoolean",
	TypeArray:   "valueArray",
	TypeObject:  "valueObject",
}

// DecodeResult projects a raw result payload onto the document's field
// shapes. Fields absent from the payload are omitted from the result rather
// than defaulted. The shape rules mirror normalization, so whatever was
// submitted can be read back symmetrically.
func DecodeResult(doc Document, payload map[string]any) (Result, error) {
	out := make(Result, len(doc.Fields))
	for name, field := range doc.Fields {
		raw, ok := payload[name]
		if !ok {
			continue
		}
		value, err := decodeValue(doc, field, raw, "fields."+name, 0)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func decodeValue(doc Document, field Field, raw any, path string, depth int) (any, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("decode %s: nesting exceeds limit", path)
	}
	if field.Ref != "" {
		def, ok := doc.Definitions[definitionKey(field.Ref)]
		if !ok {
			return nil, fmt.Errorf("decode %s: %s", path, unresolvedDefinition(path, field.Ref))
		}
		field = def
	}

	raw = unwrap(field.Type, raw)
	if raw == nil {
		return nil, nil
	}

	switch field.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("decode %s: expected string, got %T", path, raw)
		}
		return s, nil
	case TypeNumber:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("decode %s: expected number, got %T", path, raw)
		}
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("decode %s: expected boolean, got %T", path, raw)
		}
		return b, nil
	case TypeArray:
		elements, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("decode %s: expected array, got %T", path, raw)
		}
		if field.Items == nil {
			return elements, nil
		}
		out := make([]any, 0, len(elements))
		for i, element := range elements {
			value, err := decodeValue(doc, *field.Items, element, fmt.Sprintf("%s[%d]", path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	case TypeObject:
		body, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode %s: expected object, got %T", path, raw)
		}
		out := make(map[string]any, len(field.Properties))
		for name, prop := range field.Properties {
			rawProp, ok := body[name]
			if !ok {
				continue
			}
			value, err := decodeValue(doc, prop, rawProp, path+"."+name, depth+1)
			if err != nil {
				return nil, err
			}
			out[name] = value
		}
		return out, nil
	default:
		return raw, nil
	}
}

// unwrap lifts a bare value out of a typed wrapper envelope if the payload
// used one; bare values pass through untouched.
func unwrap(t FieldType, raw any) any {
	body, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if t == TypeObject {
		// An object value is itself a map; only unwrap when the envelope
		// carries the typed key.
		if inner, ok := body[wrapperKeys[TypeObject]]; ok {
			return inner
		}
		if inner, ok := body["value"]; ok {
			return inner
		}
		return raw
	}
	if key, ok := wrapperKeys[t]; ok {
		if inner, present := body[key]; present {
			return inner
		}
	}
	if inner, ok := body["value"]; ok {
		return inner
	}
	return raw
}
