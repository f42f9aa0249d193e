package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxNesting bounds recursive field definitions. Decoded JSON cannot cycle,
// but callers handing us in-memory maps can, and the depth guard turns that
// into a validation error instead of a stack overflow.
const maxNesting = 32

// generationMethodAliases maps legacy property names, oldest first, onto the
// canonical generationMethod key. All renames happen here and nowhere else.
var generationMethodAliases = []string{"method", "generation_method"}

// Normalize converts any accepted raw schema shape into the canonical
// Document. Accepted shapes: a map of field name to field body, an array of
// field bodies each carrying its own "name", or a single-key envelope
// wrapping name/description/fields. Normalizing an already-canonical
// document returns an equal document.
func Normalize(raw any) (Document, error) {
	switch v := raw.(type) {
	case Document:
		// Round-trip through JSON so canonical input takes the exact same
		// path as decoded input.
		data, err := json.Marshal(v)
		if err != nil {
			return Document{}, nonSerializable("", err.Error())
		}
		return NormalizeJSON(data)
	case *Document:
		if v == nil {
			return Document{}, nonSerializable("", "nil document")
		}
		return Normalize(*v)
	case json.RawMessage:
		return NormalizeJSON(v)
	case []byte:
		return NormalizeJSON(v)
	case map[string]any:
		return normalizeRoot(v)
	default:
		return Document{}, nonSerializable("", fmt.Sprintf("unsupported schema shape %T", raw))
	}
}

// NormalizeJSON decodes raw JSON and normalizes it.
func NormalizeJSON(data []byte) (Document, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return Document{}, nonSerializable("", "schema is not a JSON object: "+err.Error())
	}
	return normalizeRoot(root)
}

func normalizeRoot(root map[string]any) (Document, error) {
	name, description, rawFields, rawDefs, err := unwrapEnvelope(root)
	if err != nil {
		return Document{}, err
	}

	fields, err := collectFields("fields", rawFields)
	if err != nil {
		return Document{}, err
	}
	if len(fields) == 0 {
		return Document{}, nonSerializable("fields", "schema declares no fields")
	}

	var defs map[string]Field
	if rawDefs != nil {
		defs, err = collectFields("definitions", rawDefs)
		if err != nil {
			return Document{}, err
		}
	}

	doc := Document{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Fields:      fields,
		Definitions: defs,
	}
	if len(doc.Definitions) == 0 {
		doc.Definitions = nil
	}

	if err := resolveReferences(doc); err != nil {
		return Document{}, err
	}
	if _, err := json.Marshal(doc); err != nil {
		return Document{}, nonSerializable("", err.Error())
	}
	return doc, nil
}

// unwrapEnvelope locates name, description, fields and definitions whether
// the document is flat or wrapped under a single container key.
func unwrapEnvelope(root map[string]any) (name, description string, fields, defs any, err error) {
	if raw, ok := root["fields"]; ok {
		return stringValue(root["name"]), stringValue(root["description"]), raw, root["definitions"], nil
	}

	// Envelope shape: one top-level key naming the container.
	if len(root) == 1 {
		for key, inner := range root {
			body, ok := inner.(map[string]any)
			if !ok {
				return "", "", nil, nil, nonSerializable(key, "envelope value is not an object")
			}
			raw, ok := body["fields"]
			if !ok {
				return "", "", nil, nil, nonSerializable(key, "envelope has no fields collection")
			}
			name = stringValue(body["name"])
			if name == "" {
				name = key
			}
			return name, stringValue(body["description"]), raw, body["definitions"], nil
		}
	}
	return "", "", nil, nil, nonSerializable("", "schema has no fields collection")
}

// collectFields resolves the map-vs-array shape split once, here. Array
// elements carry their own "name" key, which is lifted out of the body.
func collectFields(path string, raw any) (map[string]Field, error) {
	out := map[string]Field{}
	switch shaped := raw.(type) {
	case map[string]any:
		// Sort for deterministic synthesized names on empty keys.
		keys := make([]string, 0, len(shaped))
		for k := range shaped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, key := range keys {
			name := strings.TrimSpace(key)
			if name == "" {
				name = fmt.Sprintf("field_%d", i)
			}
			field, err := normalizeField(path+"."+name, shaped[key], 0)
			if err != nil {
				return nil, err
			}
			out[name] = field
		}
	case []any:
		for i, element := range shaped {
			body, ok := element.(map[string]any)
			if !ok {
				return nil, nonSerializable(fmt.Sprintf("%s[%d]", path, i), "field entry is not an object")
			}
			name := stringValue(body["name"])
			if name == "" {
				name = fmt.Sprintf("field_%d", i)
			}
			trimmed := make(map[string]any, len(body))
			for k, v := range body {
				if k == "name" {
					continue
				}
				trimmed[k] = v
			}
			field, err := normalizeField(path+"."+name, trimmed, 0)
			if err != nil {
				return nil, err
			}
			out[name] = field
		}
	default:
		return nil, nonSerializable(path, fmt.Sprintf("collection must be an object or array, got %T", raw))
	}
	return out, nil
}

func normalizeField(path string, raw any, depth int) (Field, error) {
	if depth > maxNesting {
		return Field{}, nonSerializable(path, "nesting exceeds limit (possible cyclic schema)")
	}
	body, ok := raw.(map[string]any)
	if !ok {
		return Field{}, nonSerializable(path, fmt.Sprintf("field body must be an object, got %T", raw))
	}

	field := Field{Description: stringValue(body["description"])}

	if ref := stringValue(body["$ref"]); ref != "" {
		// Reference fields inherit type and method from the definition.
		field.Ref = ref
		return field, nil
	}

	method, err := extractMethod(path, body)
	if err != nil {
		return Field{}, err
	}
	field.Method = method

	rawType, present := body["type"]
	typeName, ok := rawType.(string)
	if present && !ok {
		return Field{}, nonSerializable(path+".type", "type must be a string")
	}
	field.Type = FieldType(strings.TrimSpace(typeName))
	if field.Type == "" {
		field.Type = TypeString
	}
	if !validFieldType(field.Type) {
		return Field{}, nonSerializable(path+".type", fmt.Sprintf("unknown type %q", field.Type))
	}

	switch field.Type {
	case TypeArray:
		rawItems, ok := body["items"]
		if !ok {
			return Field{}, nonSerializable(path, "array field requires items")
		}
		items, err := normalizeField(path+".items", rawItems, depth+1)
		if err != nil {
			return Field{}, err
		}
		field.Items = &items
	case TypeObject:
		rawProps, ok := body["properties"].(map[string]any)
		if !ok || len(rawProps) == 0 {
			return Field{}, nonSerializable(path, "object field requires properties")
		}
		props := make(map[string]Field, len(rawProps))
		for name, rawProp := range rawProps {
			propName := strings.TrimSpace(name)
			if propName == "" {
				return Field{}, nonSerializable(path+".properties", "property name is empty")
			}
			prop, err := normalizeField(path+"."+propName, rawProp, depth+1)
			if err != nil {
				return Field{}, err
			}
			props[propName] = prop
		}
		field.Properties = props
	}

	return field, nil
}

// extractMethod reads the canonical generationMethod key, falling back
// through the alias table. Absence on any non-reference field is an error.
func extractMethod(path string, body map[string]any) (GenerationMethod, error) {
	raw, ok := body["generationMethod"]
	if !ok {
		for _, alias := range generationMethodAliases {
			if raw, ok = body[alias]; ok {
				break
			}
		}
	}
	if !ok {
		return "", missingMethod(path)
	}
	value, isString := raw.(string)
	if !isString {
		return "", nonSerializable(path, "generationMethod must be a string")
	}
	method := GenerationMethod(strings.TrimSpace(value))
	if !validMethod(method) {
		return "", &ValidationError{
			Code:   CodeMissingGenerationMethod,
			Path:   path,
			Detail: fmt.Sprintf("unrecognized generationMethod %q", value),
		}
	}
	return method, nil
}

// resolveReferences checks that every $ref in fields and definitions lands
// on a definitions key.
func resolveReferences(doc Document) error {
	var walk func(path string, f Field) error
	walk = func(path string, f Field) error {
		if f.Ref != "" {
			if _, ok := doc.Definitions[definitionKey(f.Ref)]; !ok {
				return unresolvedDefinition(path, f.Ref)
			}
		}
		if f.Items != nil {
			if err := walk(path+".items", *f.Items); err != nil {
				return err
			}
		}
		for name, prop := range f.Properties {
			if err := walk(path+"."+name, prop); err != nil {
				return err
			}
		}
		return nil
	}

	for name, f := range doc.Fields {
		if err := walk("fields."+name, f); err != nil {
			return err
		}
	}
	for name, f := range doc.Definitions {
		if err := walk("definitions."+name, f); err != nil {
			return err
		}
	}
	return nil
}

func stringValue(raw any) string {
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}
