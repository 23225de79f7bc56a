package jsonschema

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/goliatone/go-connform/pkg/schema"
)

var supportedSchemaKeys = map[string]struct{}{
	"$schema":              {},
	"$id":                  {},
	"$defs":                {},
	"definitions":          {},
	"$ref":                 {},
	"$anchor":              {},
	"type":                 {},
	"properties":           {},
	"required":             {},
	"items":                {},
	"oneOf":                {},
	"enum":                 {},
	"const":                {},
	"title":                {},
	"description":          {},
	"default":              {},
	"minimum":              {},
	"maximum":              {},
	"exclusiveMinimum":     {},
	"exclusiveMaximum":     {},
	"minLength":            {},
	"maxLength":            {},
	"pattern":              {},
	"format":               {},
	"examples":             {},
	"additionalProperties": {},
}

// normalizeNode converts a resolved JSON payload into the canonical schema
// tree, enforcing the structural rules the form builder depends on.
func normalizeNode(node any, path string, orders map[string][]string) (schema.Schema, error) {
	if node == nil {
		return schema.Schema{}, schemaErrorf(path, "schema is nil")
	}
	payload, ok := node.(map[string]any)
	if !ok {
		return schema.Schema{}, schemaErrorf(path, "schema must be an object")
	}

	if err := validateKeywords(payload, path); err != nil {
		return schema.Schema{}, err
	}

	out := schema.Schema{
		Type:        strings.TrimSpace(readString(payload, "type")),
		Title:       strings.TrimSpace(readString(payload, "title")),
		Description: strings.TrimSpace(readString(payload, "description")),
		Default:     payload["default"],
		Const:       payload["const"],
		Format:      strings.TrimSpace(readString(payload, "format")),
		Extensions:  extractExtensions(payload),
	}

	if out.Type != "" && !isAllowedType(out.Type) {
		return schema.Schema{}, schemaErrorf(path, "unsupported type %q", out.Type)
	}

	if enumRaw, ok := payload["enum"]; ok {
		enumList, ok := enumRaw.([]any)
		if !ok {
			return schema.Schema{}, schemaErrorf(path, "enum must be an array")
		}
		if len(enumList) == 0 {
			return schema.Schema{}, schemaErrorf(path, "enum must not be empty")
		}
		out.Enum = append([]any(nil), enumList...)
	}

	if out.Const != nil && len(out.Enum) > 0 && !containsValue(out.Enum, out.Const) {
		return schema.Schema{}, schemaErrorf(path, "const %v conflicts with enum", out.Const)
	}

	if err := normalizeConstraints(payload, &out, path); err != nil {
		return schema.Schema{}, err
	}

	if requiredRaw, ok := payload["required"]; ok {
		list, ok := requiredRaw.([]any)
		if !ok {
			return schema.Schema{}, schemaErrorf(path, "required must be an array")
		}
		required := make([]string, 0, len(list))
		for idx, item := range list {
			str, ok := item.(string)
			if !ok || strings.TrimSpace(str) == "" {
				return schema.Schema{}, schemaErrorf(path, "required[%d] must be a string", idx)
			}
			required = append(required, str)
		}
		out.Required = required
	}

	if propertiesRaw, ok := payload["properties"]; ok {
		props, ok := propertiesRaw.(map[string]any)
		if !ok {
			return schema.Schema{}, schemaErrorf(path, "properties must be an object")
		}
		propsPath := joinPath(path, "properties")
		out.Properties = make(map[string]schema.Schema, len(props))
		out.PropertyOrder = orderedPropertyNames(props, orders[propsPath])
		for _, key := range out.PropertyOrder {
			converted, err := normalizeNode(props[key], joinPath(propsPath, key), orders)
			if err != nil {
				return schema.Schema{}, err
			}
			out.Properties[key] = converted
		}
		if out.Type == "" {
			out.Type = "object"
		}
	}

	if itemsRaw, ok := payload["items"]; ok {
		typed, ok := itemsRaw.(map[string]any)
		if !ok {
			return schema.Schema{}, schemaErrorf(path, "items must be an object")
		}
		converted, err := normalizeNode(typed, joinPath(path, "items"), orders)
		if err != nil {
			return schema.Schema{}, err
		}
		out.Items = &converted
		if out.Type == "" {
			out.Type = "array"
		}
	}

	if oneOfRaw, ok := payload["oneOf"]; ok {
		list, ok := oneOfRaw.([]any)
		if !ok {
			return schema.Schema{}, schemaErrorf(path, "oneOf must be an array")
		}
		if len(list) == 0 {
			return schema.Schema{}, schemaErrorf(path, "oneOf must include at least one variant")
		}
		out.OneOf = make([]schema.Schema, 0, len(list))
		for idx, entry := range list {
			variantPath := joinPath(path, "oneOf", fmt.Sprintf("%d", idx))
			converted, err := normalizeNode(entry, variantPath, orders)
			if err != nil {
				return schema.Schema{}, err
			}
			if converted.Type != "" && converted.Type != "object" {
				return schema.Schema{}, schemaErrorf(variantPath, "oneOf variant must be an object")
			}
			if len(converted.Properties) == 0 {
				return schema.Schema{}, schemaErrorf(variantPath, "oneOf variant missing properties")
			}
			out.OneOf = append(out.OneOf, converted)
		}
		if _, err := Discriminator(out, path); err != nil {
			return schema.Schema{}, err
		}
		if out.Type == "" {
			out.Type = "object"
		}
	}

	if out.Type == "" {
		return schema.Schema{}, schemaErrorf(path, "missing type")
	}

	return out, nil
}

// Discriminator locates the property that distinguishes the union's variants:
// the first property, in the leading variant's declared order, that every
// variant declares with a distinct string const. The error names the union's
// path when no such property exists.
func Discriminator(union schema.Schema, path string) (string, error) {
	if len(union.OneOf) == 0 {
		return "", schemaErrorf(path, "not a oneOf union")
	}

	for _, candidate := range union.OneOf[0].OrderedProperties() {
		values := make(map[string]struct{}, len(union.OneOf))
		usable := true
		for _, variant := range union.OneOf {
			prop, ok := variant.Properties[candidate]
			if !ok {
				usable = false
				break
			}
			value, ok := constString(prop)
			if !ok {
				usable = false
				break
			}
			if _, dup := values[value]; dup {
				usable = false
				break
			}
			values[value] = struct{}{}
		}
		if usable {
			return candidate, nil
		}
	}
	return "", schemaErrorf(path, "oneOf variants share no const discriminator property")
}

func constString(prop schema.Schema) (string, bool) {
	if value, ok := prop.Const.(string); ok && strings.TrimSpace(value) != "" {
		return value, true
	}
	if len(prop.Enum) == 1 {
		if value, ok := prop.Enum[0].(string); ok && strings.TrimSpace(value) != "" {
			return value, true
		}
	}
	return "", false
}

func normalizeConstraints(payload map[string]any, out *schema.Schema, path string) error {
	if minRaw, ok := payload["minimum"]; ok {
		value, ok := toFloat(minRaw)
		if !ok {
			return schemaErrorf(path, "minimum must be a number")
		}
		out.Minimum = &value
	}

	if maxRaw, ok := payload["maximum"]; ok {
		value, ok := toFloat(maxRaw)
		if !ok {
			return schemaErrorf(path, "maximum must be a number")
		}
		out.Maximum = &value
	}

	if exclusiveMinRaw, ok := payload["exclusiveMinimum"]; ok {
		switch value := exclusiveMinRaw.(type) {
		case bool:
			out.ExclusiveMinimum = value
		default:
			number, ok := toFloat(exclusiveMinRaw)
			if !ok {
				return schemaErrorf(path, "exclusiveMinimum must be a number")
			}
			if out.Minimum != nil {
				return schemaErrorf(path, "minimum conflicts with exclusiveMinimum")
			}
			out.Minimum = &number
			out.ExclusiveMinimum = true
		}
	}

	if exclusiveMaxRaw, ok := payload["exclusiveMaximum"]; ok {
		switch value := exclusiveMaxRaw.(type) {
		case bool:
			out.ExclusiveMaximum = value
		default:
			number, ok := toFloat(exclusiveMaxRaw)
			if !ok {
				return schemaErrorf(path, "exclusiveMaximum must be a number")
			}
			if out.Maximum != nil {
				return schemaErrorf(path, "maximum conflicts with exclusiveMaximum")
			}
			out.Maximum = &number
			out.ExclusiveMaximum = true
		}
	}

	if minLenRaw, ok := payload["minLength"]; ok {
		value, ok := toInt(minLenRaw)
		if !ok {
			return schemaErrorf(path, "minLength must be an integer")
		}
		out.MinLength = &value
	}

	if maxLenRaw, ok := payload["maxLength"]; ok {
		value, ok := toInt(maxLenRaw)
		if !ok {
			return schemaErrorf(path, "maxLength must be an integer")
		}
		out.MaxLength = &value
	}

	if patternRaw, ok := payload["pattern"]; ok {
		pattern, ok := patternRaw.(string)
		if !ok {
			return schemaErrorf(path, "pattern must be a string")
		}
		out.Pattern = pattern
	}

	return nil
}

func orderedPropertyNames(props map[string]any, declared []string) []string {
	seen := make(map[string]struct{}, len(declared))
	order := make([]string, 0, len(props))
	for _, name := range declared {
		if _, ok := props[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}
	if len(order) < len(props) {
		tail := make([]string, 0, len(props)-len(order))
		for name := range props {
			if _, ok := seen[name]; !ok {
				tail = append(tail, name)
			}
		}
		sort.Strings(tail)
		order = append(order, tail...)
	}
	return order
}

func validateKeywords(payload map[string]any, path string) error {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if isVendorExtension(key) {
			continue
		}
		if _, ok := supportedSchemaKeys[key]; ok {
			continue
		}
		return schemaErrorf(path, "unsupported keyword %q", key)
	}
	return nil
}

func isVendorExtension(key string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), "x-")
}

func extractExtensions(payload map[string]any) map[string]any {
	var extensions map[string]any
	for key, value := range payload {
		if !isVendorExtension(key) {
			continue
		}
		if extensions == nil {
			extensions = make(map[string]any)
		}
		extensions[key] = value
	}
	return extensions
}

func containsValue(list []any, value any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, value) {
			return true
		}
	}
	return false
}

func readString(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	str, _ := value.(string)
	return str
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
		return 0, false
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func isAllowedType(value string) bool {
	switch value {
	case "object", "array", "string", "integer", "number", "boolean":
		return true
	default:
		return false
	}
}
