package validation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CastOptions control how Cast shapes the output.
type CastOptions struct {
	// StripUnknown drops keys the compiled rule tree does not declare.
	// Unknown keys are otherwise passed through untouched.
	StripUnknown bool
}

// Cast returns a deep copy of values with leaf entries coerced toward the
// declared types where the conversion is lossless. Values that cannot be
// coerced are copied as-is and left for Validate to flag. The input map is
// never mutated.
func (c *Compiled) Cast(values map[string]any, opts CastOptions) map[string]any {
	if c == nil || c.root == nil {
		return nil
	}
	out, _ := c.castNode(c.root, values, opts).(map[string]any)
	return out
}

func (c *Compiled) castNode(node *rule, value any, opts CastOptions) any {
	if value == nil {
		return nil
	}

	switch node.typ {
	case "object":
		object, ok := value.(map[string]any)
		if !ok {
			return copyValue(value)
		}
		out := make(map[string]any, len(object))
		for key, entry := range object {
			child, declared := node.properties[key]
			if !declared {
				if !opts.StripUnknown {
					out[key] = copyValue(entry)
				}
				continue
			}
			out[key] = c.castNode(child, entry, opts)
		}
		return out
	case "array":
		list, ok := value.([]any)
		if !ok {
			return copyValue(value)
		}
		out := make([]any, len(list))
		for index, element := range list {
			if node.items == nil {
				out[index] = copyValue(element)
				continue
			}
			out[index] = c.castNode(node.items, element, opts)
		}
		return out
	default:
		return castLeaf(node.typ, value)
	}
}

func castLeaf(typ string, value any) any {
	switch typ {
	case "string":
		switch typed := value.(type) {
		case string:
			return typed
		case bool:
			return strconv.FormatBool(typed)
		case float64:
			return strconv.FormatFloat(typed, 'f', -1, 64)
		case int:
			return strconv.Itoa(typed)
		case json.Number:
			return typed.String()
		}
	case "number":
		if number, ok := parseNumber(value); ok {
			return number
		}
	case "integer":
		if number, ok := parseNumber(value); ok && number == math.Trunc(number) {
			return number
		}
	case "boolean":
		switch typed := value.(type) {
		case bool:
			return typed
		case string:
			switch strings.ToLower(strings.TrimSpace(typed)) {
			case "true":
				return true
			case "false":
				return false
			}
		}
	}
	return copyValue(value)
}

func parseNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func copyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			out[key] = copyValue(entry)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for index, entry := range typed {
			out[index] = copyValue(entry)
		}
		return out
	default:
		return typed
	}
}
