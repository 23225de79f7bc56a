package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"time"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Validate walks the value tree against the compiled rules and returns the
// ordered list of findings. An empty slice means the values are submittable.
// Validation never mutates the input.
func (c *Compiled) Validate(values map[string]any) []Issue {
	if c == nil || c.root == nil {
		return nil
	}
	var issues []Issue
	c.validateNode(c.root, values, &issues)
	return issues
}

func (c *Compiled) validateNode(node *rule, value any, issues *[]Issue) {
	if value == nil {
		return
	}

	switch node.typ {
	case "object":
		object, ok := value.(map[string]any)
		if !ok {
			c.report(issues, node, "type", map[string]any{"expected": "object"})
			return
		}
		for _, name := range node.order {
			child := node.properties[name]
			got, present := object[name]
			if _, req := node.required[name]; req && (!present || got == nil) {
				c.report(issues, child, "required", nil)
				continue
			}
			if present {
				c.validateNode(child, got, issues)
			}
		}
	case "array":
		list, ok := value.([]any)
		if !ok {
			c.report(issues, node, "type", map[string]any{"expected": "array"})
			return
		}
		if node.items == nil {
			return
		}
		for index, element := range list {
			c.validateElement(node.items, element, index, issues)
		}
	default:
		c.validateLeaf(node, value, issues)
	}
}

// validateElement revalidates one array element, rewriting the shared
// ".items" rule path with the concrete index so findings point at the
// offending entry.
func (c *Compiled) validateElement(node *rule, value any, index int, issues *[]Issue) {
	before := len(*issues)
	c.validateNode(node, value, issues)
	suffix := fmt.Sprintf("[%d]", index)
	for i := before; i < len(*issues); i++ {
		(*issues)[i].Path = indexedPath(node.path, suffix, (*issues)[i].Path)
	}
}

func indexedPath(itemsPath, suffix, full string) string {
	if len(full) < len(itemsPath) {
		return full
	}
	return itemsPath + suffix + full[len(itemsPath):]
}

func (c *Compiled) validateLeaf(node *rule, value any, issues *[]Issue) {
	if node.constVal != nil && !looselyEqual(value, node.constVal) {
		c.report(issues, node, "const", map[string]any{"expected": node.constVal})
		return
	}

	switch node.typ {
	case "string":
		text, ok := value.(string)
		if !ok {
			c.report(issues, node, "type", map[string]any{"expected": "string"})
			return
		}
		c.validateString(node, text, issues)
	case "number":
		number, ok := numeric(value)
		if !ok {
			c.report(issues, node, "type", map[string]any{"expected": "number"})
			return
		}
		c.validateNumber(node, number, issues)
	case "integer":
		number, ok := numeric(value)
		if !ok || number != math.Trunc(number) {
			c.report(issues, node, "type", map[string]any{"expected": "integer"})
			return
		}
		c.validateNumber(node, number, issues)
	case "boolean":
		if _, ok := value.(bool); !ok {
			c.report(issues, node, "type", map[string]any{"expected": "boolean"})
			return
		}
	}

	if len(node.enum) > 0 && !enumContains(node.enum, value) {
		c.report(issues, node, "enum", map[string]any{"options": node.enum})
	}
}

func (c *Compiled) validateString(node *rule, text string, issues *[]Issue) {
	length := len([]rune(text))
	if node.minLen != nil && length < *node.minLen {
		c.report(issues, node, "minLength", map[string]any{"limit": *node.minLen})
	}
	if node.maxLen != nil && length > *node.maxLen {
		c.report(issues, node, "maxLength", map[string]any{"limit": *node.maxLen})
	}
	if node.pattern != nil && !node.pattern.MatchString(text) {
		c.report(issues, node, "pattern", map[string]any{"pattern": node.patternSrc})
	}
	if text != "" && !formatValid(node.format, text) {
		c.report(issues, node, "format", map[string]any{"format": node.format})
	}
}

func (c *Compiled) validateNumber(node *rule, number float64, issues *[]Issue) {
	if node.min != nil {
		if node.exclMin && number <= *node.min {
			c.report(issues, node, "min", map[string]any{"limit": *node.min, "exclusive": true})
		} else if !node.exclMin && number < *node.min {
			c.report(issues, node, "min", map[string]any{"limit": *node.min})
		}
	}
	if node.max != nil {
		if node.exclMax && number >= *node.max {
			c.report(issues, node, "max", map[string]any{"limit": *node.max, "exclusive": true})
		} else if !node.exclMax && number > *node.max {
			c.report(issues, node, "max", map[string]any{"limit": *node.max})
		}
	}
}

func (c *Compiled) report(issues *[]Issue, node *rule, kind string, extra map[string]any) {
	ctx := map[string]any{"label": node.label, "path": node.path}
	for key, val := range extra {
		ctx[key] = val
	}
	*issues = append(*issues, Issue{Path: node.path, Message: c.messages.Render(kind, ctx)})
}

func formatValid(format, text string) bool {
	switch format {
	case "email":
		_, err := mail.ParseAddress(text)
		return err == nil
	case "uri", "url":
		parsed, err := url.Parse(text)
		return err == nil && parsed.Scheme != ""
	case "date-time":
		_, err := time.Parse(time.RFC3339, text)
		return err == nil
	case "uuid":
		return uuidPattern.MatchString(text)
	default:
		return true
	}
}

func numeric(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		return parsed, err == nil
	default:
		return 0, false
	}
}

func looselyEqual(a, b any) bool {
	if na, ok := numeric(a); ok {
		if nb, ok := numeric(b); ok {
			return na == nb
		}
	}
	return reflect.DeepEqual(a, b)
}

func enumContains(options []any, value any) bool {
	for _, option := range options {
		if looselyEqual(option, value) {
			return true
		}
	}
	return false
}
