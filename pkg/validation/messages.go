package validation

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// defaultTemplates holds the built-in message per finding kind. Templates
// receive at least label and path; bound kinds add their own context keys
// (limit, pattern, options, expected).
var defaultTemplates = map[string]string{
	"required":  "{{ label }} is required",
	"type":      "{{ label }} must be a {{ expected }}",
	"const":     "{{ label }} must be {{ expected }}",
	"enum":      "{{ label }} must be one of the allowed options",
	"pattern":   "{{ label }} does not match the expected pattern",
	"min":       "{{ label }} must be at least {{ limit }}",
	"max":       "{{ label }} must be at most {{ limit }}",
	"minLength": "{{ label }} must have at least {{ limit }} characters",
	"maxLength": "{{ label }} must have at most {{ limit }} characters",
	"format":    "{{ label }} is not a valid {{ format }}",
}

// MessageSet renders validation messages from pongo2 templates. Overrides
// replace the built-in template for a kind; unknown kinds fall back to a
// generic message so a missing template never panics mid-validation.
type MessageSet struct {
	templates map[string]*pongo2.Template
}

// DefaultMessages returns the built-in message set.
func DefaultMessages() *MessageSet {
	set, err := NewMessageSet(nil)
	if err != nil {
		panic(fmt.Sprintf("validation: built-in templates: %v", err))
	}
	return set
}

// NewMessageSet compiles the built-in templates with the given overrides
// applied on top. Override keys match finding kinds ("required", "pattern",
// "min", ...).
func NewMessageSet(overrides map[string]string) (*MessageSet, error) {
	templates := make(map[string]*pongo2.Template, len(defaultTemplates))
	for kind, source := range defaultTemplates {
		if replacement, ok := overrides[kind]; ok {
			source = replacement
		}
		compiled, err := pongo2.FromString(source)
		if err != nil {
			return nil, fmt.Errorf("validation: message template %q: %w", kind, err)
		}
		templates[kind] = compiled
	}
	for kind, source := range overrides {
		if _, ok := templates[kind]; ok {
			continue
		}
		compiled, err := pongo2.FromString(source)
		if err != nil {
			return nil, fmt.Errorf("validation: message template %q: %w", kind, err)
		}
		templates[kind] = compiled
	}
	return &MessageSet{templates: templates}, nil
}

// Render produces the message for a finding kind. The context carries at
// least "label" and "path".
func (m *MessageSet) Render(kind string, ctx map[string]any) string {
	template, ok := m.templates[kind]
	if !ok {
		if label, ok := ctx["label"].(string); ok {
			return fmt.Sprintf("%s is invalid", label)
		}
		return "value is invalid"
	}
	rendered, err := template.Execute(pongo2.Context(ctx))
	if err != nil {
		return fmt.Sprintf("%v is invalid", ctx["label"])
	}
	return rendered
}
