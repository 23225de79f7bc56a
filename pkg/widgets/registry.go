package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-connform/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetToggle     = "toggle"
	WidgetSelect     = "select"
	WidgetSecret     = "secret"
	WidgetTextarea   = "textarea"
	WidgetJSONEditor = "json-editor"
	WidgetVariant    = "variant-select"
)

// Matcher decides whether a widget should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects default widgets for fields based on explicit schema hints
// or registered matchers. Higher priority wins; ties fall back to
// registration order. An empty registry never resolves a widget.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in widget matchers
// registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence; the latest registration wins on duplicate
// names.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field. An explicit "widget" hint in
// the field metadata is honoured before matcher evaluation.
func (r *Registry) Resolve(field model.Field) (string, bool) {
	if field.Metadata != nil {
		if widget := strings.TrimSpace(field.Metadata["widget"]); widget != "" {
			return widget, true
		}
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Decorate fills the Widget slot of every store entry that has no explicit
// override, walking the descriptor tree through the registry.
func (r *Registry) Decorate(store *Store, fields []model.Field) {
	if r == nil || store == nil {
		return
	}
	model.Walk(fields, func(field model.Field) {
		entry, ok := store.Entry(field.Path)
		if !ok || entry.Widget != "" {
			return
		}
		if widget, ok := r.Resolve(field); ok {
			store.Merge(field.Path, Patch{Widget: &widget})
		}
	})
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetVariant, 95, func(field model.Field) bool {
		return field.Type == model.FieldTypeUnion
	})

	r.Register(WidgetToggle, 90, func(field model.Field) bool {
		return field.Type == model.FieldTypeBoolean
	})

	r.Register(WidgetSecret, 85, func(field model.Field) bool {
		if field.Type != model.FieldTypeString {
			return false
		}
		if strings.EqualFold(field.Format, "password") {
			return true
		}
		return field.Metadata != nil && field.Metadata["secret"] == "true"
	})

	r.Register(WidgetSelect, 70, func(field model.Field) bool {
		if field.Type == model.FieldTypeArray || field.Type == model.FieldTypeObject {
			return false
		}
		return len(field.Enum) > 0
	})

	r.Register(WidgetTextarea, 60, func(field model.Field) bool {
		if field.Type != model.FieldTypeString {
			return false
		}
		format := strings.ToLower(field.Format)
		return format == "multiline" || format == "json" || format == "yaml"
	})

	r.Register(WidgetJSONEditor, 50, func(field model.Field) bool {
		return field.Type == model.FieldTypeObject && len(field.Nested) == 0
	})
}
