package widgets_test

import (
	"testing"

	"github.com/goliatone/go-connform/pkg/model"
	"github.com/goliatone/go-connform/pkg/widgets"
)

func TestRegistry_ResolveBuiltins(t *testing.T) {
	registry := widgets.NewRegistry()

	tests := []struct {
		name  string
		field model.Field
		want  string
	}{
		{
			name:  "boolean toggles",
			field: model.Field{Type: model.FieldTypeBoolean},
			want:  widgets.WidgetToggle,
		},
		{
			name:  "password format is a secret",
			field: model.Field{Type: model.FieldTypeString, Format: "password"},
			want:  widgets.WidgetSecret,
		},
		{
			name:  "secret metadata wins over enum",
			field: model.Field{Type: model.FieldTypeString, Enum: []any{"a", "b"}, Metadata: map[string]string{"secret": "true"}},
			want:  widgets.WidgetSecret,
		},
		{
			name:  "enum selects",
			field: model.Field{Type: model.FieldTypeString, Enum: []any{"a", "b"}},
			want:  widgets.WidgetSelect,
		},
		{
			name:  "multiline textarea",
			field: model.Field{Type: model.FieldTypeString, Format: "multiline"},
			want:  widgets.WidgetTextarea,
		},
		{
			name:  "open object gets a json editor",
			field: model.Field{Type: model.FieldTypeObject},
			want:  widgets.WidgetJSONEditor,
		},
		{
			name:  "union gets the variant selector",
			field: model.Field{Type: model.FieldTypeUnion},
			want:  widgets.WidgetVariant,
		},
		{
			name:  "explicit metadata hint beats everything",
			field: model.Field{Type: model.FieldTypeBoolean, Metadata: map[string]string{"widget": "custom-switch"}},
			want:  "custom-switch",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := registry.Resolve(tc.field)
			if !ok {
				t.Fatalf("no widget resolved, want %q", tc.want)
			}
			if got != tc.want {
				t.Fatalf("widget = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRegistry_ResolveNoMatch(t *testing.T) {
	registry := widgets.NewRegistry()
	if widget, ok := registry.Resolve(model.Field{Type: model.FieldTypeString}); ok {
		t.Fatalf("plain string resolved to %q, want no match", widget)
	}
}

func TestRegistry_CustomRuleOutranksBuiltins(t *testing.T) {
	registry := widgets.NewRegistry()
	registry.Register("big-switch", 100, func(field model.Field) bool {
		return field.Type == model.FieldTypeBoolean
	})

	got, ok := registry.Resolve(model.Field{Type: model.FieldTypeBoolean})
	if !ok || got != "big-switch" {
		t.Fatalf("widget = %q ok = %v, want big-switch", got, ok)
	}
}

func TestRegistry_DecorateFillsEmptySlots(t *testing.T) {
	fields := buildFields(t, `{
		"type": "object",
		"properties": {
			"verbose": {"type": "boolean"},
			"password": {"type": "string", "format": "password"},
			"comment": {"type": "string"}
		}
	}`)

	store := widgets.NewStore(fields, nil, widgets.Overrides{
		"verbose": {Widget: "fancy-toggle"},
	}, false)
	widgets.NewRegistry().Decorate(store, fields)

	verbose, _ := store.Entry("verbose")
	if verbose.Widget != "fancy-toggle" {
		t.Fatalf("override lost: widget = %q", verbose.Widget)
	}
	password, _ := store.Entry("password")
	if password.Widget != widgets.WidgetSecret {
		t.Fatalf("password widget = %q, want secret", password.Widget)
	}
	comment, _ := store.Entry("comment")
	if comment.Widget != "" {
		t.Fatalf("comment widget = %q, want empty", comment.Widget)
	}
}
