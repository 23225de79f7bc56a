package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-connform/pkg/form"
	"github.com/goliatone/go-connform/pkg/model"
	"github.com/goliatone/go-connform/pkg/schema"
)

// Walker drives an interactive configuration session field by field. It
// consumes descriptor trees and widget metadata; it never interprets raw
// schemas itself.
type Walker struct {
	driver   Driver
	pageSize int
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithDriver replaces the interactive terminal driver.
func WithDriver(driver Driver) WalkerOption {
	return func(w *Walker) {
		if driver != nil {
			w.driver = driver
		}
	}
}

// WithPageSize sets the select prompt page size.
func WithPageSize(size int) WalkerOption {
	return func(w *Walker) {
		w.pageSize = size
	}
}

// NewWalker returns a walker backed by the interactive survey driver unless
// overridden.
func NewWalker(options ...WalkerOption) *Walker {
	w := &Walker{driver: NewSurveyDriver()}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run prompts for every editable field in the session. Constants are
// announced rather than prompted, unions first ask for the variant, and
// arrays loop until the user declines to add more. Values land in the
// session as they are entered; the caller decides when to Submit.
func (w *Walker) Run(ctx context.Context, session *form.Session) error {
	if session == nil || session.ServiceType() == "" {
		return fmt.Errorf("prompt: no connector selected")
	}
	return w.walkFields(ctx, session, session.Fields())
}

func (w *Walker) walkFields(ctx context.Context, session *form.Session, fields []model.Field) error {
	for _, field := range fields {
		if err := w.walkField(ctx, session, field); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkField(ctx context.Context, session *form.Session, field model.Field) error {
	entry, _ := session.Widgets().Entry(field.Path)

	if entry.Const != nil && field.Type != model.FieldTypeUnion {
		if field.Name == schema.EnvelopeServiceType {
			return nil
		}
		return w.driver.Info(ctx, fmt.Sprintf("%s: %v", labelFor(field), entry.Const))
	}

	switch field.Type {
	case model.FieldTypeUnion:
		return w.walkUnion(ctx, session, field)
	case model.FieldTypeObject:
		if err := w.driver.Info(ctx, labelFor(field)); err != nil {
			return err
		}
		return w.walkFields(ctx, session, field.Nested)
	case model.FieldTypeArray:
		return w.walkArray(ctx, session, field)
	default:
		value, err := w.promptLeaf(ctx, field, entry.Widget, entryHelp(entry.Help), currentDefault(session, field))
		if err != nil {
			return err
		}
		return session.SetValue(field.Path, value)
	}
}

func (w *Walker) walkUnion(ctx context.Context, session *form.Session, field model.Field) error {
	options := make([]string, len(field.Variants))
	for i, variant := range field.Variants {
		options[i] = labelFor(variant)
	}
	entry, _ := session.Widgets().Entry(field.Path)
	defaultIndex := entry.ActiveVariant
	if defaultIndex < 0 {
		defaultIndex = 0
	}

	index, err := w.driver.Select(ctx, SelectConfig{
		Message:      labelFor(field),
		Options:      options,
		DefaultIndex: defaultIndex,
		Help:         entryHelp(entry.Help),
		PageSize:     w.pageSize,
	})
	if err != nil {
		return err
	}
	if err := session.SelectVariant(field.Path, index); err != nil {
		return err
	}

	for _, nested := range field.Variants[index].Nested {
		if nested.Name == field.Discriminator {
			continue
		}
		if err := w.walkField(ctx, session, nested); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkArray(ctx context.Context, session *form.Session, field model.Field) error {
	if field.Items == nil {
		return nil
	}
	var list []any
	for {
		message := fmt.Sprintf("Add an entry to %s?", labelFor(field))
		if len(list) > 0 {
			message = fmt.Sprintf("Add another entry to %s?", labelFor(field))
		}
		more, err := w.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: len(list) == 0 && field.Required})
		if err != nil {
			return err
		}
		if !more {
			break
		}
		element, err := w.promptElement(ctx, session, *field.Items)
		if err != nil {
			return err
		}
		list = append(list, element)
	}
	return session.SetValue(field.Path, list)
}

// promptElement collects one array element. Object elements are assembled
// locally since indexed paths are not part of the descriptor tree.
func (w *Walker) promptElement(ctx context.Context, session *form.Session, field model.Field) (any, error) {
	entry, _ := session.Widgets().Entry(field.Path)

	switch field.Type {
	case model.FieldTypeObject:
		out := make(map[string]any, len(field.Nested))
		for _, nested := range field.Nested {
			if nested.Const != nil {
				out[nested.Name] = nested.Const
				continue
			}
			value, err := w.promptElement(ctx, session, nested)
			if err != nil {
				return nil, err
			}
			out[nested.Name] = value
		}
		return out, nil
	case model.FieldTypeArray, model.FieldTypeUnion:
		raw, err := w.driver.TextArea(ctx, InputConfig{
			Message: fmt.Sprintf("%s (JSON)", labelFor(field)),
			Help:    entryHelp(entry.Help),
		})
		if err != nil {
			return nil, err
		}
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", field.Path, err)
		}
		return parsed, nil
	default:
		return w.promptLeaf(ctx, field, entry.Widget, entryHelp(entry.Help), nil)
	}
}

func (w *Walker) promptLeaf(ctx context.Context, field model.Field, widget, help string, current any) (any, error) {
	if widget == "" {
		widget = field.Metadata["widget"]
	}
	switch widget {
	case "toggle":
		return w.driver.Confirm(ctx, ConfirmConfig{
			Message: labelFor(field),
			Default: asBool(current),
			Help:    help,
		})
	case "secret":
		return w.driver.Password(ctx, InputConfig{Message: labelFor(field), Help: help})
	case "select":
		options := make([]string, len(field.Enum))
		for i, option := range field.Enum {
			options[i] = fmt.Sprintf("%v", option)
		}
		index, err := w.driver.Select(ctx, SelectConfig{
			Message:      labelFor(field),
			Options:      options,
			DefaultIndex: indexOf(options, fmt.Sprintf("%v", current)),
			Help:         help,
			PageSize:     w.pageSize,
		})
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(field.Enum) {
			return nil, fmt.Errorf("prompt: %s: selection out of range", field.Path)
		}
		return field.Enum[index], nil
	case "textarea":
		return w.driver.TextArea(ctx, InputConfig{
			Message: labelFor(field),
			Default: asString(current),
			Help:    help,
		})
	case "json-editor":
		raw, err := w.driver.TextArea(ctx, InputConfig{
			Message: fmt.Sprintf("%s (JSON)", labelFor(field)),
			Help:    help,
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			return map[string]any{}, nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", field.Path, err)
		}
		return parsed, nil
	}

	switch field.Type {
	case model.FieldTypeBoolean:
		return w.driver.Confirm(ctx, ConfirmConfig{Message: labelFor(field), Default: asBool(current), Help: help})
	case model.FieldTypeInteger:
		raw, err := w.driver.Input(ctx, InputConfig{
			Message:   labelFor(field),
			Default:   asString(current),
			Help:      help,
			Validator: validInteger,
		})
		if err != nil {
			return nil, err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", field.Path, err)
		}
		return parsed, nil
	case model.FieldTypeNumber:
		raw, err := w.driver.Input(ctx, InputConfig{
			Message:   labelFor(field),
			Default:   asString(current),
			Help:      help,
			Validator: validNumber,
		})
		if err != nil {
			return nil, err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", field.Path, err)
		}
		return parsed, nil
	default:
		return w.driver.Input(ctx, InputConfig{
			Message: labelFor(field),
			Default: asString(current),
			Help:    help,
		})
	}
}

func labelFor(field model.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func entryHelp(help string) string {
	return strings.TrimSpace(help)
}

func currentDefault(session *form.Session, field model.Field) any {
	if value, ok := session.Value(field.Path); ok && value != nil {
		return value
	}
	return field.Default
}

func asString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func asBool(value any) bool {
	b, _ := value.(bool)
	return b
}

func validInteger(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
		return fmt.Errorf("enter a whole number")
	}
	return nil
}

func validNumber(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return fmt.Errorf("enter a number")
	}
	return nil
}
