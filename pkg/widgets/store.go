package widgets

import (
	"sort"
	"strings"

	"github.com/goliatone/go-connform/pkg/model"
)

// Info is the per-path UI state derived from the descriptor tree plus any
// externally supplied override. Its lifetime is tied to the current canonical
// schema: Reset recomputes every entry and drops paths that no longer exist.
type Info struct {
	// ActiveVariant is the selected oneOf branch for union paths, -1 for
	// every other kind.
	ActiveVariant int
	Const         any
	Default       any
	Widget        string
	Params        map[string]any
	Help          string
}

// Patch is a partial update applied to a single entry via Merge. Nil fields
// leave the current value untouched.
type Patch struct {
	ActiveVariant *int
	Const         any
	Default       any
	Widget        *string
	Params        map[string]any
	Help          *string
}

// Store owns the widget metadata for the current schema. It is not safe for
// concurrent use: the surrounding form pipeline runs single-threaded and is
// the only mutator, via Merge and Reset.
type Store struct {
	entries map[string]Info
}

// NewStore seeds a store by walking the descriptor tree against the current
// values, then merging the supplied overrides.
func NewStore(fields []model.Field, values map[string]any, overrides Overrides, editMode bool) *Store {
	s := &Store{}
	s.Reset(fields, values, overrides, editMode)
	return s
}

// Reset recomputes the entire store from the descriptor tree, discarding
// every existing entry, overrides included. Paths from a previous schema
// disappear here; their constants and defaults are never reapplied.
func (s *Store) Reset(fields []model.Field, values map[string]any, overrides Overrides, editMode bool) {
	s.entries = make(map[string]Info)
	s.seed(fields, values, editMode)
	s.applyOverrides(overrides)
}

// Merge shallow-merges a partial update into the entry at path, creating the
// entry when absent.
func (s *Store) Merge(path string, patch Patch) {
	entry, ok := s.entries[path]
	if !ok {
		entry = Info{ActiveVariant: -1}
	}
	if patch.ActiveVariant != nil {
		entry.ActiveVariant = *patch.ActiveVariant
	}
	if patch.Const != nil {
		entry.Const = patch.Const
	}
	if patch.Default != nil {
		entry.Default = patch.Default
	}
	if patch.Widget != nil {
		entry.Widget = *patch.Widget
	}
	if patch.Help != nil {
		entry.Help = *patch.Help
	}
	if len(patch.Params) > 0 {
		if entry.Params == nil {
			entry.Params = make(map[string]any, len(patch.Params))
		}
		for key, value := range patch.Params {
			entry.Params[key] = value
		}
	}
	s.entries[path] = entry
}

// Entry returns the info recorded for a path.
func (s *Store) Entry(path string) (Info, bool) {
	if s == nil {
		return Info{}, false
	}
	entry, ok := s.entries[path]
	return entry, ok
}

// Snapshot returns a copy of every entry. Downstream builders work from the
// snapshot so later mutations cannot bleed into an in-flight derivation.
func (s *Store) Snapshot() map[string]Info {
	if s == nil {
		return nil
	}
	out := make(map[string]Info, len(s.entries))
	for path, entry := range s.entries {
		if entry.Params != nil {
			params := make(map[string]any, len(entry.Params))
			for key, value := range entry.Params {
				params[key] = value
			}
			entry.Params = params
		}
		out[path] = entry
	}
	return out
}

// Paths returns every recorded path in sorted order.
func (s *Store) Paths() []string {
	if s == nil {
		return nil
	}
	paths := make([]string, 0, len(s.entries))
	for path := range s.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (s *Store) seed(fields []model.Field, values map[string]any, editMode bool) {
	for _, field := range fields {
		switch field.Type {
		case model.FieldTypeUnion:
			idx := activeVariantIndex(field, values)
			s.entries[field.Path] = Info{ActiveVariant: idx}
			if idx >= 0 && idx < len(field.Variants) {
				branch, _ := valueAt(values, field.Path).(map[string]any)
				s.seed(field.Variants[idx].Nested, rootedAt(field.Path, branch), editMode)
			}
		case model.FieldTypeObject:
			s.entries[field.Path] = Info{ActiveVariant: -1}
			s.seed(field.Nested, values, editMode)
		case model.FieldTypeArray:
			s.entries[field.Path] = Info{ActiveVariant: -1, Default: seedDefault(field.Default, editMode)}
			if field.Items != nil {
				s.seed([]model.Field{*field.Items}, values, editMode)
			}
		default:
			s.entries[field.Path] = Info{
				ActiveVariant: -1,
				Const:         field.Const,
				Default:       seedDefault(field.Default, editMode),
			}
		}
	}
}

func (s *Store) applyOverrides(overrides Overrides) {
	for path, override := range overrides {
		entry, ok := s.entries[path]
		if !ok {
			// Stale override path, likely from another connector's schema.
			continue
		}
		if override.Widget != "" {
			entry.Widget = override.Widget
		}
		if len(override.Params) > 0 {
			if entry.Params == nil {
				entry.Params = make(map[string]any, len(override.Params))
			}
			for key, value := range override.Params {
				entry.Params[key] = value
			}
		}
		if override.Help != "" {
			entry.Help = override.Help
		}
		s.entries[path] = entry
	}
}

// seedDefault suppresses defaults while editing an existing configuration:
// the saved values are authoritative and the patcher must not introduce
// defaults for fields the user left unset.
func seedDefault(value any, editMode bool) any {
	if editMode {
		return nil
	}
	return value
}

// activeVariantIndex matches the discriminator value present in values
// against the variant constants. Without a match the first variant wins; the
// mismatch surfaces through validation instead of a silent rewrite.
func activeVariantIndex(field model.Field, values map[string]any) int {
	branch, _ := valueAt(values, field.Path).(map[string]any)
	current, _ := branch[field.Discriminator].(string)
	if current == "" {
		return 0
	}
	for idx := range field.Variants {
		if field.VariantConst(idx) == current {
			return idx
		}
	}
	return 0
}

// valueAt resolves a dot path inside the value tree. Array item template
// segments have no concrete value and resolve to nil.
func valueAt(values map[string]any, path string) any {
	if path == "" {
		return values
	}
	var node any = values
	for _, segment := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[segment]
	}
	return node
}

// rootedAt rebuilds a value map keyed so the branch values stay addressable
// by the absolute paths carried on variant descriptors.
func rootedAt(path string, branch map[string]any) map[string]any {
	segments := strings.Split(path, ".")
	out := branch
	for i := len(segments) - 1; i >= 0; i-- {
		out = map[string]any{segments[i]: any(out)}
	}
	return out
}
