package form

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-connform/pkg/jsonschema"
	"github.com/goliatone/go-connform/pkg/model"
	"github.com/goliatone/go-connform/pkg/schema"
	"github.com/goliatone/go-connform/pkg/validation"
	"github.com/goliatone/go-connform/pkg/widgets"
)

// Session coordinates the form pipeline for one connector configuration.
// Every mutation runs the same fixed sequence: canonical schema, descriptor
// tree, widget reset, validation rebuild, value patch, revalidate. A Session
// is single-threaded; callers serialize access.
type Session struct {
	builder   model.Builder
	registry  *widgets.Registry
	overrides map[string]widgets.Overrides
	messages  *validation.MessageSet
	editMode  bool

	spec        schema.ConnectorSpec
	root        schema.Schema
	fields      []model.Field
	store       *widgets.Store
	compiled    *validation.Compiled
	values      map[string]any
	issues      []validation.Issue
	fingerprint string
}

// Option configures a Session before the first connector selection.
type Option func(*Session)

// WithRegistry replaces the built-in widget registry.
func WithRegistry(registry *widgets.Registry) Option {
	return func(s *Session) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithOverrides supplies widget override documents keyed by service type.
func WithOverrides(overrides map[string]widgets.Overrides) Option {
	return func(s *Session) {
		s.overrides = overrides
	}
}

// WithMessages replaces the validation message templates.
func WithMessages(messages *validation.MessageSet) Option {
	return func(s *Session) {
		if messages != nil {
			s.messages = messages
		}
	}
}

// WithEditMode marks the session as editing an existing configuration.
// Edit mode keeps prior values authoritative: defaults are not seeded into
// widget metadata and union fallbacks leave validation to flag mismatches.
func WithEditMode(edit bool) Option {
	return func(s *Session) {
		s.editMode = edit
	}
}

// WithBuilder replaces the descriptor tree builder.
func WithBuilder(builder model.Builder) Option {
	return func(s *Session) {
		if builder != nil {
			s.builder = builder
		}
	}
}

// NewSession returns an empty session. Nothing is usable until
// SelectConnector succeeds.
func NewSession(options ...Option) *Session {
	s := &Session{
		builder:  model.NewBuilder(),
		registry: widgets.NewRegistry(),
		messages: validation.DefaultMessages(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SelectConnector rebuilds the whole pipeline for the given connector.
// Prior values are carried into the new value tree where the schema still
// declares them. The rebuild is atomic: on any error the session keeps the
// previously selected connector's artifacts untouched.
func (s *Session) SelectConnector(spec schema.ConnectorSpec, prior map[string]any) error {
	root, err := jsonschema.Canonical(spec)
	if err != nil {
		return fmt.Errorf("form: select connector %q: %w", spec.ServiceType, err)
	}

	builder := s.builder
	fields, err := builder.Build(root)
	if err != nil {
		return fmt.Errorf("form: select connector %q: %w", spec.ServiceType, err)
	}

	values, err := builder.Values(root, prior, s.editMode)
	if err != nil {
		return fmt.Errorf("form: select connector %q: %w", spec.ServiceType, err)
	}
	values[schema.EnvelopeServiceType] = spec.ServiceType
	if _, ok := values[schema.EnvelopeName]; !ok {
		values[schema.EnvelopeName] = ""
	}

	store := widgets.NewStore(fields, values, s.overridesFor(spec.ServiceType), s.editMode)
	s.registry.Decorate(store, fields)

	compiled, err := validation.Compile(root, store.Snapshot(), validation.WithMessages(s.messages))
	if err != nil {
		return fmt.Errorf("form: select connector %q: %w", spec.ServiceType, err)
	}

	s.spec = spec
	s.root = root
	s.fields = fields
	s.values = values
	s.store = store
	s.compiled = compiled
	s.fingerprint = compiled.Fingerprint()
	s.issues = compiled.Validate(values)
	return nil
}

// SelectVariant switches the active oneOf branch at a union path. The switch
// is expressed as a value change: the discriminator receives the variant's
// constant, then the standard rebuild cycle runs so widget metadata, rules,
// and values all follow the new branch.
func (s *Session) SelectVariant(path string, index int) error {
	if s.store == nil {
		return fmt.Errorf("form: no connector selected")
	}
	union, ok := s.unionAt(path)
	if !ok {
		return fmt.Errorf("form: no union field at %q", path)
	}
	if index < 0 || index >= len(union.Variants) {
		return fmt.Errorf("form: variant %d out of range at %q", index, path)
	}
	constant := union.VariantConst(index)
	if constant == "" {
		return fmt.Errorf("form: variant %d at %q has no discriminator constant", index, path)
	}

	if err := s.writeValue(path+"."+union.Discriminator, constant); err != nil {
		return err
	}
	return s.rebuild()
}

// SetValue writes a single value by dot path and revalidates. Intermediate
// objects are created on demand.
func (s *Session) SetValue(path string, value any) error {
	if s.compiled == nil {
		return fmt.Errorf("form: no connector selected")
	}
	if err := s.writeValue(path, value); err != nil {
		return err
	}
	s.issues = s.compiled.Validate(s.values)
	return nil
}

// MergeWidget applies a partial widget update and rebuilds the rule set.
// Revalidation only happens when the merge actually changed the compiled
// rules, which the fingerprint detects.
func (s *Session) MergeWidget(path string, patch widgets.Patch) error {
	if s.store == nil {
		return fmt.Errorf("form: no connector selected")
	}
	s.store.Merge(path, patch)

	compiled, err := validation.Compile(s.root, s.store.Snapshot(), validation.WithMessages(s.messages))
	if err != nil {
		return fmt.Errorf("form: merge widget at %q: %w", path, err)
	}
	s.compiled = compiled
	if compiled.Fingerprint() != s.fingerprint {
		s.fingerprint = compiled.Fingerprint()
		s.issues = compiled.Validate(s.values)
	}
	return nil
}

// Refresh re-runs the pipeline stages downstream of the descriptor tree:
// widget reset, rule rebuild, value patch, revalidation. Callers use it after
// writing values outside the session's own mutators.
func (s *Session) Refresh() error {
	if s.store == nil {
		return fmt.Errorf("form: no connector selected")
	}
	return s.rebuild()
}

// Validate re-runs validation against the current values and returns the
// findings.
func (s *Session) Validate() []validation.Issue {
	if s.compiled == nil {
		return nil
	}
	s.issues = s.compiled.Validate(s.values)
	return s.Issues()
}

// Submit casts the current values and returns them when validation is clean.
// Findings block submission; the returned SubmitError carries them.
func (s *Session) Submit(opts validation.CastOptions) (map[string]any, error) {
	if s.compiled == nil {
		return nil, fmt.Errorf("form: no connector selected")
	}
	issues := s.compiled.Validate(s.values)
	s.issues = issues
	if len(issues) > 0 {
		return nil, &SubmitError{ServiceType: s.spec.ServiceType, Issues: issues}
	}
	return s.compiled.Cast(s.values, opts), nil
}

// rebuild reruns the pipeline stages downstream of the descriptor tree: the
// schema and tree are unchanged, so only widgets, rules, values, and findings
// are recomputed.
func (s *Session) rebuild() error {
	s.store.Reset(s.fields, s.values, s.overridesFor(s.spec.ServiceType), s.editMode)
	s.registry.Decorate(s.store, s.fields)

	compiled, err := validation.Compile(s.root, s.store.Snapshot(), validation.WithMessages(s.messages))
	if err != nil {
		return fmt.Errorf("form: rebuild %q: %w", s.spec.ServiceType, err)
	}

	if err := s.patchValues(); err != nil {
		return err
	}

	s.compiled = compiled
	s.fingerprint = compiled.Fingerprint()
	s.issues = compiled.Validate(s.values)
	return nil
}

// patchValues reapplies widget-store constants and defaults to the
// connection subtree: constants always win, defaults only fill absent
// entries. The store seeds no defaults in edit mode, so the saved values
// stay untouched there. The envelope fields are left alone, mismatches
// there belong to validation.
func (s *Session) patchValues() error {
	snapshot := s.store.Snapshot()
	for _, field := range s.fields {
		if field.Path != schema.EnvelopeConnectionKey {
			continue
		}
		return s.patchFields(field.Nested, snapshot)
	}
	return fmt.Errorf("form: canonical schema missing %q", schema.EnvelopeConnectionKey)
}

func (s *Session) patchFields(fields []model.Field, snapshot map[string]widgets.Info) error {
	for _, field := range fields {
		if err := s.patchField(field, snapshot); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) patchField(field model.Field, snapshot map[string]widgets.Info) error {
	entry := snapshot[field.Path]
	switch field.Type {
	case model.FieldTypeUnion:
		idx := entry.ActiveVariant
		if idx < 0 || idx >= len(field.Variants) {
			idx = 0
		}
		keep := s.keepsUnmatchedDiscriminator(field)
		for _, nested := range field.Variants[idx].Nested {
			if keep && nested.Name == field.Discriminator {
				continue
			}
			if err := s.patchField(nested, snapshot); err != nil {
				return err
			}
		}
	case model.FieldTypeObject:
		return s.patchFields(field.Nested, snapshot)
	case model.FieldTypeArray:
		if entry.Default != nil && s.valueAbsent(field.Path) {
			return s.writeValue(field.Path, copyTree(entry.Default))
		}
	default:
		if entry.Const != nil {
			return s.writeValue(field.Path, copyTree(entry.Const))
		}
		if entry.Default != nil && s.valueAbsent(field.Path) {
			return s.writeValue(field.Path, copyTree(entry.Default))
		}
	}
	return nil
}

// keepsUnmatchedDiscriminator reports whether the union currently holds a
// discriminator value belonging to no variant while editing. Such a value is
// preserved so validation flags the mismatch instead of a silent rewrite.
func (s *Session) keepsUnmatchedDiscriminator(field model.Field) bool {
	if !s.editMode {
		return false
	}
	value, ok := s.Value(field.Path + "." + field.Discriminator)
	if !ok {
		return false
	}
	current, ok := value.(string)
	if !ok || current == "" {
		return false
	}
	for idx := range field.Variants {
		if field.VariantConst(idx) == current {
			return false
		}
	}
	return true
}

func (s *Session) valueAbsent(path string) bool {
	value, ok := s.Value(path)
	return !ok || value == nil
}

func (s *Session) writeValue(path string, value any) error {
	if path == "" {
		return fmt.Errorf("form: empty value path")
	}
	segments := strings.Split(path, ".")
	node := s.values
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			if existing, present := node[segment]; present && existing != nil {
				return fmt.Errorf("form: path %q crosses non-object value", path)
			}
			next = make(map[string]any)
			node[segment] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
	return nil
}

func (s *Session) unionAt(path string) (model.Field, bool) {
	var found model.Field
	var ok bool
	model.Walk(s.fields, func(field model.Field) {
		if field.Path == path && field.Type == model.FieldTypeUnion {
			found = field
			ok = true
		}
	})
	return found, ok
}

func (s *Session) overridesFor(serviceType string) widgets.Overrides {
	if s.overrides == nil {
		return nil
	}
	return s.overrides[serviceType]
}

// ServiceType reports the selected connector, "" before any selection.
func (s *Session) ServiceType() string {
	return s.spec.ServiceType
}

// Fields returns the current descriptor tree.
func (s *Session) Fields() []model.Field {
	return s.fields
}

// Values returns a deep copy of the current value tree.
func (s *Session) Values() map[string]any {
	copied, _ := copyTree(s.values).(map[string]any)
	return copied
}

// Value resolves a single dot path against the current values.
func (s *Session) Value(path string) (any, bool) {
	node := any(s.values)
	for _, segment := range strings.Split(path, ".") {
		object, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = object[segment]
		if !ok {
			return nil, false
		}
	}
	return copyTree(node), true
}

// Widgets exposes the widget metadata store for the current schema.
func (s *Session) Widgets() *widgets.Store {
	return s.store
}

// Issues returns the findings from the most recent validation pass.
func (s *Session) Issues() []validation.Issue {
	out := make([]validation.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Fingerprint identifies the current compiled rule set.
func (s *Session) Fingerprint() string {
	return s.fingerprint
}

func copyTree(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			out[key] = copyTree(entry)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for index, entry := range typed {
			out[index] = copyTree(entry)
		}
		return out
	default:
		return typed
	}
}
