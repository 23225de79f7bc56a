package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/goliatone/go-connform/pkg/jsonschema"
	"github.com/goliatone/go-connform/pkg/schema"
	"github.com/goliatone/go-connform/pkg/widgets"
)

// Issue is a non-fatal, field-scoped validation finding. Issues block
// submission but never block further editing.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Compiled is the rule tree derived from a canonical schema and a widget
// metadata snapshot. Union nodes compile exactly one child subtree: the
// currently active variant. Inactive variants contribute no rules at all.
type Compiled struct {
	root        *rule
	messages    *MessageSet
	fingerprint string
}

type rule struct {
	path       string
	typ        string
	format     string
	label      string
	constVal   any
	enum       []any
	pattern    *regexp.Regexp
	patternSrc string
	min, max   *float64
	exclMin    bool
	exclMax    bool
	minLen     *int
	maxLen     *int
	required   map[string]struct{}
	order      []string
	properties map[string]*rule
	items      *rule
}

// Option configures compilation.
type Option func(*compileOptions)

type compileOptions struct {
	messages *MessageSet
	labeler  func(string) string
}

// WithMessages overrides the default validation message templates.
func WithMessages(messages *MessageSet) Option {
	return func(opts *compileOptions) {
		opts.messages = messages
	}
}

// WithLabeler overrides how property names become message labels.
func WithLabeler(labeler func(string) string) Option {
	return func(opts *compileOptions) {
		opts.labeler = labeler
	}
}

// Compile combines the canonical schema with the current widget snapshot
// into a rule tree. The result is a pure function of its inputs: compiling
// the same schema and snapshot twice yields the same fingerprint.
func Compile(root schema.Schema, snapshot map[string]widgets.Info, options ...Option) (*Compiled, error) {
	opts := compileOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&opts)
	}
	if opts.messages == nil {
		opts.messages = DefaultMessages()
	}
	if opts.labeler == nil {
		opts.labeler = defaultLabel
	}

	if root.Type != "object" {
		return nil, fmt.Errorf("validation: canonical schema must be an object, got %q", root.Type)
	}

	compiler := &compiler{snapshot: snapshot, labeler: opts.labeler}
	node, err := compiler.compileNode(root, "", "")
	if err != nil {
		return nil, err
	}

	fingerprint, err := fingerprintRule(node)
	if err != nil {
		return nil, err
	}

	return &Compiled{root: node, messages: opts.messages, fingerprint: fingerprint}, nil
}

// Fingerprint identifies the compiled rule tree. It changes whenever the
// schema or any widget entry relevant to an active branch changes, which
// downstream components use as the revalidation signal.
func (c *Compiled) Fingerprint() string {
	if c == nil {
		return ""
	}
	return c.fingerprint
}

type compiler struct {
	snapshot map[string]widgets.Info
	labeler  func(string) string
}

func (c *compiler) compileNode(node schema.Schema, path, name string) (*rule, error) {
	if node.IsUnion() {
		return c.compileUnion(node, path, name)
	}

	out := &rule{
		path:       path,
		typ:        node.Type,
		format:     node.Format,
		label:      c.label(name, node),
		constVal:   node.Const,
		patternSrc: node.Pattern,
		min:        node.Minimum,
		max:        node.Maximum,
		exclMin:    node.ExclusiveMinimum,
		exclMax:    node.ExclusiveMaximum,
		minLen:     node.MinLength,
		maxLen:     node.MaxLength,
	}
	if len(node.Enum) > 0 {
		out.enum = append([]any(nil), node.Enum...)
	}
	if entry, ok := c.snapshot[path]; ok && entry.Const != nil {
		out.constVal = entry.Const
	}
	if node.Pattern != "" {
		compiled, err := regexp.Compile(node.Pattern)
		if err != nil {
			return nil, fmt.Errorf("validation: pattern at %q: %w", path, err)
		}
		out.pattern = compiled
	}

	switch node.Type {
	case "object":
		out.required = make(map[string]struct{}, len(node.Required))
		for _, item := range node.Required {
			out.required[item] = struct{}{}
		}
		out.order = node.OrderedProperties()
		out.properties = make(map[string]*rule, len(out.order))
		for _, child := range out.order {
			compiled, err := c.compileNode(node.Properties[child], joinDotted(path, child), child)
			if err != nil {
				return nil, err
			}
			out.properties[child] = compiled
		}
	case "array":
		if node.Items != nil {
			compiled, err := c.compileNode(*node.Items, path+".items", "items")
			if err != nil {
				return nil, err
			}
			out.items = compiled
		}
	}

	return out, nil
}

// compileUnion selects the active variant from the widget snapshot and
// compiles only that subtree, pinning the discriminator to the variant's
// constant so a mismatched value surfaces as a field error.
func (c *compiler) compileUnion(node schema.Schema, path, name string) (*rule, error) {
	discriminator, err := jsonschema.Discriminator(node, path)
	if err != nil {
		return nil, err
	}

	active := 0
	if entry, ok := c.snapshot[path]; ok && entry.ActiveVariant >= 0 {
		active = entry.ActiveVariant
	}
	if active >= len(node.OneOf) {
		return nil, fmt.Errorf("validation: active variant %d out of range at %q", active, path)
	}

	variant := node.OneOf[active]
	out, err := c.compileNode(variant, path, name)
	if err != nil {
		return nil, err
	}
	out.label = c.label(name, node)

	if _, ok := out.required[discriminator]; !ok {
		if out.required == nil {
			out.required = make(map[string]struct{}, 1)
		}
		out.required[discriminator] = struct{}{}
	}
	return out, nil
}

func (c *compiler) label(name string, node schema.Schema) string {
	if node.Title != "" {
		return node.Title
	}
	if name == "" {
		return "configuration"
	}
	return c.labeler(name)
}

func defaultLabel(name string) string {
	return name
}

func joinDotted(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// ruleSignature mirrors rule with exported fields so the tree serialises
// deterministically for fingerprinting.
type ruleSignature struct {
	Path       string          `json:"path"`
	Type       string          `json:"type"`
	Format     string          `json:"format,omitempty"`
	Const      any             `json:"const,omitempty"`
	Enum       []any           `json:"enum,omitempty"`
	Pattern    string          `json:"pattern,omitempty"`
	Min        *float64        `json:"min,omitempty"`
	Max        *float64        `json:"max,omitempty"`
	ExclMin    bool            `json:"exclMin,omitempty"`
	ExclMax    bool            `json:"exclMax,omitempty"`
	MinLen     *int            `json:"minLen,omitempty"`
	MaxLen     *int            `json:"maxLen,omitempty"`
	Required   []string        `json:"required,omitempty"`
	Properties []ruleSignature `json:"properties,omitempty"`
	Items      *ruleSignature  `json:"items,omitempty"`
}

func fingerprintRule(node *rule) (string, error) {
	payload, err := json.Marshal(signatureFor(node))
	if err != nil {
		return "", fmt.Errorf("validation: fingerprint: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func signatureFor(node *rule) ruleSignature {
	sig := ruleSignature{
		Path:    node.path,
		Type:    node.typ,
		Format:  node.format,
		Const:   node.constVal,
		Enum:    node.enum,
		Pattern: node.patternSrc,
		Min:     node.min,
		Max:     node.max,
		ExclMin: node.exclMin,
		ExclMax: node.exclMax,
		MinLen:  node.minLen,
		MaxLen:  node.maxLen,
	}
	for _, name := range node.order {
		if _, ok := node.required[name]; ok {
			sig.Required = append(sig.Required, name)
		}
	}
	for _, name := range node.order {
		sig.Properties = append(sig.Properties, signatureFor(node.properties[name]))
	}
	if node.items != nil {
		items := signatureFor(node.items)
		sig.Items = &items
	}
	return sig
}
