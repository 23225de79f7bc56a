package schema

import (
	"errors"
	"sort"
	"strings"
)

var (
	errServiceTypeRequired = errors.New("schema: connector service type is required")
	errSchemaRequired      = errors.New("schema: connector schema document is required")
)

// Schema is the canonical connector configuration schema tree produced by the
// jsonschema normalizer and consumed by the field tree and validation
// builders. PropertyOrder preserves the declaration order of Properties so
// downstream trees stay deterministic without sorting.
type Schema struct {
	Type             string
	Format           string
	Title            string
	Description      string
	Default          any
	Enum             []any
	Const            any
	Required         []string
	Properties       map[string]Schema
	PropertyOrder    []string
	Items            *Schema
	OneOf            []Schema
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MinLength        *int
	MaxLength        *int
	Pattern          string
	Extensions       map[string]any
}

// OrderedProperties returns property names in declaration order. Names missing
// from PropertyOrder (programmatically built schemas) are appended sorted so
// the result stays deterministic.
func (s Schema) OrderedProperties() []string {
	if len(s.Properties) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(s.PropertyOrder))
	out := make([]string, 0, len(s.Properties))
	for _, name := range s.PropertyOrder {
		if _, ok := s.Properties[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) < len(s.Properties) {
		tail := make([]string, 0, len(s.Properties)-len(out))
		for name := range s.Properties {
			if _, ok := seen[name]; !ok {
				tail = append(tail, name)
			}
		}
		sort.Strings(tail)
		out = append(out, tail...)
	}
	return out
}

// IsRequired reports whether the named property appears in Required.
func (s Schema) IsRequired(name string) bool {
	for _, item := range s.Required {
		if item == name {
			return true
		}
	}
	return false
}

// IsUnion reports whether the node declares polymorphic oneOf variants.
func (s Schema) IsUnion() bool {
	return len(s.OneOf) > 0
}

// ConnectorSpec identifies a connector type and carries its raw connection
// configuration schema document.
type ConnectorSpec struct {
	ServiceType      string
	Title            string
	DocumentationURL string
	Schema           []byte
}

// Validate checks the spec carries enough data to build a form.
func (c ConnectorSpec) Validate() error {
	if strings.TrimSpace(c.ServiceType) == "" {
		return errServiceTypeRequired
	}
	if len(c.Schema) == 0 {
		return errSchemaRequired
	}
	return nil
}
