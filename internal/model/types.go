package model

// FieldType is the enum for field descriptor kinds. Primitives keep their
// schema type name; composites use object/array/union.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
	FieldTypeUnion   FieldType = "union"
)

const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
)

// ValidationRule represents a single declarative constraint carried on a
// descriptor. Numeric bounds and length limits encode their threshold in
// Params["value"]; pattern rules keep the expression in Params["pattern"].
// Boolean flags such as exclusivity are encoded as string values to keep JSON
// snapshots stable.
type ValidationRule struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// Field is a node in the descriptor tree the rendering layer consumes. Paths
// use dot notation rooted at the envelope; array item templates append
// ".items". Struct fields are annotated so consumers can serialise descriptor
// trees directly.
type Field struct {
	Path          string            `json:"path"`
	Name          string            `json:"name"`
	Type          FieldType         `json:"type"`
	Format        string            `json:"format,omitempty"`
	Required      bool              `json:"required"`
	Label         string            `json:"label,omitempty"`
	Description   string            `json:"description,omitempty"`
	Const         any               `json:"const,omitempty"`
	Default       any               `json:"default,omitempty"`
	Enum          []any             `json:"enum,omitempty"`
	Nested        []Field           `json:"nested,omitempty"`
	Items         *Field            `json:"items,omitempty"`
	Variants      []Field           `json:"variants,omitempty"`
	Discriminator string            `json:"discriminator,omitempty"`
	Validations   []ValidationRule  `json:"validations,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// VariantConst returns the discriminator constant carried by the variant at
// the supplied index, or "" when out of range.
func (f Field) VariantConst(index int) string {
	if f.Type != FieldTypeUnion || index < 0 || index >= len(f.Variants) {
		return ""
	}
	for _, nested := range f.Variants[index].Nested {
		if nested.Name == f.Discriminator {
			if value, ok := nested.Const.(string); ok {
				return value
			}
		}
	}
	return ""
}

// Walk visits every descriptor in the tree depth-first, parents before
// children. Union variants and array item templates are visited too.
func Walk(fields []Field, visit func(Field)) {
	for _, field := range fields {
		visit(field)
		switch {
		case len(field.Nested) > 0:
			Walk(field.Nested, visit)
		case field.Items != nil:
			Walk([]Field{*field.Items}, visit)
		}
		if len(field.Variants) > 0 {
			Walk(field.Variants, visit)
		}
	}
}
