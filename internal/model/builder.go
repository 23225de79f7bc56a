package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-connform/pkg/jsonschema"
	"github.com/goliatone/go-connform/pkg/schema"
)

const extensionNamespace = "x-connform"

// Builder interprets a canonical connector schema into the ordered descriptor
// tree the rendering layer consumes.
type Builder struct {
	opts Options
}

// New creates a Builder with the supplied options.
func New(options Options) *Builder {
	opts := defaultOptions()
	if options.Labeler != nil {
		opts.Labeler = options.Labeler
	}
	return &Builder{opts: opts}
}

// Build walks the canonical schema and returns the top-level descriptors in
// declared order. Building the same schema twice yields identical trees.
func (b *Builder) Build(root schema.Schema) ([]Field, error) {
	if root.Type != "object" {
		return nil, fmt.Errorf("model builder: canonical schema must be an object, got %q", root.Type)
	}
	return b.fieldsFromObject(root, "")
}

func (b *Builder) fieldsFromObject(node schema.Schema, parentPath string) ([]Field, error) {
	names := node.OrderedProperties()
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		child := node.Properties[name]
		field, err := b.fieldFor(name, childPath(parentPath, name), child, node.IsRequired(name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (b *Builder) fieldFor(name, path string, node schema.Schema, required bool) (Field, error) {
	switch {
	case node.IsUnion():
		return b.fieldFromUnion(name, path, node, required)
	case node.Type == "object":
		return b.fieldFromObjectNode(name, path, node, required)
	case node.Type == "array":
		return b.fieldFromArray(name, path, node, required)
	default:
		return b.fieldFromPrimitive(name, path, node, required), nil
	}
}

func (b *Builder) fieldFromObjectNode(name, path string, node schema.Schema, required bool) (Field, error) {
	nested, err := b.fieldsFromObject(node, path)
	if err != nil {
		return Field{}, err
	}

	field := Field{
		Path:        path,
		Name:        name,
		Type:        FieldTypeObject,
		Required:    required,
		Label:       b.label(name, node),
		Description: node.Description,
		Default:     node.Default,
		Nested:      nested,
	}
	b.decorate(&field, node)
	return field, nil
}

func (b *Builder) fieldFromArray(name, path string, node schema.Schema, required bool) (Field, error) {
	if node.Items == nil {
		return Field{}, fmt.Errorf("model builder: array field %q missing items", path)
	}

	item, err := b.fieldFor("items", path+".items", *node.Items, false)
	if err != nil {
		return Field{}, err
	}

	field := Field{
		Path:        path,
		Name:        name,
		Type:        FieldTypeArray,
		Required:    required,
		Label:       b.label(name, node),
		Description: node.Description,
		Default:     node.Default,
		Items:       &item,
	}
	applyValidations(&field, node)
	b.decorate(&field, node)
	return field, nil
}

func (b *Builder) fieldFromUnion(name, path string, node schema.Schema, required bool) (Field, error) {
	discriminator, err := jsonschema.Discriminator(node, path)
	if err != nil {
		return Field{}, err
	}

	variants := make([]Field, 0, len(node.OneOf))
	for idx, variant := range node.OneOf {
		nested, err := b.fieldsFromObject(variant, path)
		if err != nil {
			return Field{}, fmt.Errorf("model builder: union %q variant %d: %w", path, idx, err)
		}
		label := variant.Title
		if label == "" {
			label = b.opts.Labeler(variantConst(variant, discriminator))
		}
		variants = append(variants, Field{
			Path:        path,
			Name:        name,
			Type:        FieldTypeObject,
			Label:       label,
			Description: variant.Description,
			Nested:      nested,
		})
	}

	field := Field{
		Path:          path,
		Name:          name,
		Type:          FieldTypeUnion,
		Required:      required,
		Label:         b.label(name, node),
		Description:   node.Description,
		Variants:      variants,
		Discriminator: discriminator,
	}
	b.decorate(&field, node)
	return field, nil
}

func (b *Builder) fieldFromPrimitive(name, path string, node schema.Schema, required bool) Field {
	field := Field{
		Path:        path,
		Name:        name,
		Type:        mapType(node.Type),
		Format:      node.Format,
		Required:    required,
		Label:       b.label(name, node),
		Description: node.Description,
		Const:       node.Const,
		Default:     node.Default,
	}
	if len(node.Enum) > 0 {
		field.Enum = append([]any(nil), node.Enum...)
	}
	applyValidations(&field, node)
	b.decorate(&field, node)
	return field
}

func (b *Builder) label(name string, node schema.Schema) string {
	if node.Title != "" {
		return node.Title
	}
	return b.opts.Labeler(name)
}

func (b *Builder) decorate(field *Field, node schema.Schema) {
	meta := metadataFromExtensions(node.Extensions)
	if len(meta) > 0 {
		field.Metadata = meta
	}
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func variantConst(variant schema.Schema, discriminator string) string {
	prop, ok := variant.Properties[discriminator]
	if !ok {
		return ""
	}
	if value, ok := prop.Const.(string); ok {
		return value
	}
	if len(prop.Enum) == 1 {
		if value, ok := prop.Enum[0].(string); ok {
			return value
		}
	}
	return ""
}

func mapType(schemaType string) FieldType {
	switch schemaType {
	case "integer":
		return FieldTypeInteger
	case "number":
		return FieldTypeNumber
	case "boolean":
		return FieldTypeBoolean
	case "array":
		return FieldTypeArray
	case "object":
		return FieldTypeObject
	default:
		return FieldTypeString
	}
}

func applyValidations(field *Field, node schema.Schema) {
	if node.Minimum != nil {
		params := map[string]string{
			"value": formatFloat(*node.Minimum),
		}
		if node.ExclusiveMinimum {
			params["exclusive"] = "true"
		}
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRuleMin,
			Params: params,
		})
	}

	if node.Maximum != nil {
		params := map[string]string{
			"value": formatFloat(*node.Maximum),
		}
		if node.ExclusiveMaximum {
			params["exclusive"] = "true"
		}
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRuleMax,
			Params: params,
		})
	}

	if node.MinLength != nil {
		field.Validations = append(field.Validations, ValidationRule{
			Kind: ValidationRuleMinLength,
			Params: map[string]string{
				"value": strconv.Itoa(*node.MinLength),
			},
		})
	}

	if node.MaxLength != nil {
		field.Validations = append(field.Validations, ValidationRule{
			Kind: ValidationRuleMaxLength,
			Params: map[string]string{
				"value": strconv.Itoa(*node.MaxLength),
			},
		})
	}

	if node.Pattern != "" {
		field.Validations = append(field.Validations, ValidationRule{
			Kind: ValidationRulePattern,
			Params: map[string]string{
				"pattern": node.Pattern,
			},
		})
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func metadataFromExtensions(ext map[string]any) map[string]string {
	if len(ext) == 0 {
		return nil
	}

	result := make(map[string]string)
	for key, value := range ext {
		if key == extensionNamespace {
			nested, ok := value.(map[string]any)
			if !ok {
				continue
			}
			for nestedKey, nestedValue := range nested {
				if str, ok := stringifyExtension(nestedValue); ok {
					result[nestedKey] = str
				}
			}
			continue
		}
		if strings.HasPrefix(key, extensionNamespace+"-") {
			trimmed := strings.TrimPrefix(key, extensionNamespace+"-")
			if str, ok := stringifyExtension(value); ok {
				result[trimmed] = str
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

func stringifyExtension(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
