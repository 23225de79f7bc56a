package model

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/goliatone/go-connform/pkg/jsonschema"
	"github.com/goliatone/go-connform/pkg/schema"
)

// Values computes the initial value tree for a canonical schema: schema
// defaults, overlaid by supplied prior values, overlaid by schema constants.
// Constants always take final precedence. In edit mode the saved values are
// authoritative: defaults are not injected, and a discriminator value that
// matches no variant is preserved so validation can flag it instead of a
// silent rewrite.
func (b *Builder) Values(root schema.Schema, prior map[string]any, edit bool) (map[string]any, error) {
	if root.Type != "object" {
		return nil, fmt.Errorf("model builder: canonical schema must be an object, got %q", root.Type)
	}

	merged := defaultsForObject(root, prior, edit)
	if len(prior) > 0 {
		if err := mergo.Merge(&merged, deepCopyMap(prior), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("model builder: merge prior values: %w", err)
		}
	}

	consts := constantsForObject(root, merged, edit)
	if len(consts) > 0 {
		if err := mergo.Merge(&merged, consts, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("model builder: merge constants: %w", err)
		}
	}
	return merged, nil
}

// ActiveVariant selects the union variant whose discriminator constant
// matches the supplied value map. It falls back to the first variant when no
// match exists.
func ActiveVariant(union schema.Schema, discriminator string, values map[string]any) int {
	current, _ := values[discriminator].(string)
	if current == "" {
		return 0
	}
	for idx, variant := range union.OneOf {
		if variantConst(variant, discriminator) == current {
			return idx
		}
	}
	return 0
}

func defaultsForObject(node schema.Schema, prior map[string]any, edit bool) map[string]any {
	out := make(map[string]any)
	for _, name := range node.OrderedProperties() {
		child := node.Properties[name]
		childPrior, _ := prior[name].(map[string]any)

		switch {
		case child.IsUnion():
			discriminator, err := discriminatorName(child)
			if err != nil {
				continue
			}
			idx := ActiveVariant(child, discriminator, childPrior)
			variant := child.OneOf[idx]
			merged := defaultsForObject(variant, childPrior, edit)
			merged[discriminator] = variantConst(variant, discriminator)
			out[name] = merged
		case child.Type == "object":
			nested := defaultsForObject(child, childPrior, edit)
			if len(nested) > 0 {
				out[name] = nested
			}
		case child.Type == "array":
			if child.Default != nil && !edit {
				out[name] = deepCopyValue(child.Default)
			}
		default:
			if child.Const != nil {
				out[name] = deepCopyValue(child.Const)
			} else if child.Default != nil && !edit {
				out[name] = deepCopyValue(child.Default)
			}
		}
	}
	return out
}

func constantsForObject(node schema.Schema, current map[string]any, edit bool) map[string]any {
	out := make(map[string]any)
	for _, name := range node.OrderedProperties() {
		child := node.Properties[name]
		childCurrent, _ := current[name].(map[string]any)

		switch {
		case child.IsUnion():
			discriminator, err := discriminatorName(child)
			if err != nil {
				continue
			}
			idx := ActiveVariant(child, discriminator, childCurrent)
			variant := child.OneOf[idx]
			nested := constantsForObject(variant, childCurrent, edit)
			if nested == nil {
				nested = make(map[string]any)
			}
			if edit && unmatchedDiscriminator(child, discriminator, childCurrent) {
				// The variant recursion pinned its own discriminator const;
				// drop it so the saved value survives the final merge.
				delete(nested, discriminator)
			} else {
				nested[discriminator] = variantConst(variant, discriminator)
			}
			if len(nested) > 0 {
				out[name] = nested
			}
		case child.Type == "object":
			nested := constantsForObject(child, childCurrent, edit)
			if len(nested) > 0 {
				out[name] = nested
			}
		default:
			if child.Const != nil {
				out[name] = deepCopyValue(child.Const)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// unmatchedDiscriminator reports whether the value map holds a discriminator
// that belongs to no variant of the union.
func unmatchedDiscriminator(union schema.Schema, discriminator string, values map[string]any) bool {
	current, _ := values[discriminator].(string)
	if current == "" {
		return false
	}
	for _, variant := range union.OneOf {
		if variantConst(variant, discriminator) == current {
			return false
		}
	}
	return true
}

func discriminatorName(union schema.Schema) (string, error) {
	return jsonschema.Discriminator(union, "")
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = deepCopyValue(value)
	}
	return out
}

func deepCopyValue(in any) any {
	switch typed := in.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		out := make([]any, len(typed))
		for idx, item := range typed {
			out[idx] = deepCopyValue(item)
		}
		return out
	default:
		return in
	}
}
