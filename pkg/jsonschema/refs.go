package jsonschema

import (
	"strconv"
	"strings"
)

const maxRefDepth = 64

// resolveLocalRefs inlines "$ref" pointers that target the same document
// (#/$defs/... and #/definitions/...). External references are rejected; the
// runtime has no business fetching documents mid-form. Order entries recorded
// for the referenced subtree are copied to the resolution site so declared
// property order survives inlining.
func resolveLocalRefs(payload map[string]any, orders map[string][]string) (map[string]any, error) {
	resolved, err := resolveNode(payload, payload, "#", orders, 0)
	if err != nil {
		return nil, err
	}
	out, ok := resolved.(map[string]any)
	if !ok {
		return nil, schemaErrorf("#", "document root must be an object")
	}
	return out, nil
}

func resolveNode(node any, root map[string]any, path string, orders map[string][]string, depth int) (any, error) {
	if depth > maxRefDepth {
		return nil, schemaErrorf(path, "$ref chain exceeds depth %d", maxRefDepth)
	}

	switch typed := node.(type) {
	case map[string]any:
		if refRaw, ok := typed["$ref"]; ok {
			ref, ok := refRaw.(string)
			if !ok {
				return nil, schemaErrorf(path, "$ref must be a string")
			}
			target, targetPath, err := lookupPointer(root, ref, path)
			if err != nil {
				return nil, err
			}
			remapOrders(orders, targetPath, path)
			return resolveNode(target, root, path, orders, depth+1)
		}

		out := make(map[string]any, len(typed))
		for key, value := range typed {
			child, err := resolveNode(value, root, joinPath(path, key), orders, depth)
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for idx, value := range typed {
			child, err := resolveNode(value, root, joinPath(path, strconv.Itoa(idx)), orders, depth)
			if err != nil {
				return nil, err
			}
			out[idx] = child
		}
		return out, nil
	default:
		return node, nil
	}
}

func lookupPointer(root map[string]any, ref, path string) (any, string, error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, "#/") {
		return nil, "", schemaErrorf(path, "unsupported external $ref %q", ref)
	}

	pointer := "#"
	var node any = root
	for _, segment := range strings.Split(trimmed[2:], "/") {
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, "", schemaErrorf(path, "$ref %q does not resolve to an object member", ref)
		}
		child, ok := obj[segment]
		if !ok {
			return nil, "", schemaErrorf(path, "$ref %q target not found", ref)
		}
		node = child
		pointer = joinPath(pointer, segment)
	}
	return node, pointer, nil
}

// remapOrders copies order entries recorded under the ref target path to the
// path of the resolution site.
func remapOrders(orders map[string][]string, targetPath, sitePath string) {
	if targetPath == sitePath {
		return
	}
	for key, order := range orders {
		if key == targetPath {
			orders[sitePath] = append([]string(nil), order...)
			continue
		}
		if strings.HasPrefix(key, targetPath+"/") {
			orders[sitePath+key[len(targetPath):]] = append([]string(nil), order...)
		}
	}
}
