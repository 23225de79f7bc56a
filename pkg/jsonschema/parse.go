package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-connform/pkg/schema"
)

// Parse converts a raw JSON-Schema-like connector configuration document into
// the canonical schema tree. Declared property order is preserved and local
// $ref pointers are inlined before normalization.
func Parse(raw []byte) (schema.Schema, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return schema.Schema{}, errors.New("jsonschema: raw schema is empty")
	}

	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return schema.Schema{}, fmt.Errorf("jsonschema: parse schema: %w", err)
	}
	if payload == nil {
		return schema.Schema{}, errors.New("jsonschema: schema is nil")
	}

	orders, err := propertyOrders(trimmed)
	if err != nil {
		return schema.Schema{}, err
	}

	resolved, err := resolveLocalRefs(payload, orders)
	if err != nil {
		return schema.Schema{}, err
	}

	return normalizeNode(resolved, "#", orders)
}

// ParseDocument parses a loaded Document.
func ParseDocument(doc Document) (schema.Schema, error) {
	return Parse(doc.Raw())
}

// Canonical parses a connector spec's configuration schema and wraps it in
// the fixed name/serviceType/connectionConfiguration envelope. This is the
// entry point the form pipeline uses when a connector is selected.
func Canonical(spec schema.ConnectorSpec) (schema.Schema, error) {
	if err := spec.Validate(); err != nil {
		return schema.Schema{}, err
	}
	connection, err := Parse(spec.Schema)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("jsonschema: connector %q: %w", spec.ServiceType, err)
	}
	if connection.Type != "object" {
		return schema.Schema{}, schemaErrorf("#", "connector %q configuration schema must be an object", spec.ServiceType)
	}
	return schema.Envelope(spec.ServiceType, connection), nil
}
