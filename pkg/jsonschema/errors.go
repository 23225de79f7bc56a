package jsonschema

import (
	"fmt"
	"strings"
)

// SchemaError reports a structurally invalid connector schema. It is fatal at
// build time: the form cannot render until the schema is fixed.
type SchemaError struct {
	Path    string
	Message string
}

func (e SchemaError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "invalid schema"
	}
	if strings.TrimSpace(e.Path) == "" {
		return "jsonschema: " + msg
	}
	return fmt.Sprintf("jsonschema: %s at %s", msg, e.Path)
}

func schemaErrorf(path, format string, args ...any) error {
	return SchemaError{Path: path, Message: fmt.Sprintf(format, args...)}
}
