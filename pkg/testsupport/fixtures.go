// Package testsupport carries fixture and golden-file helpers shared by the
// package test suites. Helpers fail the test on error to keep contract tests
// concise; golden files regenerate when UPDATE_GOLDENS is set.
package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	pkgmodel "github.com/goliatone/go-connform/pkg/model"
	pkgschema "github.com/goliatone/go-connform/pkg/schema"
)

// LoadSpec reads a connector schema fixture and wraps it as a ConnectorSpec.
// The service type defaults to the fixture's base name without extension.
func LoadSpec(t *testing.T, path string) pkgschema.ConnectorSpec {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load spec fixture: %v", err)
	}
	base := filepath.Base(path)
	serviceType := base[:len(base)-len(filepath.Ext(base))]
	return pkgschema.ConnectorSpec{ServiceType: serviceType, Schema: data}
}

// MustLoadFields loads a JSON golden file into a descriptor slice.
func MustLoadFields(t *testing.T, path string) []pkgmodel.Field {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load golden: %v", err)
	}
	var out []pkgmodel.Field
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
	return out
}

// MustUnmarshalValues parses inline JSON into a value tree. Fixture values in
// tests keep the same shape as values decoded from the wire.
func MustUnmarshalValues(t *testing.T, raw string) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("unmarshal values: %v", err)
	}
	return out
}

// WriteGolden rewrites a golden file when UPDATE_GOLDENS is set. Returns true
// when the file was written so callers can skip the comparison.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden: %v", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return bytes.TrimRight(data, "\n")
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns the context used across contract tests.
func Context() context.Context {
	return context.Background()
}

// DumpJSON renders a value as indented JSON for golden comparison.
func DumpJSON(t *testing.T, value any) string {
	t.Helper()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

// Fixture joins a testdata-relative path.
func Fixture(parts ...string) string {
	return filepath.Join(append([]string{"testdata"}, parts...)...)
}
