package validation_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-connform/pkg/jsonschema"
	"github.com/goliatone/go-connform/pkg/schema"
	"github.com/goliatone/go-connform/pkg/validation"
	"github.com/goliatone/go-connform/pkg/widgets"
)

func mustParse(t *testing.T, raw string) schema.Schema {
	t.Helper()
	parsed, err := jsonschema.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return parsed
}

func mustCompile(t *testing.T, root schema.Schema, snapshot map[string]widgets.Info) *validation.Compiled {
	t.Helper()
	compiled, err := validation.Compile(root, snapshot)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return compiled
}

func issuePaths(issues []validation.Issue) []string {
	var out []string
	for _, issue := range issues {
		out = append(out, issue.Path)
	}
	return out
}

func TestValidate_RequiredAndBounds(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"host": {"type": "string", "minLength": 1},
			"port": {"type": "integer", "minimum": 1, "maximum": 65535}
		},
		"required": ["host"]
	}`)
	compiled := mustCompile(t, root, nil)

	tests := []struct {
		name      string
		values    map[string]any
		wantPaths []string
	}{
		{
			name:      "valid",
			values:    map[string]any{"host": "db.internal", "port": float64(5432)},
			wantPaths: nil,
		},
		{
			name:      "missing required",
			values:    map[string]any{"port": float64(5432)},
			wantPaths: []string{"host"},
		},
		{
			name:      "nil counts as absent",
			values:    map[string]any{"host": nil},
			wantPaths: []string{"host"},
		},
		{
			name:      "port out of range",
			values:    map[string]any{"host": "db", "port": float64(70000)},
			wantPaths: []string{"port"},
		},
		{
			name:      "port not an integer",
			values:    map[string]any{"host": "db", "port": "5432"},
			wantPaths: []string{"port"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			issues := compiled.Validate(tc.values)
			if diff := cmp.Diff(tc.wantPaths, issuePaths(issues)); diff != "" {
				t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_StringConstraints(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"slug": {"type": "string", "minLength": 3, "maxLength": 6, "pattern": "^[a-z]+$"},
			"contact": {"type": "string", "format": "email"},
			"site": {"type": "string", "format": "uri"}
		}
	}`)
	compiled := mustCompile(t, root, nil)

	issues := compiled.Validate(map[string]any{
		"slug":    "Ab",
		"contact": "not-an-email",
		"site":    "example.com",
	})

	want := []string{"slug", "slug", "contact", "site"}
	if diff := cmp.Diff(want, issuePaths(issues)); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Formats(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"createdAt": {"type": "string", "format": "date-time"},
			"id": {"type": "string", "format": "uuid"}
		}
	}`)
	compiled := mustCompile(t, root, nil)

	issues := compiled.Validate(map[string]any{
		"createdAt": "2026-08-31T10:00:00Z",
		"id":        "8f14e45f-ceea-467f-a0e6-8f187a2756bd",
	})
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	issues = compiled.Validate(map[string]any{
		"createdAt": "yesterday",
		"id":        "8f14e45f",
	})
	if diff := cmp.Diff([]string{"createdAt", "id"}, issuePaths(issues)); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_EnumAndConst(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"tier": {"type": "string", "enum": ["basic", "premium"]},
			"vendor": {"type": "string", "const": "acme"}
		}
	}`)
	compiled := mustCompile(t, root, nil)

	issues := compiled.Validate(map[string]any{"tier": "gold", "vendor": "other"})
	if diff := cmp.Diff([]string{"tier", "vendor"}, issuePaths(issues)); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_ArrayElementsCarryIndexedPaths(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"replicas": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"host": {"type": "string"}
					},
					"required": ["host"]
				}
			}
		}
	}`)
	compiled := mustCompile(t, root, nil)

	issues := compiled.Validate(map[string]any{
		"replicas": []any{
			map[string]any{"host": "a"},
			map[string]any{},
			map[string]any{"host": float64(3)},
		},
	})

	want := []string{"replicas.items[1].host", "replicas.items[2].host"}
	if diff := cmp.Diff(want, issuePaths(issues)); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

const unionRaw = `{
	"type": "object",
	"properties": {
		"auth": {
			"oneOf": [
				{
					"type": "object",
					"properties": {
						"method": {"type": "string", "const": "api_key"},
						"apiKey": {"type": "string"}
					},
					"required": ["method", "apiKey"]
				},
				{
					"type": "object",
					"properties": {
						"method": {"type": "string", "const": "oauth"},
						"clientId": {"type": "string"},
						"clientSecret": {"type": "string"}
					},
					"required": ["method", "clientId", "clientSecret"]
				}
			]
		}
	},
	"required": ["auth"]
}`

func TestValidate_UnionOnlyActiveBranchApplies(t *testing.T) {
	root := mustParse(t, unionRaw)

	// First variant active: only apiKey requirements apply, the inactive
	// oauth requirements never fire.
	compiled := mustCompile(t, root, map[string]widgets.Info{
		"auth": {ActiveVariant: 0},
	})
	issues := compiled.Validate(map[string]any{
		"auth": map[string]any{"method": "api_key"},
	})
	if diff := cmp.Diff([]string{"auth.apiKey"}, issuePaths(issues)); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}

	// Second variant active: the discriminator is pinned to oauth, so the
	// stale api_key value is itself a finding.
	compiled = mustCompile(t, root, map[string]widgets.Info{
		"auth": {ActiveVariant: 1},
	})
	issues = compiled.Validate(map[string]any{
		"auth": map[string]any{
			"method":       "api_key",
			"clientId":     "id",
			"clientSecret": "secret",
		},
	})
	if diff := cmp.Diff([]string{"auth.method"}, issuePaths(issues)); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_WidgetConstOverridesSchema(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"region": {"type": "string"}
		}
	}`)
	compiled := mustCompile(t, root, map[string]widgets.Info{
		"region": {Const: "eu-west-1"},
	})

	if issues := compiled.Validate(map[string]any{"region": "eu-west-1"}); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	issues := compiled.Validate(map[string]any{"region": "us-east-1"})
	if diff := cmp.Diff([]string{"region"}, issuePaths(issues)); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MessagesAreTemplated(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"host": {"type": "string", "title": "Host"}
		},
		"required": ["host"]
	}`)

	compiled := mustCompile(t, root, nil)
	issues := compiled.Validate(map[string]any{})
	if len(issues) != 1 || issues[0].Message != "Host is required" {
		t.Fatalf("issues = %v, want 'Host is required'", issues)
	}

	messages, err := validation.NewMessageSet(map[string]string{
		"required": "missing {{ path }}",
	})
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	compiled, err = validation.Compile(root, nil, validation.WithMessages(messages))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	issues = compiled.Validate(map[string]any{})
	if len(issues) != 1 || issues[0].Message != "missing host" {
		t.Fatalf("issues = %v, want 'missing host'", issues)
	}
}

func TestValidate_InvalidPatternFailsCompile(t *testing.T) {
	root := mustParse(t, `{
		"type": "object",
		"properties": {
			"slug": {"type": "string", "pattern": "["}
		}
	}`)
	if _, err := validation.Compile(root, nil); err == nil {
		t.Fatal("compile succeeded, want pattern error")
	}
}

func TestFingerprint_TracksRuleChanges(t *testing.T) {
	root := mustParse(t, unionRaw)

	base := mustCompile(t, root, map[string]widgets.Info{"auth": {ActiveVariant: 0}})
	same := mustCompile(t, root, map[string]widgets.Info{"auth": {ActiveVariant: 0}})
	if base.Fingerprint() != same.Fingerprint() {
		t.Fatal("identical inputs produced different fingerprints")
	}
	if base.Fingerprint() == "" {
		t.Fatal("fingerprint is empty")
	}

	switched := mustCompile(t, root, map[string]widgets.Info{"auth": {ActiveVariant: 1}})
	if base.Fingerprint() == switched.Fingerprint() {
		t.Fatal("variant switch did not change the fingerprint")
	}

	pinned := mustCompile(t, root, map[string]widgets.Info{
		"auth":        {ActiveVariant: 0},
		"auth.apiKey": {Const: "locked"},
	})
	if base.Fingerprint() == pinned.Fingerprint() {
		t.Fatal("widget const did not change the fingerprint")
	}
}

func TestValidate_MessagesFallBackOnUnknownKind(t *testing.T) {
	set := validation.DefaultMessages()
	if got := set.Render("no-such-kind", map[string]any{"label": "Host"}); !strings.Contains(got, "Host") {
		t.Fatalf("fallback message = %q", got)
	}
}
