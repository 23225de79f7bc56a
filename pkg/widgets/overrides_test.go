package widgets_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-connform/pkg/widgets"
)

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"postgres.yaml": &fstest.MapFile{Data: []byte(`
connectors:
  postgres:
    fields:
      connectionConfiguration.host:
        widget: textarea
        params:
          rows: 2
      connectionConfiguration.password:
        widget: secret
        help: "See the <a href=\"https://example.com/docs\">docs</a>."
`)},
		"s3.json": &fstest.MapFile{Data: []byte(`{
			"connectors": {
				"s3": {
					"fields": {
						"connectionConfiguration.bucket": {"widget": "select"}
					}
				}
			}
		}`)},
		"notes.txt": &fstest.MapFile{Data: []byte("ignored")},
	}

	loaded, err := widgets.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("connectors = %d, want 2", len(loaded))
	}

	postgres := loaded["postgres"]
	if diff := cmp.Diff(widgets.Override{Widget: "textarea", Params: map[string]any{"rows": 2}}, postgres["connectionConfiguration.host"]); diff != "" {
		t.Fatalf("host override mismatch (-want +got):\n%s", diff)
	}

	help := postgres["connectionConfiguration.password"].Help
	if !strings.Contains(help, "<a") || !strings.Contains(help, "rel=\"nofollow\"") {
		t.Fatalf("help not sanitized as UGC: %q", help)
	}

	if loaded["s3"]["connectionConfiguration.bucket"].Widget != "select" {
		t.Fatalf("s3 override missing: %+v", loaded["s3"])
	}
}

func TestLoadFS_DuplicateConnector(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": &fstest.MapFile{Data: []byte("connectors:\n  postgres:\n    fields: {}\n")},
		"b.yaml": &fstest.MapFile{Data: []byte("connectors:\n  postgres:\n    fields: {}\n")},
	}
	if _, err := widgets.LoadFS(fsys); err == nil {
		t.Fatal("load succeeded, want duplicate connector error")
	}
}

func TestLoadFS_EmptyFieldPath(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.yaml": &fstest.MapFile{Data: []byte("connectors:\n  postgres:\n    fields:\n      \"\": {widget: secret}\n")},
	}
	if _, err := widgets.LoadFS(fsys); err == nil {
		t.Fatal("load succeeded, want empty field path error")
	}
}

func TestSanitizeHelp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Use the primary host.", "Use the primary host."},
		{"script stripped", `Before<script>alert(1)</script>After`, "BeforeAfter"},
		{"whitespace trimmed", "  padded  ", "padded"},
		{"empty", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := widgets.SanitizeHelp(tc.in); got != tc.want {
				t.Fatalf("SanitizeHelp(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
