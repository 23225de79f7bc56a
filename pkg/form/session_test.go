package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-connform/pkg/form"
	"github.com/goliatone/go-connform/pkg/schema"
	"github.com/goliatone/go-connform/pkg/validation"
	"github.com/goliatone/go-connform/pkg/widgets"
)

var postgresSpec = schema.ConnectorSpec{
	ServiceType: "postgres",
	Title:       "PostgreSQL",
	Schema: []byte(`{
		"type": "object",
		"properties": {
			"host": {"type": "string"},
			"port": {"type": "integer", "default": 5432, "minimum": 1, "maximum": 65535},
			"protocol": {"type": "string", "const": "tcp"}
		},
		"required": ["host"]
	}`),
}

var unionSpec = schema.ConnectorSpec{
	ServiceType: "warehouse",
	Schema: []byte(`{
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
							"refreshInterval": {"type": "integer", "default": 3600}
						},
						"required": ["method", "clientId"]
					}
				]
			}
		},
		"required": ["auth"]
	}`),
}

func connectionOf(t *testing.T, session *form.Session) map[string]any {
	t.Helper()
	value, ok := session.Value(schema.EnvelopeConnectionKey)
	if !ok {
		t.Fatal("connection values missing")
	}
	connection, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("connection values have type %T", value)
	}
	return connection
}

func TestSession_SelectConnectorSeedsPipeline(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(postgresSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	if session.ServiceType() != "postgres" {
		t.Fatalf("service type = %q", session.ServiceType())
	}

	want := map[string]any{"port": float64(5432), "protocol": "tcp"}
	if diff := cmp.Diff(want, connectionOf(t, session)); diff != "" {
		t.Fatalf("connection values mismatch (-want +got):\n%s", diff)
	}

	serviceType, ok := session.Value(schema.EnvelopeServiceType)
	if !ok || serviceType != "postgres" {
		t.Fatalf("serviceType value = %v", serviceType)
	}

	// host is required and absent, so the session starts with a finding.
	issues := session.Issues()
	if len(issues) != 1 || issues[0].Path != "connectionConfiguration.host" {
		t.Fatalf("issues = %v", issues)
	}

	if session.Fingerprint() == "" {
		t.Fatal("fingerprint is empty")
	}
	if _, ok := session.Widgets().Entry("connectionConfiguration.port"); !ok {
		t.Fatal("widget entry for port missing")
	}
}

func TestSession_SelectConnectorFailureKeepsPreviousState(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(postgresSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}
	fingerprint := session.Fingerprint()

	broken := schema.ConnectorSpec{ServiceType: "broken", Schema: []byte(`{"type": "string"}`)}
	if err := session.SelectConnector(broken, nil); err == nil {
		t.Fatal("select succeeded, want error")
	}

	if session.ServiceType() != "postgres" {
		t.Fatalf("service type = %q, want postgres", session.ServiceType())
	}
	if session.Fingerprint() != fingerprint {
		t.Fatal("fingerprint changed after failed selection")
	}
}

func TestSession_SwitchingConnectorsDropsStaleState(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(postgresSpec, nil); err != nil {
		t.Fatalf("select postgres: %v", err)
	}
	if err := session.SetValue("connectionConfiguration.host", "db.internal"); err != nil {
		t.Fatalf("set host: %v", err)
	}

	if err := session.SelectConnector(unionSpec, nil); err != nil {
		t.Fatalf("select warehouse: %v", err)
	}

	if _, ok := session.Widgets().Entry("connectionConfiguration.host"); ok {
		t.Fatal("stale widget entry survived the connector switch")
	}
	connection := connectionOf(t, session)
	if _, ok := connection["host"]; ok {
		t.Fatal("stale value survived the connector switch")
	}
	auth, _ := connection["auth"].(map[string]any)
	if auth["method"] != "api_key" {
		t.Fatalf("auth = %v, want leading variant", auth)
	}
}

func TestSession_ConstantReassertedOverUserWrite(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(postgresSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	// A write can land on a constant path, but the next pipeline cycle
	// forces the constant back before validation runs.
	if err := session.SetValue("connectionConfiguration.protocol", "udp"); err != nil {
		t.Fatalf("set protocol: %v", err)
	}
	if err := session.Refresh(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if got := connectionOf(t, session)["protocol"]; got != "tcp" {
		t.Fatalf("protocol = %v, want tcp", got)
	}
}

func TestSession_SelectVariant(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(unionSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}
	fingerprint := session.Fingerprint()

	if err := session.SelectVariant("connectionConfiguration.auth", 1); err != nil {
		t.Fatalf("select variant: %v", err)
	}

	auth, _ := connectionOf(t, session)["auth"].(map[string]any)
	if auth["method"] != "oauth" {
		t.Fatalf("method = %v, want oauth", auth["method"])
	}
	// The newly active branch's defaults fill in.
	if auth["refreshInterval"] != float64(3600) {
		t.Fatalf("refreshInterval = %v, want 3600", auth["refreshInterval"])
	}

	entry, _ := session.Widgets().Entry("connectionConfiguration.auth")
	if entry.ActiveVariant != 1 {
		t.Fatalf("active variant = %d, want 1", entry.ActiveVariant)
	}
	if _, ok := session.Widgets().Entry("connectionConfiguration.auth.clientId"); !ok {
		t.Fatal("active branch widget entry missing")
	}
	if _, ok := session.Widgets().Entry("connectionConfiguration.auth.apiKey"); ok {
		t.Fatal("inactive branch widget entry survived")
	}

	if session.Fingerprint() == fingerprint {
		t.Fatal("fingerprint unchanged after variant switch")
	}

	// Only the active branch validates: clientId is required now, apiKey
	// is not.
	var paths []string
	for _, issue := range session.Issues() {
		paths = append(paths, issue.Path)
	}
	if diff := cmp.Diff([]string{"connectionConfiguration.auth.clientId"}, paths); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_SelectVariantErrors(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(unionSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	if err := session.SelectVariant("connectionConfiguration.auth", 5); err == nil {
		t.Fatal("out of range variant accepted")
	}
	if err := session.SelectVariant("connectionConfiguration.missing", 0); err == nil {
		t.Fatal("unknown union path accepted")
	}
}

func TestSession_SetValueAndValidate(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(postgresSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	if err := session.SetValue("connectionConfiguration.port", float64(70000)); err != nil {
		t.Fatalf("set port: %v", err)
	}
	var paths []string
	for _, issue := range session.Issues() {
		paths = append(paths, issue.Path)
	}
	want := []string{"connectionConfiguration.host", "connectionConfiguration.port"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}

	if err := session.SetValue("connectionConfiguration.host", "db.internal"); err != nil {
		t.Fatalf("set host: %v", err)
	}
	if err := session.SetValue("connectionConfiguration.port", float64(5433)); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if issues := session.Issues(); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestSession_SubmitGatesOnValidation(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(postgresSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	_, err := session.Submit(validation.CastOptions{})
	var submitErr *form.SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("submit error = %v, want SubmitError", err)
	}
	if submitErr.ServiceType != "postgres" || len(submitErr.Issues) == 0 {
		t.Fatalf("submit error = %+v", submitErr)
	}

	if err := session.SetValue(schema.EnvelopeName, "primary-db"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	if err := session.SetValue("connectionConfiguration.host", "db.internal"); err != nil {
		t.Fatalf("set host: %v", err)
	}

	out, err := session.Submit(validation.CastOptions{StripUnknown: true})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := map[string]any{
		schema.EnvelopeName:        "primary-db",
		schema.EnvelopeServiceType: "postgres",
		schema.EnvelopeConnectionKey: map[string]any{
			"host":     "db.internal",
			"port":     float64(5432),
			"protocol": "tcp",
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_MergeWidgetRevalidatesOnFingerprintChange(t *testing.T) {
	session := form.NewSession()
	if err := session.SelectConnector(postgresSpec, nil); err != nil {
		t.Fatalf("select connector: %v", err)
	}
	if err := session.SetValue("connectionConfiguration.host", "db.internal"); err != nil {
		t.Fatalf("set host: %v", err)
	}
	if len(session.Issues()) != 0 {
		t.Fatalf("unexpected issues: %v", session.Issues())
	}
	fingerprint := session.Fingerprint()

	// A cosmetic merge leaves the rules alone.
	help := "Primary hostname."
	if err := session.MergeWidget("connectionConfiguration.host", widgets.Patch{Help: &help}); err != nil {
		t.Fatalf("merge help: %v", err)
	}
	if session.Fingerprint() != fingerprint {
		t.Fatal("cosmetic merge changed the fingerprint")
	}

	// Pinning a constant changes the rules and triggers revalidation.
	if err := session.MergeWidget("connectionConfiguration.host", widgets.Patch{Const: "locked.internal"}); err != nil {
		t.Fatalf("merge const: %v", err)
	}
	if session.Fingerprint() == fingerprint {
		t.Fatal("rule merge kept the old fingerprint")
	}
	var paths []string
	for _, issue := range session.Issues() {
		paths = append(paths, issue.Path)
	}
	if diff := cmp.Diff([]string{"connectionConfiguration.host"}, paths); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_EditModeKeepsPriorValues(t *testing.T) {
	prior := map[string]any{
		schema.EnvelopeName: "existing",
		schema.EnvelopeConnectionKey: map[string]any{
			"host": "legacy.internal",
			"port": float64(6432),
		},
	}

	session := form.NewSession(form.WithEditMode(true))
	if err := session.SelectConnector(postgresSpec, prior); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	connection := connectionOf(t, session)
	if connection["host"] != "legacy.internal" || connection["port"] != float64(6432) {
		t.Fatalf("prior values lost: %v", connection)
	}
	name, _ := session.Value(schema.EnvelopeName)
	if name != "existing" {
		t.Fatalf("name = %v, want existing", name)
	}

	entry, _ := session.Widgets().Entry("connectionConfiguration.port")
	if entry.Default != nil {
		t.Fatalf("edit mode seeded a default: %v", entry.Default)
	}
}

func TestSession_EditModeDoesNotInjectDefaults(t *testing.T) {
	prior := map[string]any{
		schema.EnvelopeConnectionKey: map[string]any{
			"host": "legacy.internal",
		},
	}

	session := form.NewSession(form.WithEditMode(true))
	if err := session.SelectConnector(postgresSpec, prior); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	if value, ok := session.Value("connectionConfiguration.port"); ok {
		t.Fatalf("port default injected while editing: %v", value)
	}
	// Constants still win in edit mode.
	if value, _ := session.Value("connectionConfiguration.protocol"); value != "tcp" {
		t.Fatalf("protocol = %v, want tcp", value)
	}

	// The downstream rebuild cycle must not sneak defaults back in either.
	if err := session.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if value, ok := session.Value("connectionConfiguration.port"); ok {
		t.Fatalf("port default injected by rebuild: %v", value)
	}
}

func TestSession_EditModeKeepsUnknownVariantValue(t *testing.T) {
	prior := map[string]any{
		schema.EnvelopeConnectionKey: map[string]any{
			"auth": map[string]any{"method": "legacy_token"},
		},
	}

	session := form.NewSession(form.WithEditMode(true))
	if err := session.SelectConnector(unionSpec, prior); err != nil {
		t.Fatalf("select connector: %v", err)
	}

	if value, _ := session.Value("connectionConfiguration.auth.method"); value != "legacy_token" {
		t.Fatalf("method = %v, want legacy_token preserved", value)
	}

	// The mismatch surfaces as a finding on the discriminator path.
	var found bool
	for _, issue := range session.Issues() {
		if issue.Path == "connectionConfiguration.auth.method" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no finding for the unmatched discriminator: %v", session.Issues())
	}

	// Rebuilding keeps the saved value too.
	if err := session.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if value, _ := session.Value("connectionConfiguration.auth.method"); value != "legacy_token" {
		t.Fatalf("method after rebuild = %v, want legacy_token", value)
	}
}
