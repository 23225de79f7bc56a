package connform

import (
	"context"

	internalLoader "github.com/goliatone/go-connform/internal/jsonschema/loader"
	"github.com/goliatone/go-connform/pkg/form"
	pkgjsonschema "github.com/goliatone/go-connform/pkg/jsonschema"
	"github.com/goliatone/go-connform/pkg/schema"
	"github.com/goliatone/go-connform/pkg/validation"
)

// ConnectorSpec identifies a connector and carries its raw schema document;
// alias exported via the root package for convenience.
type ConnectorSpec = schema.ConnectorSpec

// Issue is a single validation finding keyed by dotted value path.
type Issue = validation.Issue

// Session coordinates the schema, widget, validation, and value pipeline for
// one connector configuration.
type Session = form.Session

// SubmitError carries the findings that blocked a submission.
type SubmitError = form.SubmitError

// NewSession exposes the session constructor from the top-level module. The
// session is empty until SelectConnector succeeds.
func NewSession(options ...form.Option) *form.Session {
	return form.NewSession(options...)
}

// Configure builds a session for the given connector in one call. Prior
// values are carried into the new value tree where the schema still declares
// them; pass nil for a fresh configuration.
func Configure(spec schema.ConnectorSpec, prior map[string]any, options ...form.Option) (*form.Session, error) {
	session := form.NewSession(options...)
	if err := session.SelectConnector(spec, prior); err != nil {
		return nil, err
	}
	return session, nil
}

// LoadSpec resolves a connector schema from the given source and wraps it
// with the service type. It is the simplest entry point for callers that keep
// schemas in files or behind HTTP.
func LoadSpec(ctx context.Context, serviceType string, src pkgjsonschema.Source, options ...pkgjsonschema.LoaderOption) (schema.ConnectorSpec, error) {
	doc, err := NewLoader(options...).Load(ctx, src)
	if err != nil {
		return schema.ConnectorSpec{}, err
	}
	spec := schema.ConnectorSpec{ServiceType: serviceType, Schema: doc.Raw()}
	if err := spec.Validate(); err != nil {
		return schema.ConnectorSpec{}, err
	}
	return spec, nil
}

// NewLoader constructs a document loader using the internal implementation
// while keeping the concrete type hidden from consumers.
func NewLoader(options ...pkgjsonschema.LoaderOption) pkgjsonschema.Loader {
	cfg := pkgjsonschema.NewLoaderOptions(options...)
	return internalLoader.New(cfg)
}
