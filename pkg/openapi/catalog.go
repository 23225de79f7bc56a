// Package openapi extracts connector specifications from OpenAPI 3
// documents. Providers that publish their connector schemas as component
// schemas tag each one with an x-connector extension; the catalog turns
// those into ConnectorSpec values the rest of the pipeline consumes.
package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-connform/pkg/schema"
)

// ExtensionKey marks a component schema as a connector definition. Its value
// is either the service type string or an object with serviceType, title, and
// documentationUrl keys.
const ExtensionKey = "x-connector"

// CatalogOptions tune document loading.
type CatalogOptions struct {
	// AllowExternalRefs lets kin-openapi chase refs outside the document.
	AllowExternalRefs bool
	// SkipValidation loads the document without structural validation.
	SkipValidation bool
}

// Catalog is the set of connector specs found in one document, keyed by
// service type.
type Catalog struct {
	specs map[string]schema.ConnectorSpec
	order []string
}

// LoadCatalog parses an OpenAPI document and collects every component schema
// tagged with the connector extension. Component schemas marshal with sorted
// property order, so specs loaded this way get alphabetical field order
// rather than declared order.
func LoadCatalog(ctx context.Context, raw []byte, opts CatalogOptions) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: opts.AllowExternalRefs,
	}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if !opts.SkipValidation {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate document: %w", err)
		}
	}

	catalog := &Catalog{specs: make(map[string]schema.ConnectorSpec)}
	if doc.Components == nil {
		return catalog, nil
	}

	for name, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		marker, ok := ref.Value.Extensions[ExtensionKey]
		if !ok {
			continue
		}
		spec, err := specFrom(name, marker, ref.Value)
		if err != nil {
			return nil, err
		}
		if _, dup := catalog.specs[spec.ServiceType]; dup {
			return nil, fmt.Errorf("openapi: duplicate connector %q", spec.ServiceType)
		}
		catalog.specs[spec.ServiceType] = spec
		catalog.order = append(catalog.order, spec.ServiceType)
	}
	sort.Strings(catalog.order)
	return catalog, nil
}

// ServiceTypes lists the catalog contents in sorted order.
func (c *Catalog) ServiceTypes() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Spec returns the connector definition for a service type.
func (c *Catalog) Spec(serviceType string) (schema.ConnectorSpec, bool) {
	spec, ok := c.specs[serviceType]
	return spec, ok
}

// Specs returns every connector definition in sorted service type order.
func (c *Catalog) Specs() []schema.ConnectorSpec {
	out := make([]schema.ConnectorSpec, 0, len(c.order))
	for _, serviceType := range c.order {
		out = append(out, c.specs[serviceType])
	}
	return out
}

func specFrom(name string, marker any, value *openapi3.Schema) (schema.ConnectorSpec, error) {
	spec := schema.ConnectorSpec{Title: value.Title}

	switch typed := marker.(type) {
	case string:
		spec.ServiceType = typed
	case map[string]any:
		if serviceType, ok := typed["serviceType"].(string); ok {
			spec.ServiceType = serviceType
		}
		if title, ok := typed["title"].(string); ok && title != "" {
			spec.Title = title
		}
		if docs, ok := typed["documentationUrl"].(string); ok {
			spec.DocumentationURL = docs
		}
	default:
		return schema.ConnectorSpec{}, fmt.Errorf("openapi: component %q: %s must be a string or object", name, ExtensionKey)
	}
	if spec.ServiceType == "" {
		return schema.ConnectorSpec{}, fmt.Errorf("openapi: component %q: missing service type", name)
	}

	// The extension is transport metadata, not schema content.
	trimmed := *value
	if len(value.Extensions) > 1 {
		trimmed.Extensions = make(map[string]any, len(value.Extensions)-1)
		for key, entry := range value.Extensions {
			if key == ExtensionKey {
				continue
			}
			trimmed.Extensions[key] = entry
		}
	} else {
		trimmed.Extensions = nil
	}

	raw, err := json.Marshal(&trimmed)
	if err != nil {
		return schema.ConnectorSpec{}, fmt.Errorf("openapi: component %q: marshal schema: %w", name, err)
	}
	spec.Schema = raw

	if err := spec.Validate(); err != nil {
		return schema.ConnectorSpec{}, fmt.Errorf("openapi: component %q: %w", name, err)
	}
	return spec, nil
}
