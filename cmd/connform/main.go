package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-connform/internal/jsonschema/loader"
	"github.com/goliatone/go-connform/pkg/form"
	pkgjsonschema "github.com/goliatone/go-connform/pkg/jsonschema"
	pkgopenapi "github.com/goliatone/go-connform/pkg/openapi"
	"github.com/goliatone/go-connform/pkg/prompt"
	"github.com/goliatone/go-connform/pkg/schema"
	"github.com/goliatone/go-connform/pkg/validation"
	"github.com/goliatone/go-connform/pkg/widgets"
)

func main() {
	schemaPath := flag.String("schema", "", "connector schema path or URL")
	serviceType := flag.String("service-type", "", "service type (defaults to the schema file basename)")
	catalogPath := flag.String("catalog", "", "OpenAPI catalog path; connector schemas are read from x-connector components")
	connector := flag.String("connector", "", "service type to select from the catalog")
	list := flag.Bool("list", false, "list catalog service types and exit")
	overridesDir := flag.String("overrides", "", "directory with widget override documents")
	priorPath := flag.String("prior", "", "JSON file with an existing configuration to edit")
	stripUnknown := flag.Bool("strip-unknown", false, "drop values the schema does not declare on submit")
	output := flag.String("output", "", "output file (stdout if empty)")
	flag.Parse()

	ctx := context.Background()

	spec, err := resolveSpec(ctx, *schemaPath, *serviceType, *catalogPath, *connector, *list)
	if err != nil {
		log.Fatalf("Failed to resolve connector: %v", err)
	}

	options := []form.Option{}
	if *overridesDir != "" {
		overrides, err := widgets.LoadFS(os.DirFS(*overridesDir))
		if err != nil {
			log.Fatalf("Failed to load overrides: %v", err)
		}
		options = append(options, form.WithOverrides(overrides))
	}

	var prior map[string]any
	if *priorPath != "" {
		raw, err := os.ReadFile(*priorPath)
		if err != nil {
			log.Fatalf("Failed to read prior values: %v", err)
		}
		if err := json.Unmarshal(raw, &prior); err != nil {
			log.Fatalf("Failed to parse prior values: %v", err)
		}
		options = append(options, form.WithEditMode(true))
	}

	session := form.NewSession(options...)
	if err := session.SelectConnector(spec, prior); err != nil {
		log.Fatalf("Failed to select connector: %v", err)
	}

	walker := prompt.NewWalker()
	if err := walker.Run(ctx, session); err != nil {
		if issues := session.Issues(); len(issues) > 0 {
			printIssues(issues)
		}
		log.Fatalf("Prompt aborted: %v", err)
	}

	result, err := session.Submit(validation.CastOptions{StripUnknown: *stripUnknown})
	if err != nil {
		var submitErr *form.SubmitError
		if errors.As(err, &submitErr) {
			printIssues(submitErr.Issues)
		}
		log.Fatalf("Failed to submit configuration: %v", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode configuration: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, append(encoded, '\n'), 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Configuration written to %s\n", *output)
	} else {
		fmt.Println(string(encoded))
	}
}

func resolveSpec(ctx context.Context, schemaPath, serviceType, catalogPath, connector string, list bool) (schema.ConnectorSpec, error) {
	if catalogPath != "" {
		raw, err := os.ReadFile(catalogPath)
		if err != nil {
			return schema.ConnectorSpec{}, fmt.Errorf("read catalog: %w", err)
		}
		catalog, err := pkgopenapi.LoadCatalog(ctx, raw, pkgopenapi.CatalogOptions{})
		if err != nil {
			return schema.ConnectorSpec{}, err
		}
		if list {
			for _, name := range catalog.ServiceTypes() {
				fmt.Println(name)
			}
			os.Exit(0)
		}
		if connector == "" {
			return schema.ConnectorSpec{}, fmt.Errorf("catalog mode requires -connector (use -list to see service types)")
		}
		spec, ok := catalog.Spec(connector)
		if !ok {
			return schema.ConnectorSpec{}, fmt.Errorf("service type %q not in catalog", connector)
		}
		return spec, nil
	}

	if schemaPath == "" {
		return schema.ConnectorSpec{}, fmt.Errorf("either -schema or -catalog is required")
	}

	src := parseSource(schemaPath)
	docs := loader.New(pkgjsonschema.NewLoaderOptions(
		pkgjsonschema.WithHTTPFallback(30 * time.Second),
	))
	doc, err := docs.Load(ctx, src)
	if err != nil {
		return schema.ConnectorSpec{}, err
	}

	if serviceType == "" {
		base := filepath.Base(schemaPath)
		serviceType = strings.TrimSuffix(base, filepath.Ext(base))
	}

	spec := schema.ConnectorSpec{ServiceType: serviceType, Schema: doc.Raw()}
	if err := spec.Validate(); err != nil {
		return schema.ConnectorSpec{}, err
	}
	return spec, nil
}

func parseSource(raw string) pkgjsonschema.Source {
	path := strings.TrimSpace(raw)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return pkgjsonschema.SourceFromURL(path)
	}
	return pkgjsonschema.SourceFromFile(path)
}

func printIssues(issues []validation.Issue) {
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", issue.Path, issue.Message)
	}
}
