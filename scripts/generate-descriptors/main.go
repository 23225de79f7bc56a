package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-connform/pkg/form"
	"github.com/goliatone/go-connform/pkg/schema"
)

// Writes the descriptor tree and seeded value tree for a connector schema as
// indented JSON. Used to refresh the golden files under pkg/form/testdata.
func main() {
	var (
		schemaPath  = flag.String("schema", "pkg/form/testdata/postgres.json", "connector schema path")
		serviceType = flag.String("service-type", "", "service type (defaults to the schema file basename)")
		fieldsPath  = flag.String("fields", "", "output path for the descriptor tree (stdout when empty)")
		valuesPath  = flag.String("values", "", "output path for the seeded value tree (stdout when empty)")
	)
	flag.Parse()

	raw, err := os.ReadFile(*schemaPath)
	if err != nil {
		fatalf("read schema: %v", err)
	}

	st := *serviceType
	if st == "" {
		base := filepath.Base(*schemaPath)
		st = strings.TrimSuffix(base, filepath.Ext(base))
	}

	session := form.NewSession()
	if err := session.SelectConnector(schema.ConnectorSpec{ServiceType: st, Schema: raw}, nil); err != nil {
		fatalf("select connector: %v", err)
	}

	if err := emit(*fieldsPath, session.Fields()); err != nil {
		fatalf("write fields: %v", err)
	}
	if err := emit(*valuesPath, session.Values()); err != nil {
		fatalf("write values: %v", err)
	}
}

func emit(path string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	if path == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
