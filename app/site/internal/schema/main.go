package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/umputun/folio/app/site"
)

func main() {
	data, err := generate()
	if err != nil {
		log.Fatalf("failed to generate schema: %v", err)
	}

	outputPath := "site.schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write schema file: %v", err)
	}
}

// generate reflects the site config into a json schema, keyed by the yaml field names.
func generate() ([]byte, error) {
	r := &jsonschema.Reflector{FieldNameTag: "yaml", AllowAdditionalProperties: false}
	schema := r.Reflect(&site.Config{})
	schema.Title = "Folio Site Configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
