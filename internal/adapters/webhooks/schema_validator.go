package webhooks

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// SchemaValidator checks partner payloads against the JSON schema of their source.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	sources := map[string]string{
		domain.OrderSourceVizi: "schemas/vizi.json",
		domain.OrderSourceN8N:  "schemas/n8n.json",
	}

	validator := &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema, len(sources))}

	for source, file := range sources {
		raw, err := schemaFiles.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", source, err)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", source, err)
		}

		validator.schemas[source] = schema
	}

	return validator, nil
}

// Decode parses body and validates it against the schema of source.
func (v *SchemaValidator) Decode(source string, body []byte) (map[string]any, error) {
	schema, ok := v.schemas[source]
	if !ok {
		return nil, fmt.Errorf("no schema registered for webhook source %q", source)
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return nil, domain.NewMalformedBodyError(err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, domain.NewMalformedBodyError(err)
	}

	if !result.Valid() {
		fields := make([]domain.FieldError, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			fields = append(fields, domain.FieldError{
				Field:   strings.TrimPrefix(desc.Field(), "(root)."),
				Message: desc.Description(),
			})
		}

		return nil, domain.NewSchemaViolationError(source, fields...)
	}

	return document, nil
}

// Parse validates body and extracts the order it carries.
func (v *SchemaValidator) Parse(source string, body []byte) (*domain.Order, error) {
	document, err := v.Decode(source, body)
	if err != nil {
		return nil, err
	}

	return ExtractOrder(source, document)
}
