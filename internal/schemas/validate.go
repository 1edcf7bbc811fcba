// Package schemas provides JSON Schema validation for the artifacts a run writes to disk.
package schemas

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed manifest.schema.json
var manifestSchema []byte

// ManifestSchemaName is the name used in errors about the embedded manifest schema
const ManifestSchemaName = "manifest.schema.json"

var (
	manifestOnce   sync.Once
	manifestLoaded *gojsonschema.Schema
	manifestErr    error
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	var parts []string
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  %s", len(e.Errors), strings.Join(parts, "\n  "))
}

// ManifestSchema returns the embedded manifest schema document
func ManifestSchema() []byte {
	return append([]byte(nil), manifestSchema...)
}

func compiledManifest() (*gojsonschema.Schema, error) {
	manifestOnce.Do(func() {
		manifestLoaded, manifestErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchema))
		if manifestErr != nil {
			manifestErr = &SchemaLoadError{
				Path:    ManifestSchemaName,
				Message: "embedded schema does not compile",
				Cause:   manifestErr,
			}
		}
	})
	return manifestLoaded, manifestErr
}

// ValidateManifest validates manifest JSON bytes against the embedded schema
func ValidateManifest(data []byte) error {
	schema, err := compiledManifest()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return toValidationError(result)
}

// ValidateManifestFile reads a manifest from disk and validates it
func ValidateManifestFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ValidateManifest(data)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
