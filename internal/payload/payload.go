// Package payload loads and validates search payload override files.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/jobgeo/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Path   string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("payload validation failed")
	if ve.Path != "" {
		sb.WriteString(" for " + ve.Path)
	}
	sb.WriteString(":\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// LoadError is a payload file that cannot be read or is not JSON.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load payload %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load payload %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func searchSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := schemas.Read(schemas.SearchPayload)
		if err != nil {
			schemaErr = fmt.Errorf("read embedded schema: %w", err)
			return
		}
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	})
	return schema, schemaErr
}

// LoadFile reads the JSON document at path, validates it against the search
// payload schema and returns it as an opaque map.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot read file", Cause: err}
	}
	doc, err := Parse(data)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Path = path
			return nil, ve
		}
		if le, ok := err.(*LoadError); ok {
			le.Path = path
			return nil, le
		}
		return nil, err
	}
	return doc, nil
}

// Parse validates data and decodes it. Numbers decode as json.Number so they
// are written back exactly as given.
func Parse(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Path: "(inline)", Message: "malformed JSON", Cause: err}
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, &LoadError{Path: "(inline)", Message: "malformed JSON", Cause: errors.New("unexpected data after top-level value")}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "payload must be a JSON object"}}}
	}

	s, err := searchSchema()
	if err != nil {
		return nil, err
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return nil, &LoadError{Path: "(inline)", Message: "schema validation failed during load", Cause: err}
	}
	if result.Valid() {
		return obj, nil
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
	return nil, validationErr
}
