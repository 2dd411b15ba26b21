package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	courier "github.com/wesleyorama2/courier/internal/http"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// JSONSchema decodes a JSON body and validates it against a compiled schema.
// A body that decodes but does not validate yields ValidationErrors.
type JSONSchema struct {
	schema *jsonschema.Schema
}

// NewJSONSchema compiles schema. An invalid schema fails here rather than on
// every Parse.
func NewJSONSchema(schema string) (*JSONSchema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("%w: invalid schema: %v", courier.ErrContractViolation, err)
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid schema: %v", courier.ErrContractViolation, err)
	}
	return &JSONSchema{schema: compiled}, nil
}

// Parse implements courier.Parser
func (s *JSONSchema) Parse(raw []byte) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", courier.ErrFormat, err)
	}

	if err := s.schema.Validate(data); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, extractValidationErrors(verr)
		}
		return nil, ValidationErrors{err}
	}
	return data, nil
}

// extractValidationErrors flattens err and its causes
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	var errs ValidationErrors
	if err.Message != "" {
		errs = append(errs, fmt.Errorf("validation error at %s: %s", err.InstanceLocation, err.Message))
	}
	for _, cause := range err.Causes {
		errs = append(errs, extractValidationErrors(cause)...)
	}
	return errs
}
