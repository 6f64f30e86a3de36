package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go-image-grader/pkg/models"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedResponse is returned when an AI response does not have the shape
// of an analysis report.
var ErrMalformedResponse = errors.New("malformed response")

// ValidateShallow parses raw as a report, checking only the root: it must be
// an object whose score is a number, summary a string and imageBreakdown an
// array. Everything nested is trusted and decoded leniently.
func ValidateShallow(raw []byte) (*models.AnalysisReport, error) {
	raw = bytes.TrimSpace(raw)

	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: root is null", ErrMalformedResponse)
	}

	if kind := jsonKind(root["score"]); kind != "number" {
		return nil, fmt.Errorf("%w: score is %s, want number", ErrMalformedResponse, kind)
	}
	if kind := jsonKind(root["summary"]); kind != "string" {
		return nil, fmt.Errorf("%w: summary is %s, want string", ErrMalformedResponse, kind)
	}
	if kind := jsonKind(root["imageBreakdown"]); kind != "array" {
		return nil, fmt.Errorf("%w: imageBreakdown is %s, want array", ErrMalformedResponse, kind)
	}

	var report models.AnalysisReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if report.ImageBreakdown == nil {
		report.ImageBreakdown = []models.ImageAnalysis{}
	}
	return &report, nil
}

// jsonKind names the JSON type of an already well-formed raw value.
func jsonKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "missing"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// SchemaValidator checks a response against a JSON Schema derived from a
// models.Schema.
type SchemaValidator struct {
	loader gojsonschema.JSONLoader
}

// NewSchemaValidator compiles s into a validator.
func NewSchemaValidator(s *models.Schema) *SchemaValidator {
	return &SchemaValidator{loader: gojsonschema.NewGoLoader(s.JSONSchema())}
}

// NewReportSchemaValidator returns a validator for models.ReportSchema.
func NewReportSchemaValidator() *SchemaValidator {
	return NewSchemaValidator(models.ReportSchema())
}

// Validate returns nil when raw satisfies the schema. Violations are joined
// into a single ErrMalformedResponse.
func (v *SchemaValidator) Validate(raw []byte) error {
	result, err := gojsonschema.Validate(v.loader, gojsonschema.NewBytesLoader(bytes.TrimSpace(raw)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(issues, "; "))
}
