package strategy

import (
	"fmt"

	"go-image-grader/pkg/models"
	"go-image-grader/pkg/validation"
)

// ValidationStrategy turns the raw text of an AI response into a report
type ValidationStrategy interface {
	Validate(raw []byte) (*models.AnalysisReport, error)
	GetStrategyName() string
}

// ShallowValidationStrategy checks only the root fields and trusts the rest
type ShallowValidationStrategy struct{}

// NewShallowValidationStrategy creates a new shallow validation strategy
func NewShallowValidationStrategy() ValidationStrategy {
	return &ShallowValidationStrategy{}
}

// Validate performs the root-level checks
func (s *ShallowValidationStrategy) Validate(raw []byte) (*models.AnalysisReport, error) {
	return validation.ValidateShallow(raw)
}

// GetStrategyName returns the strategy name
func (s *ShallowValidationStrategy) GetStrategyName() string {
	return "shallow"
}

// StrictValidationStrategy additionally enforces the full report schema:
// required fields at every level, severity enum and score range.
type StrictValidationStrategy struct {
	schema *validation.SchemaValidator
}

// NewStrictValidationStrategy creates a new strict validation strategy
func NewStrictValidationStrategy() ValidationStrategy {
	return &StrictValidationStrategy{
		schema: validation.NewReportSchemaValidator(),
	}
}

// Validate performs shallow checks followed by schema validation
func (s *StrictValidationStrategy) Validate(raw []byte) (*models.AnalysisReport, error) {
	report, err := validation.ValidateShallow(raw)
	if err != nil {
		return nil, err
	}
	if err := s.schema.Validate(raw); err != nil {
		return nil, err
	}
	return report, nil
}

// GetStrategyName returns the strategy name
func (s *StrictValidationStrategy) GetStrategyName() string {
	return "strict"
}

// NewValidationStrategy selects a strategy by name
func NewValidationStrategy(name string) (ValidationStrategy, error) {
	switch name {
	case "", "shallow":
		return NewShallowValidationStrategy(), nil
	case "strict":
		return NewStrictValidationStrategy(), nil
	default:
		return nil, fmt.Errorf("unsupported validation strategy: %s", name)
	}
}
