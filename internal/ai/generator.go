// Package ai talks to generative-language services that answer a prompt
// with JSON shaped by a response schema.
package ai

import (
	"context"
	"errors"

	"go-image-grader/pkg/models"
)

var (
	// ErrMissingAPIKey is returned when a provider needs a credential that was not configured.
	ErrMissingAPIKey = errors.New("API key not provided")

	// ErrNoCandidates is returned when the service answered without any usable text.
	ErrNoCandidates = errors.New("no candidates returned")
)

// Generator produces structured text for a prompt.
type Generator interface {
	// Generate sends prompt and asks for output matching schema. The returned
	// text is the raw model output; callers validate it.
	Generate(ctx context.Context, prompt string, schema *models.Schema) (string, error)

	// ID identifies provider and model, e.g. "gemini:gemini-2.5-flash".
	ID() string
}
