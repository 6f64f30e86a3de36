package ai

import (
	"context"
	"time"

	"go-image-grader/pkg/models"

	"github.com/felixgeelhaar/fortify/timeout"
)

// TimeoutGenerator bounds every call of the wrapped generator. It never
// retries: one submission is one request.
type TimeoutGenerator struct {
	inner    Generator
	duration time.Duration
}

func NewTimeoutGenerator(inner Generator, d time.Duration) *TimeoutGenerator {
	return &TimeoutGenerator{inner: inner, duration: d}
}

func (g *TimeoutGenerator) ID() string {
	return g.inner.ID()
}

func (g *TimeoutGenerator) Generate(ctx context.Context, prompt string, schema *models.Schema) (string, error) {
	t := timeout.New[string](timeout.Config{
		DefaultTimeout: g.duration,
	})

	return t.Execute(ctx, g.duration, func(ctx context.Context) (string, error) {
		return g.inner.Generate(ctx, prompt, schema)
	})
}
