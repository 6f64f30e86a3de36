package factory

import (
	"fmt"
	"strings"

	"go-image-grader/internal/ai"
	"go-image-grader/internal/config"
	"go-image-grader/internal/render"
)

// ProviderType represents the AI service that generates reports
type ProviderType string

const (
	// GeminiProvider calls the Gemini generateContent API
	GeminiProvider ProviderType = config.ProviderGemini
	// MockProvider answers with a canned report, for offline use
	MockProvider ProviderType = config.ProviderMock
)

// Format represents an output format for a finished report
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
)

// Formats lists the supported output formats
var Formats = []Format{FormatJSON, FormatMarkdown, FormatText, FormatHTML}

// ParseFormat maps a user-supplied name, including common aliases, to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "terminal":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// GeneratorFactory creates AI generators
type GeneratorFactory interface {
	CreateGenerator(providerType ProviderType) (ai.Generator, error)
}

// RendererFactory creates report renderers
type RendererFactory interface {
	CreateRenderer(format Format) (render.Renderer, error)
}

// generatorFactory implements GeneratorFactory
type generatorFactory struct {
	cfg *config.Config
}

// NewGeneratorFactory creates a new generator factory
func NewGeneratorFactory(cfg *config.Config) GeneratorFactory {
	return &generatorFactory{cfg: cfg}
}

// CreateGenerator creates a generator for the provider. Every generator is
// bounded by the configured analysis timeout.
func (f *generatorFactory) CreateGenerator(providerType ProviderType) (ai.Generator, error) {
	var gen ai.Generator
	switch providerType {
	case GeminiProvider:
		if f.cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider: %w", ai.ErrMissingAPIKey)
		}
		gen = ai.NewGeminiGenerator(f.cfg.GeminiModel, f.cfg.GeminiAPIKey, ai.WithBaseURL(f.cfg.GeminiBaseURL))
	case MockProvider:
		gen = ai.NewMockGenerator()
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}

	if f.cfg.AnalysisTimeout > 0 {
		gen = ai.NewTimeoutGenerator(gen, f.cfg.AnalysisTimeout)
	}
	return gen, nil
}

// rendererFactory implements RendererFactory
type rendererFactory struct {
	refreshSeconds int
}

// NewRendererFactory creates a new renderer factory. refreshSeconds is the
// poll interval of HTML pages shown while loading.
func NewRendererFactory(refreshSeconds int) RendererFactory {
	return &rendererFactory{refreshSeconds: refreshSeconds}
}

// CreateRenderer creates a renderer for the format
func (f *rendererFactory) CreateRenderer(format Format) (render.Renderer, error) {
	switch format {
	case FormatJSON:
		return render.NewJSONRenderer(), nil
	case FormatMarkdown:
		return render.NewMarkdownRenderer(), nil
	case FormatText:
		return render.NewTerminalRenderer(), nil
	case FormatHTML:
		return render.NewHTMLRenderer(f.refreshSeconds), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	GeneratorFactory GeneratorFactory
	RendererFactory  RendererFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	refresh := int(cfg.StatusInterval.Seconds())
	if refresh < 1 {
		refresh = 1
	}
	return &ComponentFactory{
		GeneratorFactory: NewGeneratorFactory(cfg),
		RendererFactory:  NewRendererFactory(refresh),
	}
}
