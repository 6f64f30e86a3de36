package factory

import (
	"errors"
	"testing"
	"time"

	"go-image-grader/internal/ai"
	"go-image-grader/internal/config"
	"go-image-grader/internal/render"
)

func TestCreateGenerator(t *testing.T) {
	cfg := config.Default()
	cfg.GeminiAPIKey = "key"

	tests := []struct {
		provider ProviderType
		wantID   string
		wantErr  bool
	}{
		{GeminiProvider, "gemini:" + config.DefaultGeminiModel, false},
		{MockProvider, "mock", false},
		{"openai", "", true},
	}

	f := NewGeneratorFactory(cfg)
	for _, tt := range tests {
		gen, err := f.CreateGenerator(tt.provider)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Expected error for provider %q", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Unexpected error for provider %q: %v", tt.provider, err)
		}
		if gen.ID() != tt.wantID {
			t.Errorf("Expected generator %s, got %s", tt.wantID, gen.ID())
		}
		if _, ok := gen.(*ai.TimeoutGenerator); !ok {
			t.Errorf("Expected %s to be bounded by a timeout, got %T", tt.provider, gen)
		}
	}
}

func TestCreateGenerator_GeminiNeedsKey(t *testing.T) {
	cfg := config.Default()
	cfg.GeminiAPIKey = ""

	_, err := NewGeneratorFactory(cfg).CreateGenerator(GeminiProvider)
	if !errors.Is(err, ai.ErrMissingAPIKey) {
		t.Fatalf("Expected ErrMissingAPIKey, got %v", err)
	}
}

func TestCreateGenerator_NoTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.AnalysisTimeout = 0

	gen, err := NewGeneratorFactory(cfg).CreateGenerator(MockProvider)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := gen.(*ai.MockGenerator); !ok {
		t.Errorf("Expected bare mock generator, got %T", gen)
	}
}

func TestCreateRenderer(t *testing.T) {
	f := NewRendererFactory(2)

	for _, format := range Formats {
		r, err := f.CreateRenderer(format)
		if err != nil {
			t.Fatalf("Unexpected error for format %q: %v", format, err)
		}
		if r.ContentType() == "" {
			t.Errorf("Expected a content type for format %q", format)
		}
	}

	r, _ := f.CreateRenderer(FormatHTML)
	if _, ok := r.(*render.HTMLRenderer); !ok {
		t.Errorf("Expected HTML renderer, got %T", r)
	}

	if _, err := f.CreateRenderer("pdf"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatJSON,
		"JSON":     FormatJSON,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
		"text":     FormatText,
		"terminal": FormatText,
		"html":     FormatHTML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestNewComponentFactory(t *testing.T) {
	cfg := config.Default()
	cfg.StatusInterval = 500 * time.Millisecond

	cf := NewComponentFactory(cfg)
	if cf.GeneratorFactory == nil || cf.RendererFactory == nil {
		t.Fatal("Expected both factories to be set")
	}
}
