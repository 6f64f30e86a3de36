package ai

import (
	"context"
	"encoding/json"
	"sync"

	"go-image-grader/pkg/models"
)

// MockGenerator answers every prompt with a canned response. It is used by
// the "mock" provider for offline runs and as a test double.
type MockGenerator struct {
	Response string
	Err      error

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewMockGenerator returns a generator that always answers with a small,
// valid sample report.
func NewMockGenerator() *MockGenerator {
	data, _ := json.Marshal(SampleReport())
	return &MockGenerator{Response: string(data)}
}

func (m *MockGenerator) ID() string {
	return "mock"
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, _ *models.Schema) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	resp, err := m.Response, m.Err
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

// Calls reports how many times Generate ran.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the most recent prompt, or "" if none was sent.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// SampleReport is the report the mock provider returns.
func SampleReport() models.AnalysisReport {
	return models.AnalysisReport{
		Score:   7,
		Summary: "Images are mostly well optimized, but a few large JPEGs and missing alt text hold the page back.",
		ImageBreakdown: []models.ImageAnalysis{
			{
				Src: "https://example.com/images/hero.webp",
				Findings: []models.Finding{
					{
						Type:        models.FindingGood,
						Title:       "Modern format",
						Description: "The hero image is served as WebP.",
					},
				},
			},
			{
				Src: "/assets/gallery-1.jpg",
				Findings: []models.Finding{
					{
						Type:           models.FindingWarning,
						Title:          "Large file size",
						Description:    "The image is around 850KB, which slows down the first render.",
						Recommendation: "Compress the image and serve it as WebP or AVIF.",
					},
					{
						Type:           models.FindingCritical,
						Title:          "Missing alt text",
						Description:    "The image has no alt attribute.",
						Recommendation: "Add a descriptive alt attribute for screen readers and SEO.",
					},
				},
			},
		},
	}
}
