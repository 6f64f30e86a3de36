package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-image-grader/internal/ai"
	apperrors "go-image-grader/internal/errors"
	"go-image-grader/internal/strategy"
	"go-image-grader/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decentReport = `{"score": 7, "summary": "Decent", "imageBreakdown": [{"src": "/img/hero.jpg", "findings": [{"type": "Warning", "title": "Large file", "description": "...", "recommendation": "Compress"}]}]}`

func TestAnalyze_ReturnsParsedReport(t *testing.T) {
	gen := &ai.MockGenerator{Response: "\n  " + decentReport + "  \n"}
	svc := NewAnalysisService(gen, nil)

	report, err := svc.Analyze(context.Background(), "https://shop.example.com")
	require.NoError(t, err)

	expected := &models.AnalysisReport{
		Score:   7,
		Summary: "Decent",
		ImageBreakdown: []models.ImageAnalysis{{
			Src: "/img/hero.jpg",
			Findings: []models.Finding{{
				Type:           models.FindingWarning,
				Title:          "Large file",
				Description:    "...",
				Recommendation: "Compress",
			}},
		}},
	}
	assert.Equal(t, expected, report)
	assert.Equal(t, 1, gen.Calls())
	assert.Contains(t, gen.LastPrompt(), "https://shop.example.com")
}

func TestAnalyze_EmptyURLNeverCallsGenerator(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		gen := ai.NewMockGenerator()
		svc := NewAnalysisService(gen, nil)

		_, err := svc.Analyze(context.Background(), input)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		assert.Equal(t, apperrors.MsgInvalidURL, apperrors.UserMessage(err, ""))
		assert.Zero(t, gen.Calls())
	}
}

func TestAnalyze_FailuresCollapseToServiceError(t *testing.T) {
	tests := []struct {
		name     string
		response string
		genErr   error
	}{
		{"network failure", "", errors.New("dial tcp: connection refused")},
		{"non-JSON text", "Sorry, I cannot help with that.", nil},
		{"score not a number", `{"score": "7", "summary": "s", "imageBreakdown": []}`, nil},
		{"summary not a string", `{"score": 7, "summary": 1, "imageBreakdown": []}`, nil},
		{"breakdown not an array", `{"score": 7, "summary": "s", "imageBreakdown": {}}`, nil},
		{"root is an array", `[1, 2, 3]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &ai.MockGenerator{Response: tt.response, Err: tt.genErr}
			svc := NewAnalysisService(gen, nil)

			_, err := svc.Analyze(context.Background(), "https://example.com")
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeService))
			assert.Equal(t, apperrors.MsgAnalysisFailed, apperrors.UserMessage(err, ""))
			assert.Equal(t, 1, gen.Calls(), "no retry")
		})
	}
}

func TestAnalyze_CauseIsKept(t *testing.T) {
	cause := errors.New("quota exceeded")
	svc := NewAnalysisService(&ai.MockGenerator{Err: cause}, nil)

	_, err := svc.Analyze(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, cause)
}

func TestAnalyze_StrictStrategyRejectsNestedDeviation(t *testing.T) {
	raw := `{"score": 5, "summary": "s", "imageBreakdown": [{"src": "/a.png", "findings": [{"type": "Info", "title": "t", "description": "d"}]}]}`

	shallow := NewAnalysisService(&ai.MockGenerator{Response: raw}, strategy.NewShallowValidationStrategy())
	report, err := shallow.Analyze(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, models.FindingType("Info"), report.ImageBreakdown[0].Findings[0].Type)

	strict := NewAnalysisService(&ai.MockGenerator{Response: raw}, strategy.NewStrictValidationStrategy())
	_, err = strict.Analyze(context.Background(), "https://example.com")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeService))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("https://blog.example.org/post")

	for _, want := range []string{
		"https://blog.example.org/post",
		"3 to 5 representative images",
		"File size",
		"modern format",
		"Resolution and dimensions",
		"alt text",
		"'Good', 'Warning', 'Critical'",
		"actionable recommendation",
		"from 0 to 10",
		"Do not mention",
		"score, summary, imageBreakdown",
		"src, findings",
		"type, title, description, recommendation",
	} {
		assert.True(t, strings.Contains(prompt, want), "prompt should contain %q", want)
	}
}
