package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"go-image-grader/internal/ai"
	apperrors "go-image-grader/internal/errors"
	"go-image-grader/internal/logger"
	"go-image-grader/internal/strategy"
	"go-image-grader/pkg/models"

	"github.com/sirupsen/logrus"
)

// AnalysisService grades the images of one web page
type AnalysisService interface {
	Analyze(ctx context.Context, pageURL string) (*models.AnalysisReport, error)
}

// analysisService builds the prompt, calls the generator once and validates the answer
type analysisService struct {
	generator ai.Generator
	validator strategy.ValidationStrategy
	schema    *models.Schema
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(generator ai.Generator, validator strategy.ValidationStrategy) AnalysisService {
	if validator == nil {
		validator = strategy.NewShallowValidationStrategy()
	}
	return &analysisService{
		generator: generator,
		validator: validator,
		schema:    models.ReportSchema(),
	}
}

// Analyze returns the report for pageURL. Every failure after input
// validation is reported as one service error; the cause is logged.
func (s *analysisService) Analyze(ctx context.Context, pageURL string) (*models.AnalysisReport, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, apperrors.NewValidationError(apperrors.MsgInvalidURL, nil)
	}

	log := logger.WithFields(logrus.Fields{
		"url":       pageURL,
		"generator": s.generator.ID(),
		"strategy":  s.validator.GetStrategyName(),
	})

	start := time.Now()
	raw, err := s.generator.Generate(ctx, BuildPrompt(pageURL), s.schema)
	if err != nil {
		log.WithError(err).Error("AI service call failed")
		return nil, apperrors.NewServiceError(apperrors.MsgAnalysisFailed, err)
	}

	report, err := s.validator.Validate(bytes.TrimSpace([]byte(raw)))
	if err != nil {
		log.WithError(err).Error("AI service returned an unusable response")
		return nil, apperrors.NewServiceError(apperrors.MsgAnalysisFailed, err)
	}

	log.WithFields(logrus.Fields{
		"score":    report.Score,
		"images":   len(report.ImageBreakdown),
		"duration": time.Since(start).String(),
	}).Info("Analysis completed")

	return report, nil
}
