package render

import (
	"encoding/json"
	"errors"
	"io"

	"go-image-grader/pkg/models"
)

// ErrNoReport is returned when there is nothing to render.
var ErrNoReport = errors.New("no report to render")

// Renderer writes a finished report for pageURL in one output format.
type Renderer interface {
	Render(w io.Writer, pageURL string, report *models.AnalysisReport) error
	ContentType() string
}

// JSONRenderer writes the report exactly as received from the AI service.
type JSONRenderer struct {
	Indent string
}

func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{Indent: "  "}
}

func (r *JSONRenderer) Render(w io.Writer, _ string, report *models.AnalysisReport) error {
	if report == nil {
		return ErrNoReport
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", r.Indent)
	return enc.Encode(report)
}

func (r *JSONRenderer) ContentType() string {
	return "application/json; charset=utf-8"
}
