package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"go-image-grader/pkg/models"
)

// Call-to-action panel shown under every report.
const (
	CallToActionTitle = "Improve Your Score and Your Site's Speed."
	CallToActionBody  = "Great images are about more than looks. They are crucial for performance and SEO. Our professional photography services deliver stunning, web-optimized images that load fast and rank high."
	CallToActionLink  = "Get a Free Consultation"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("index.html.tmpl").
		Funcs(template.FuncMap{
			"fixed": func(v float64) string { return fmt.Sprintf("%.2f", v) },
			"year":  func() int { return time.Now().Year() },
		}).
		ParseFS(templateFS, "templates/index.html.tmpl"),
)

type pageData struct {
	PageView
	CTATitle string
	CTABody  string
	CTALink  string
}

// HTMLRenderer draws the single-page grader UI.
type HTMLRenderer struct {
	RefreshSeconds int
}

func NewHTMLRenderer(refreshSeconds int) *HTMLRenderer {
	if refreshSeconds <= 0 {
		refreshSeconds = 2
	}
	return &HTMLRenderer{RefreshSeconds: refreshSeconds}
}

func (r *HTMLRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// RenderPage writes the page for a session state.
func (r *HTMLRenderer) RenderPage(w io.Writer, st models.StateResponse) error {
	return pageTemplate.Execute(w, pageData{
		PageView: NewPageView(st, r.RefreshSeconds),
		CTATitle: CallToActionTitle,
		CTABody:  CallToActionBody,
		CTALink:  CallToActionLink,
	})
}

// Render writes the page showing report as a finished analysis.
func (r *HTMLRenderer) Render(w io.Writer, pageURL string, report *models.AnalysisReport) error {
	if report == nil {
		return ErrNoReport
	}
	return r.RenderPage(w, models.StateResponse{
		Status: "success",
		URL:    pageURL,
		Report: report,
	})
}
