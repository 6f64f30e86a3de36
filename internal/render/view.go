// Package render presents analysis reports and session states as HTML,
// Markdown, JSON and terminal text.
package render

import (
	"math"
	"strconv"
	"strings"

	"go-image-grader/pkg/models"
)

// Tone is the colour family a score or finding is shown in.
type Tone string

const (
	ToneGood     Tone = "good"
	ToneWarning  Tone = "warning"
	ToneCritical Tone = "critical"
)

// Score thresholds, inclusive.
const (
	goodScore    = 8
	warningScore = 5
	maxScore     = 10
)

// GaugeRadius is the radius of the circular score gauge in view-box units.
const GaugeRadius = 50.0

// ScoreTone returns the tone of an overall score.
func ScoreTone(score float64) Tone {
	switch {
	case score >= goodScore:
		return ToneGood
	case score >= warningScore:
		return ToneWarning
	default:
		return ToneCritical
	}
}

// SeverityTone returns the tone of a finding. Unknown labels are shown as
// good unless they are a near miss of a known severity.
func SeverityTone(t models.FindingType) Tone {
	normalized, _ := t.Normalize()
	switch normalized {
	case models.FindingCritical:
		return ToneCritical
	case models.FindingWarning:
		return ToneWarning
	default:
		return ToneGood
	}
}

// Gauge is the geometry of the score ring.
type Gauge struct {
	Radius        float64
	Circumference float64
	Offset        float64
}

// NewGauge computes the dash offset that fills score/10 of the ring.
// Scores outside [0, 10] are clamped for drawing only.
func NewGauge(score float64) Gauge {
	c := 2 * math.Pi * GaugeRadius
	fill := math.Max(0, math.Min(score, maxScore)) / maxScore
	return Gauge{
		Radius:        GaugeRadius,
		Circumference: c,
		Offset:        c - fill*c,
	}
}

// IsRemoteImage reports whether src can be shown as a thumbnail.
func IsRemoteImage(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// FormatScore prints a score without trailing zeros, e.g. "7" or "7.5".
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

type FindingView struct {
	Label          string
	Tone           Tone
	Title          string
	Description    string
	Recommendation string
}

type ImageView struct {
	Src      string
	Remote   bool
	Findings []FindingView
}

type ReportView struct {
	Score     float64
	ScoreText string
	Tone      Tone
	Gauge     Gauge
	Summary   string
	Images    []ImageView
	Counts    map[models.FindingType]int
}

// NewReportView derives everything needed to draw report.
func NewReportView(report *models.AnalysisReport) *ReportView {
	if report == nil {
		return nil
	}

	v := &ReportView{
		Score:     report.Score,
		ScoreText: FormatScore(report.Score),
		Tone:      ScoreTone(report.Score),
		Gauge:     NewGauge(report.Score),
		Summary:   report.Summary,
		Images:    make([]ImageView, 0, len(report.ImageBreakdown)),
		Counts:    report.FindingCounts(),
	}

	for _, img := range report.ImageBreakdown {
		iv := ImageView{
			Src:      img.Src,
			Remote:   IsRemoteImage(img.Src),
			Findings: make([]FindingView, 0, len(img.Findings)),
		}
		for _, f := range img.Findings {
			fv := FindingView{
				Label:       string(f.Type),
				Tone:        SeverityTone(f.Type),
				Title:       f.Title,
				Description: f.Description,
			}
			if f.HasRecommendation() {
				fv.Recommendation = f.Recommendation
			}
			iv.Findings = append(iv.Findings, fv)
		}
		v.Images = append(v.Images, iv)
	}
	return v
}

// PageView is everything the HTML page shows for one session state.
type PageView struct {
	Status   string
	URL      string
	Message  string
	Progress string
	Loading  bool
	Report   *ReportView

	// RefreshSeconds makes a loading page poll for the result.
	RefreshSeconds int
}

// NewPageView builds the page model for st.
func NewPageView(st models.StateResponse, refreshSeconds int) PageView {
	loading := st.Status == "loading"
	v := PageView{
		Status:   st.Status,
		URL:      st.URL,
		Message:  st.Message,
		Progress: st.Progress,
		Loading:  loading,
	}
	if loading {
		v.RefreshSeconds = refreshSeconds
	}
	if st.Status == "success" {
		v.Report = NewReportView(st.Report)
	}
	return v
}
