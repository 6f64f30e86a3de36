package render

import (
	"fmt"
	"io"
	"strings"

	"go-image-grader/pkg/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#22D3EE") // cyan
	fg      = lipgloss.Color("#E2E8F0")
	dim     = lipgloss.Color("#64748B")
	success = lipgloss.Color("#22C55E")
	warning = lipgloss.Color("#EAB308")
	danger  = lipgloss.Color("#EF4444")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	srcStyle    = lipgloss.NewStyle().Foreground(accent)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	recStyle    = lipgloss.NewStyle().Foreground(accent).Faint(true)

	toneColors = map[Tone]lipgloss.Color{
		ToneGood:     success,
		ToneWarning:  warning,
		ToneCritical: danger,
	}

	toneIcons = map[Tone]string{
		ToneGood:     "✔",
		ToneWarning:  "!",
		ToneCritical: "✖",
	}
)

// TerminalRenderer writes the report as coloured text for a terminal.
// Colours are dropped automatically when the output is not a TTY.
type TerminalRenderer struct {
	Width int
}

func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{Width: 72}
}

func (r *TerminalRenderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

func (r *TerminalRenderer) Render(w io.Writer, pageURL string, report *models.AnalysisReport) error {
	if report == nil {
		return ErrNoReport
	}
	_, err := io.WriteString(w, r.String(pageURL, report))
	return err
}

// String renders report to a string.
func (r *TerminalRenderer) String(pageURL string, report *models.AnalysisReport) string {
	view := NewReportView(report)
	var b strings.Builder

	scoreStyle := lipgloss.NewStyle().Bold(true).Foreground(toneColors[view.Tone])
	header := headerStyle.Render("Website Image Quality Grader")
	if pageURL != "" {
		header += "\n" + dimStyle.Render(pageURL)
	}
	header += "\n\n" + scoreStyle.Render(view.ScoreText+" / 10")
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Width(r.Width).Render(view.Summary))
	b.WriteString("\n\n")

	b.WriteString("  " + titleStyle.Render("Findings") + "  ")
	for _, t := range []models.FindingType{models.FindingCritical, models.FindingWarning, models.FindingGood} {
		tone := SeverityTone(t)
		label := fmt.Sprintf("%d %s", view.Counts[t], strings.ToLower(string(t)))
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(toneColors[tone]).Render(label) + "  ")
	}
	b.WriteString("\n")
	b.WriteString("  " + dimStyle.Render(strings.Repeat("─", r.Width-4)) + "\n\n")

	for _, img := range view.Images {
		r.renderImage(&b, img)
	}

	b.WriteString(dimStyle.Render(CallToActionTitle))
	b.WriteString("\n")
	return b.String()
}

func (r *TerminalRenderer) renderImage(b *strings.Builder, img ImageView) {
	marker := "▢"
	if img.Remote {
		marker = "▣"
	}
	fmt.Fprintf(b, "  %s %s\n", dimStyle.Render(marker), srcStyle.Render(img.Src))

	indent := lipgloss.NewStyle().PaddingLeft(6).Width(r.Width)
	for _, f := range img.Findings {
		style := lipgloss.NewStyle().Foreground(toneColors[f.Tone])
		fmt.Fprintf(b, "    %s %s %s\n",
			style.Render(toneIcons[f.Tone]),
			titleStyle.Render(f.Title),
			dimStyle.Render("("+f.Label+")"),
		)
		if f.Description != "" {
			b.WriteString(indent.Render(f.Description) + "\n")
		}
		if f.Recommendation != "" {
			b.WriteString(indent.Render(recStyle.Render("Recommendation: "+f.Recommendation)) + "\n")
		}
	}
	b.WriteString("\n")
}
