package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-image-grader/pkg/models"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

var (
	// cellEscaper keeps model text inside a single GFM table cell.
	cellEscaper = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ")
	// lineFlattener keeps model text on one line.
	lineFlattener = strings.NewReplacer("\r", " ", "\n", " ")
	// srcEscaper percent-encodes backticks so a src cannot close its code span.
	srcEscaper = strings.NewReplacer("`", "%60", "\r", "", "\n", "")
)

// MarkdownRenderer writes the report as GitHub-flavoured Markdown.
type MarkdownRenderer struct{}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

func (r *MarkdownRenderer) ContentType() string {
	return "text/markdown; charset=utf-8"
}

// Render writes the whole document to w.
func (r *MarkdownRenderer) Render(w io.Writer, pageURL string, report *models.AnalysisReport) error {
	if report == nil {
		return ErrNoReport
	}
	view := NewReportView(report)
	md := markdown.NewMarkdown(w)

	r.writeHeader(md, pageURL, view)
	r.writeSummary(md, view)
	r.writeImages(md, view)
	r.writeFooter(md)

	return md.Build()
}

func (r *MarkdownRenderer) writeHeader(md *markdown.Markdown, pageURL string, view *ReportView) {
	md.H1("Website Image Quality Report")
	md.PlainText("")

	rows := [][]string{}
	if pageURL != "" {
		rows = append(rows, []string{"Page", cell(pageURL)})
	}
	rows = append(rows,
		[]string{"Score", fmt.Sprintf("%s %s/10", toneEmoji(view.Tone), view.ScoreText)},
		[]string{"Images analyzed", strconv.Itoa(len(view.Images))},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	md.PlainText(lineFlattener.Replace(view.Summary))
	md.PlainText("")
}

func (r *MarkdownRenderer) writeSummary(md *markdown.Markdown, view *ReportView) {
	critical := view.Counts[models.FindingCritical]
	warning := view.Counts[models.FindingWarning]
	good := view.Counts[models.FindingGood]

	md.H2("Findings Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{toneEmoji(ToneCritical) + " Critical", strconv.Itoa(critical)},
			{toneEmoji(ToneWarning) + " Warning", strconv.Itoa(warning)},
			{toneEmoji(ToneGood) + " Good", strconv.Itoa(good)},
		},
	})
	md.PlainText("")

	if critical+warning+good > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Findings by Severity"),
			piechart.WithShowData(true),
		)
		if critical > 0 {
			chart.LabelAndIntValue("Critical", uint64(critical))
		}
		if warning > 0 {
			chart.LabelAndIntValue("Warning", uint64(warning))
		}
		if good > 0 {
			chart.LabelAndIntValue("Good", uint64(good))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case critical > 0:
		md.Cautionf("%d critical finding(s) are hurting page speed or accessibility.", critical)
	case warning > 0:
		md.Warningf("%d finding(s) could be improved.", warning)
	default:
		md.Tip("No image issues found.")
	}
	md.PlainText("")
}

func (r *MarkdownRenderer) writeImages(md *markdown.Markdown, view *ReportView) {
	md.H2("Image-by-Image Breakdown")
	md.PlainText("")

	if len(view.Images) == 0 {
		md.PlainText("No images were reported.")
		md.PlainText("")
		return
	}

	for _, img := range view.Images {
		md.H3("`" + srcEscaper.Replace(img.Src) + "`")
		md.PlainText("")

		if len(img.Findings) == 0 {
			md.PlainText("No findings.")
			md.PlainText("")
			continue
		}

		rows := make([][]string, len(img.Findings))
		for i, f := range img.Findings {
			rec := f.Recommendation
			if rec == "" {
				rec = "-"
			}
			rows[i] = []string{toneEmoji(f.Tone) + " " + cell(f.Label), cell(f.Title), cell(rec)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Severity", "Finding", "Recommendation"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, f := range img.Findings {
			if f.Description != "" {
				md.Details(lineFlattener.Replace(f.Title), f.Description)
			}
		}
		md.PlainText("")
	}
}

func (r *MarkdownRenderer) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*%s*", CallToActionTitle)
}

func cell(s string) string {
	return cellEscaper.Replace(s)
}

func toneEmoji(t Tone) string {
	switch t {
	case ToneCritical:
		return "🔴"
	case ToneWarning:
		return "🟡"
	default:
		return "🟢"
	}
}
