package service

import (
	"fmt"
	"strings"

	"go-image-grader/pkg/models"
)

// Evaluation dimensions every image is graded against.
var gradingDimensions = []string{
	"File size: is the image likely too large for the web?",
	"Format: does it use a modern format such as WebP or AVIF where appropriate?",
	"Resolution and dimensions: is the image sized sensibly for where it is displayed?",
	"SEO and accessibility: is descriptive alt text likely to be present?",
}

// BuildPrompt returns the instruction sent to the AI service for pageURL.
func BuildPrompt(pageURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert web performance and SEO auditor. Grade the image quality and optimization of the webpage at %s.\n\n", pageURL)

	b.WriteString("Based on the URL, infer the kind of content the page most likely has and identify 3 to 5 representative images it would contain. ")
	b.WriteString("Give each image a realistic file path or full URL, for example 'https://example.com/images/hero-banner.jpg' or '/assets/logo.svg'.\n\n")

	b.WriteString("Evaluate every image against these criteria:\n")
	for i, d := range gradingDimensions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	b.WriteString("\n")

	severities := make([]string, len(models.FindingTypes))
	for i, t := range models.FindingTypes {
		severities[i] = fmt.Sprintf("'%s'", t)
	}
	fmt.Fprintf(&b, "Each finding must have a severity that is exactly one of %s.\n", strings.Join(severities, ", "))
	b.WriteString("For every finding that is not 'Good', give a specific, actionable recommendation.\n\n")

	b.WriteString("Then give the page one overall score from 0 to 10 for image quality and optimization, and a concise summary of 1 to 2 sentences.\n\n")

	b.WriteString("Present the results as a real audit. Do not mention that the page was not fetched or that the analysis is inferred or simulated.\n\n")

	root := models.ReportSchema()
	image := root.Properties["imageBreakdown"].Items
	finding := image.Properties["findings"].Items
	fmt.Fprintf(&b, "Respond only with a JSON object matching the provided schema. Order the fields as %s at the top level, %s for each image and %s for each finding.\n",
		strings.Join(root.PropertyOrdering, ", "),
		strings.Join(image.PropertyOrdering, ", "),
		strings.Join(finding.PropertyOrdering, ", "),
	)

	return b.String()
}
