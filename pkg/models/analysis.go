package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/arbovm/levenshtein"
)

// FindingType is the severity of a single finding.
type FindingType string

const (
	FindingGood     FindingType = "Good"
	FindingWarning  FindingType = "Warning"
	FindingCritical FindingType = "Critical"
)

// FindingTypes lists the severities in increasing order of urgency.
var FindingTypes = []FindingType{FindingGood, FindingWarning, FindingCritical}

// maxLabelDistance bounds how far a label may be from a known severity and
// still be recognised by Normalize.
const maxLabelDistance = 2

// Valid reports whether t is one of the enumerated severities.
func (t FindingType) Valid() bool {
	switch t {
	case FindingGood, FindingWarning, FindingCritical:
		return true
	}
	return false
}

// Normalize maps t to the closest enumerated severity. Case differences and
// small misspellings are accepted; ok is false when nothing is close enough.
// The report itself is never rewritten, this is for presentation.
func (t FindingType) Normalize() (FindingType, bool) {
	if t.Valid() {
		return t, true
	}

	label := strings.ToLower(strings.TrimSpace(string(t)))
	if label == "" {
		return "", false
	}

	best := FindingType("")
	bestDistance := maxLabelDistance + 1
	for _, known := range FindingTypes {
		d := levenshtein.Distance(label, strings.ToLower(string(known)))
		if d < bestDistance {
			best, bestDistance = known, d
		}
	}
	if bestDistance > maxLabelDistance {
		return "", false
	}
	return best, true
}

// Finding is one evaluative observation about one image.
type Finding struct {
	Type           FindingType `json:"type"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// HasRecommendation reports whether the finding carries a non-blank recommendation.
func (f Finding) HasRecommendation() bool {
	return strings.TrimSpace(f.Recommendation) != ""
}

// UnmarshalJSON decodes a finding without ever failing: fields of the wrong
// JSON type decode to their zero value.
func (f *Finding) UnmarshalJSON(data []byte) error {
	*f = Finding{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	f.Type = FindingType(lenientString(fields["type"]))
	f.Title = lenientString(fields["title"])
	f.Description = lenientString(fields["description"])
	f.Recommendation = lenientString(fields["recommendation"])
	return nil
}

// ImageAnalysis groups the findings for one image inferred on the page.
type ImageAnalysis struct {
	Src      string    `json:"src"`
	Findings []Finding `json:"findings"`
}

// UnmarshalJSON decodes an image entry without ever failing.
func (a *ImageAnalysis) UnmarshalJSON(data []byte) error {
	*a = ImageAnalysis{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	a.Src = lenientString(fields["src"])

	var items []json.RawMessage
	if raw, ok := fields["findings"]; ok && json.Unmarshal(raw, &items) == nil {
		a.Findings = make([]Finding, len(items))
		for i, item := range items {
			_ = a.Findings[i].UnmarshalJSON(item)
		}
	}
	return nil
}

// AnalysisReport is the root object returned by the AI service.
type AnalysisReport struct {
	Score          float64         `json:"score"`
	Summary        string          `json:"summary"`
	ImageBreakdown []ImageAnalysis `json:"imageBreakdown"`
}

// FindingCounts tallies findings per severity. Labels outside the enumeration
// are counted under their normalised severity when one is close enough.
func (r *AnalysisReport) FindingCounts() map[FindingType]int {
	counts := make(map[FindingType]int, len(FindingTypes))
	if r == nil {
		return counts
	}
	for _, img := range r.ImageBreakdown {
		for _, f := range img.Findings {
			if t, ok := f.Type.Normalize(); ok {
				counts[t]++
			}
		}
	}
	return counts
}

// lenientString returns raw as a string. Non-string scalars keep their JSON
// text; objects, arrays, null and absent values become "".
func lenientString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	switch raw[0] {
	case '{', '[', 'n':
		return ""
	}
	return string(raw)
}
