package models

import "strings"

// SchemaType is an OpenAPI data type as understood by the Gemini API.
type SchemaType string

const (
	TypeObject  SchemaType = "OBJECT"
	TypeArray   SchemaType = "ARRAY"
	TypeString  SchemaType = "STRING"
	TypeNumber  SchemaType = "NUMBER"
	TypeInteger SchemaType = "INTEGER"
	TypeBoolean SchemaType = "BOOLEAN"
)

// Schema describes a structured-output contract. It marshals directly into a
// Gemini responseSchema and converts to JSON Schema for local validation.
type Schema struct {
	Type             SchemaType         `json:"type"`
	Description      string             `json:"description,omitempty"`
	Format           string             `json:"format,omitempty"`
	Enum             []string           `json:"enum,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	Required         []string           `json:"required,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`

	// Bounds are enforced by JSON Schema validation only; they are not sent
	// to the service.
	Minimum   *float64 `json:"-"`
	Maximum   *float64 `json:"-"`
	MinLength *int     `json:"-"`
}

// JSONSchema converts s into a draft-07 JSON Schema document.
func (s *Schema) JSONSchema() map[string]interface{} {
	doc := s.jsonSchema()
	doc["$schema"] = "http://json-schema.org/draft-07/schema#"
	return doc
}

func (s *Schema) jsonSchema() map[string]interface{} {
	doc := map[string]interface{}{
		"type": strings.ToLower(string(s.Type)),
	}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		enum := make([]interface{}, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		doc["enum"] = enum
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.jsonSchema()
		}
		doc["properties"] = props
	}
	if s.Items != nil {
		doc["items"] = s.Items.jsonSchema()
	}
	if len(s.Required) > 0 {
		required := make([]interface{}, len(s.Required))
		for i, v := range s.Required {
			required[i] = v
		}
		doc["required"] = required
	}
	if s.Minimum != nil {
		doc["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		doc["maximum"] = *s.Maximum
	}
	if s.MinLength != nil {
		doc["minLength"] = *s.MinLength
	}
	return doc
}

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }

// ReportSchema returns the response contract for an image quality report.
func ReportSchema() *Schema {
	finding := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"type": {
				Type:        TypeString,
				Format:      "enum",
				Enum:        []string{string(FindingGood), string(FindingWarning), string(FindingCritical)},
				Description: "The severity of the finding. Must be one of: 'Good', 'Warning', or 'Critical'.",
			},
			"title": {
				Type:        TypeString,
				Description: "A short title for the finding, e.g. 'Large Image File Size'.",
				MinLength:   intPtr(1),
			},
			"description": {
				Type:        TypeString,
				Description: "What was found for this specific image and why it matters.",
			},
			"recommendation": {
				Type:        TypeString,
				Description: "A specific, actionable fix. May be omitted for 'Good' findings.",
			},
		},
		Required:         []string{"type", "title", "description"},
		PropertyOrdering: []string{"type", "title", "description", "recommendation"},
	}

	image := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"src": {
				Type:        TypeString,
				Description: "A realistic file name or URL of the image on the analyzed page, e.g. 'https://example.com/images/hero-banner.jpg' or '/assets/logo.svg'.",
				MinLength:   intPtr(1),
			},
			"findings": {
				Type:  TypeArray,
				Items: finding,
			},
		},
		Required:         []string{"src", "findings"},
		PropertyOrdering: []string{"src", "findings"},
	}

	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"score": {
				Type:        TypeNumber,
				Description: "Overall image quality and optimization score of the page, from 0 to 10.",
				Minimum:     float64Ptr(0),
				Maximum:     float64Ptr(10),
			},
			"summary": {
				Type:        TypeString,
				Description: "A concise, 1-2 sentence summary of the overall findings.",
				MinLength:   intPtr(1),
			},
			"imageBreakdown": {
				Type:        TypeArray,
				Description: "The analysis for each image on the page.",
				Items:       image,
			},
		},
		Required:         []string{"score", "summary", "imageBreakdown"},
		PropertyOrdering: []string{"score", "summary", "imageBreakdown"},
	}
}
