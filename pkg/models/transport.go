package models

import "time"

// AnalyzeRequest is the JSON body accepted by the analyze endpoint.
// Emptiness is checked by the session holder, not by binding tags, so the
// user-facing message stays the same on every surface.
type AnalyzeRequest struct {
	URL string `json:"url" form:"url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StateResponse is the wire form of one session state snapshot.
type StateResponse struct {
	SessionID  string          `json:"session_id,omitempty"`
	Status     string          `json:"status"`
	Generation uint64          `json:"generation"`
	URL        string          `json:"url,omitempty"`
	Progress   string          `json:"progress,omitempty"`
	Message    string          `json:"message,omitempty"`
	Report     *AnalysisReport `json:"report,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
