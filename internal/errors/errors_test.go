package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError(MsgInvalidURL, nil), http.StatusBadRequest},
		{NewServiceError(MsgAnalysisFailed, nil), http.StatusBadGateway},
		{NewConflictError(MsgRequestInFlight, nil), http.StatusConflict},
		{NewTimeoutError("slow", nil), http.StatusGatewayTimeout},
		{NewNotFoundError("missing", nil), http.StatusNotFound},
		{NewInternalError("broken", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetStatusCode(tt.err); got != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.err.Type, tt.want, got)
		}
		wrapped := fmt.Errorf("context: %w", tt.err)
		if got := GetStatusCode(wrapped); got != tt.want {
			t.Errorf("%s: expected wrapped status %d, got %d", tt.err.Type, tt.want, got)
		}
	}

	if got := GetStatusCode(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("Expected 500 for plain errors, got %d", got)
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("upstream 503")
	err := NewServiceError(MsgAnalysisFailed, cause)

	if !errors.Is(err, cause) {
		t.Error("Expected cause to be reachable through Unwrap")
	}
	if !IsType(err, ErrorTypeService) {
		t.Error("Expected service error type")
	}
	if IsType(err, ErrorTypeValidation) {
		t.Error("Did not expect validation error type")
	}
}

func TestUserMessage(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewValidationError(MsgInvalidURL, errors.New("parse failure")))
	if got := UserMessage(err, "fallback"); got != MsgInvalidURL {
		t.Errorf("Expected %q, got %q", MsgInvalidURL, got)
	}
	if got := UserMessage(errors.New("raw detail"), "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}
}
