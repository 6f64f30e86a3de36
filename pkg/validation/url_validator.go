package validation

import (
	"net/url"
	"strings"

	apperrors "go-image-grader/internal/errors"
)

// URLValidator handles validation of the page URL a user submits
type URLValidator struct {
	strict         bool
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a validator that only rejects empty input. The
// address itself is handed to the AI service as free text.
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewStrictURLValidator additionally requires an absolute http(s) URL with a host.
func NewStrictURLValidator() *URLValidator {
	v := NewURLValidator()
	v.strict = true
	return v
}

// NewURLValidatorWithOptions creates a strict URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		strict:         true,
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidatePageURL validates a submitted page URL. Every failure carries the
// same user-facing message; the reason is kept in Details.
func (v *URLValidator) ValidatePageURL(pageURL string) error {
	if strings.TrimSpace(pageURL) == "" {
		return invalid("URL cannot be empty", nil)
	}
	if !v.strict {
		return nil
	}

	parsedURL, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return invalid("invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return invalid("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return invalid("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Hostname()) {
		return invalid("URL host not allowed", nil)
	}

	return nil
}

func invalid(details string, cause error) error {
	err := apperrors.NewValidationError(apperrors.MsgInvalidURL, cause)
	err.Details = details
	return err
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
