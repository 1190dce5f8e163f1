package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

const classifyOp = "token request"

// errorResponse is the RFC 6749 section 5.2 error body.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorURI         string `json:"error_uri"`
}

// Classify maps an unsuccessful token endpoint response to a typed error.
// The provider's response is kept as an *oauth2.RetrieveError cause.
func Classify(service domain.ServiceIdentifier, status int, body []byte) error {
	var payload errorResponse
	_ = json.Unmarshal(body, &payload)

	cause := &oauth2.RetrieveError{
		Response: &http.Response{
			StatusCode: status,
			Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		},
		Body:             body,
		ErrorCode:        payload.Error,
		ErrorDescription: payload.ErrorDescription,
		ErrorURI:         payload.ErrorURI,
	}
	detail := fmt.Sprintf("status %d", status)
	if payload.Error != "" {
		detail += " " + payload.Error
	}

	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return domain.TransientProviderError(classifyOp, service, detail, cause)
	}

	text := strings.ToLower(payload.Error + " " + payload.ErrorDescription + " " + string(body))
	switch {
	case payload.Error == "invalid_grant",
		strings.Contains(text, "invalid_grant"),
		strings.Contains(text, "expired or revoked"),
		strings.Contains(text, "revoked"):
		return domain.InvalidGrantError(classifyOp, service, detail, cause)
	case payload.Error == "invalid_scope",
		strings.Contains(text, "invalid_scope"):
		return domain.InvalidScopeOrStateError(classifyOp, service, detail, cause)
	default:
		return domain.TransientProviderError(classifyOp, service, detail, cause)
	}
}

// ClassifyTransport maps a failure to reach the token endpoint.
// Timeouts, cancellation and network errors are all transient.
func ClassifyTransport(service domain.ServiceIdentifier, err error) error {
	if domain.IsAuthError(err) {
		return err
	}
	detail := "network error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		detail = "timed out"
	case errors.Is(err, context.Canceled):
		detail = "cancelled"
	}
	return domain.TransientProviderError(classifyOp, service, detail, err)
}
