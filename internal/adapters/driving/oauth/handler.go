package oauth

import (
	"context"
	"errors"
	"net/http"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driving"
	"github.com/custodia-labs/delegate/internal/logger"
)

// OwnerResolver returns the owner a callback request acts for.
type OwnerResolver func(r *http.Request) (string, error)

// StaticOwner resolves every request to the same owner.
func StaticOwner(ownerID string) OwnerResolver {
	return func(*http.Request) (string, error) {
		return ownerID, nil
	}
}

// CallbackResult is reported once per completed callback.
type CallbackResult struct {
	Record *domain.AuthorizationRecord
	Err    error
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithResults reports every callback outcome on ch without blocking.
func WithResults(ch chan<- CallbackResult) HandlerOption {
	return func(h *Handler) { h.results = ch }
}

// Handler routes consent redirects and provider callbacks.
type Handler struct {
	auth    driving.AuthorizationService
	owner   OwnerResolver
	results chan<- CallbackResult
	mux     *http.ServeMux
}

// NewHandler creates the HTTP handler.
func NewHandler(auth driving.AuthorizationService, owner OwnerResolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		auth:  auth,
		owner: owner,
		mux:   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.mux.HandleFunc("GET /authorize/{service}", h.handleAuthorize)
	h.mux.HandleFunc("GET /callback", h.handleCallback)
	return h
}

// Handle registers an additional route, such as /metrics.
func (h *Handler) Handle(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, handler)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	service, err := domain.ParseServiceIdentifier(r.PathValue("service"))
	if err != nil {
		h.fail(w, domain.InvalidScopeOrStateError("authorize", "", "unknown service", err))
		return
	}

	uri, err := h.auth.StartAuthorization(r.Context(), service)
	if err != nil {
		h.fail(w, err)
		return
	}
	http.Redirect(w, r, uri, http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := query.Get("state")

	if providerErr := query.Get("error"); providerErr != "" {
		err := h.auth.HandleProviderError(r.Context(), state, providerErr, query.Get("error_description"))
		h.report(CallbackResult{Err: err})
		h.fail(w, err)
		return
	}

	ownerID, err := h.owner(r)
	if err != nil {
		err = domain.InvalidScopeOrStateError("callback", "", "owner could not be resolved", err)
		h.report(CallbackResult{Err: err})
		h.fail(w, err)
		return
	}

	record, err := h.auth.HandleCallback(r.Context(), ownerID, query.Get("code"), state)
	h.report(CallbackResult{Record: record, Err: err})
	if err != nil {
		h.fail(w, err)
		return
	}

	writePage(w, http.StatusOK, "Authorization successful!",
		"Access to "+record.Service.String()+" was granted. You can close this window.")
}

func (h *Handler) report(result CallbackResult) {
	if h.results == nil {
		return
	}
	select {
	case h.results <- result:
	default:
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Callback failed: %v", err)
	} else {
		logger.Warn("Callback rejected: %v", err)
	}
	writePage(w, status, "Authorization failed", Explain(err))
}

// StatusCode maps an authorization error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidScopeOrState):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidGrant):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTransientProvider), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Explain returns a user-facing message that never includes provider bodies.
func Explain(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidScopeOrState):
		return "The request was invalid or has expired. Please start the authorization again."
	case errors.Is(err, domain.ErrNotAuthorized):
		return "No authorization exists yet. Please authorize the service first."
	case errors.Is(err, domain.ErrInvalidGrant):
		return "The provider did not grant access. Please authorize the service again."
	case errors.Is(err, domain.ErrTransientProvider):
		return "The provider could not be reached. Please try again in a moment."
	default:
		return "An internal error occurred."
	}
}
