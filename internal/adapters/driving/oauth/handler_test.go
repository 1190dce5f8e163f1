package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driving"
)

// fakeAuth records calls and returns canned results.
type fakeAuth struct {
	startURL    string
	startErr    error
	record      *domain.AuthorizationRecord
	callbackErr error

	gotService domain.ServiceIdentifier
	gotOwner   string
	gotCode    string
	gotState   string
	gotErrCode string
	gotErrDesc string
}

var _ driving.AuthorizationService = (*fakeAuth)(nil)

func (f *fakeAuth) StartAuthorization(_ context.Context, service domain.ServiceIdentifier) (string, error) {
	f.gotService = service
	return f.startURL, f.startErr
}

func (f *fakeAuth) HandleCallback(
	_ context.Context,
	ownerID, code, state string,
) (*domain.AuthorizationRecord, error) {
	f.gotOwner, f.gotCode, f.gotState = ownerID, code, state
	return f.record, f.callbackErr
}

func (f *fakeAuth) HandleProviderError(_ context.Context, state, code, description string) error {
	f.gotState, f.gotErrCode, f.gotErrDesc = state, code, description
	return domain.InvalidGrantError("callback", domain.ServiceCalendar, "provider returned an error", errors.New(code))
}

func (f *fakeAuth) EnsureFreshToken(context.Context, string, domain.ServiceIdentifier) (string, error) {
	return "", nil
}

func (f *fakeAuth) Status(context.Context, string) ([]domain.AuthorizationSummary, error) {
	return nil, nil
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_Authorize(t *testing.T) {
	auth := &fakeAuth{startURL: "https://accounts.example.com/auth?state=abc"}
	h := NewHandler(auth, StaticOwner("user-1"))

	rec := serve(h, "/authorize/calendar")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://accounts.example.com/auth?state=abc", rec.Header().Get("Location"))
	assert.Equal(t, domain.ServiceCalendar, auth.gotService)
}

func TestHandler_AuthorizeUnknownService(t *testing.T) {
	auth := &fakeAuth{}
	h := NewHandler(auth, StaticOwner("user-1"))

	rec := serve(h, "/authorize/chat")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, auth.gotService)
}

func TestHandler_AuthorizeNotConfigured(t *testing.T) {
	auth := &fakeAuth{startErr: domain.InvalidScopeOrStateError("lookup", domain.ServiceMusic, "", domain.ErrUnknownService)}
	h := NewHandler(auth, StaticOwner("user-1"))

	rec := serve(h, "/authorize/MUSIC")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ServiceMusic, auth.gotService)
}

func TestHandler_Callback(t *testing.T) {
	results := make(chan CallbackResult, 1)
	auth := &fakeAuth{record: &domain.AuthorizationRecord{ID: "auth-1", Service: domain.ServiceCalendar}}
	h := NewHandler(auth, StaticOwner("user-1"), WithResults(results))

	rec := serve(h, "/callback?code=ABC123&state=s1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization successful!")
	assert.Contains(t, rec.Body.String(), "CALENDAR")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "user-1", auth.gotOwner)
	assert.Equal(t, "ABC123", auth.gotCode)
	assert.Equal(t, "s1", auth.gotState)

	result := <-results
	require.NoError(t, result.Err)
	assert.Equal(t, "auth-1", result.Record.ID)
}

func TestHandler_CallbackFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid state", domain.InvalidScopeOrStateError("decode state", "", "", nil), http.StatusBadRequest},
		{"invalid grant", domain.InvalidGrantError("exchange", domain.ServiceCalendar, "", nil), http.StatusForbidden},
		{"transient", domain.TransientProviderError("exchange", domain.ServiceCalendar, "", nil), http.StatusBadGateway},
		{"encryption", domain.EncryptionError("seal", "", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan CallbackResult, 1)
			h := NewHandler(&fakeAuth{callbackErr: tt.err}, StaticOwner("user-1"), WithResults(results))

			rec := serve(h, "/callback?code=ABC123&state=s1")

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "Authorization failed")
			assert.ErrorIs(t, (<-results).Err, tt.err)
		})
	}
}

func TestHandler_ProviderError(t *testing.T) {
	results := make(chan CallbackResult, 1)
	auth := &fakeAuth{}
	h := NewHandler(auth, StaticOwner("user-1"), WithResults(results))

	rec := serve(h, "/callback?error=access_denied&error_description=User+denied&state=s1")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "s1", auth.gotState)
	assert.Equal(t, "access_denied", auth.gotErrCode)
	assert.Equal(t, "User denied", auth.gotErrDesc)
	assert.Empty(t, auth.gotCode)
	assert.ErrorIs(t, (<-results).Err, domain.ErrInvalidGrant)
}

func TestHandler_OwnerResolverFailure(t *testing.T) {
	auth := &fakeAuth{}
	h := NewHandler(auth, func(*http.Request) (string, error) {
		return "", errors.New("no session")
	})

	rec := serve(h, "/callback?code=ABC123&state=s1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, auth.gotCode)
}

func TestHandler_ResultsDoNotBlock(t *testing.T) {
	results := make(chan CallbackResult)
	auth := &fakeAuth{record: &domain.AuthorizationRecord{Service: domain.ServiceCalendar}}
	h := NewHandler(auth, StaticOwner("user-1"), WithResults(results))

	rec := serve(h, "/callback?code=ABC123&state=s1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_EscapesMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	writePage(rec, http.StatusOK, "<script>", "a & b")

	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
	assert.Contains(t, rec.Body.String(), "a &amp; b")
}

func TestHandler_ExtraRoute(t *testing.T) {
	h := NewHandler(&fakeAuth{}, StaticOwner("user-1"))
	h.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.Equal(t, http.StatusNoContent, serve(h, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, "/unknown").Code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusCode(domain.NotAuthorizedError("", "", "")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}

func TestExplain_DoesNotLeakDetails(t *testing.T) {
	err := domain.InvalidGrantError("refresh", domain.ServiceCalendar, "provider said secret-body", nil)
	assert.NotContains(t, Explain(err), "secret-body")
}
