package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestHandler(provider *fakeProvider) (*Handler, *fakeSessions) {
	users := &fakeUsers{byLineID: make(map[string]*User)}
	sessions := newFakeSessions()
	svc := NewService(provider, users, sessions, "https://bot.example.com/auth/line/callback", time.Hour, nil)
	return NewHandler(svc, "https://shop.example.com", nil), sessions
}

func TestLoginRedirectsToConsentPage(t *testing.T) {
	h, _ := newTestHandler(&fakeProvider{})
	rec := httptest.NewRecorder()

	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/line/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "access.line.me/oauth2/v2.1/authorize")
}

func TestCallbackSuccessRedirectsWithToken(t *testing.T) {
	h, sessions := newTestHandler(&fakeProvider{profile: Profile{UserID: "U1", DisplayName: "Alice"}})
	rec := httptest.NewRecorder()

	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/line/callback?code=good", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/callback", loc.Path)
	token := loc.Query().Get("token")
	require.NotEmpty(t, token)
	require.Contains(t, sessions.byToken, token)
}

func TestCallbackProviderErrorRedirectsToLogin(t *testing.T) {
	h, _ := newTestHandler(&fakeProvider{})
	rec := httptest.NewRecorder()

	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/line/callback?error=access_denied", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://shop.example.com/login?error=access_denied", rec.Header().Get("Location"))
}

func TestCallbackMissingCode(t *testing.T) {
	h, _ := newTestHandler(&fakeProvider{})
	rec := httptest.NewRecorder()

	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/line/callback", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "error=no_code")
}

func TestVerifyEndpoint(t *testing.T) {
	provider := &fakeProvider{profile: Profile{UserID: "U1", DisplayName: "Alice"}}
	h, _ := newTestHandler(provider)

	// Mint a session through the callback.
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/line/callback?code=good", nil))
	loc, _ := url.Parse(rec.Header().Get("Location"))
	token := loc.Query().Get("token")

	rec = httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodPost, "/auth/line/verify", strings.NewReader(`{"token":"`+token+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "expiresAt")

	rec = httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodPost, "/auth/line/verify", strings.NewReader(`{"token":"bogus"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodPost, "/auth/line/verify", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutEndpointIdempotent(t *testing.T) {
	h, _ := newTestHandler(&fakeProvider{})

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/line/logout", strings.NewReader(`{"token":"whatever"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "true")
}

func TestRequireSessionMiddleware(t *testing.T) {
	provider := &fakeProvider{profile: Profile{UserID: "U1", DisplayName: "Alice"}}
	users := &fakeUsers{byLineID: make(map[string]*User)}
	sessions := newFakeSessions()
	svc := NewService(provider, users, sessions, "cb", time.Hour, nil)

	token, err := svc.CompleteLogin(context.Background(), "code")
	require.NoError(t, err)

	var seen User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		seen = u
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireSession(svc)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/my/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, users.byLineID["U1"].ID, seen.ID)

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/my/bookings", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/my/bookings", nil)
	req.Header.Set("Authorization", "Bearer deadbeef")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
