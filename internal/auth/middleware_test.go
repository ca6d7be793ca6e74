package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-kredit/internal/common"
)

func newTestTokens(t *testing.T, now time.Time) *TokenVerifier {
	t.Helper()
	tokens, err := NewTokenVerifier(TokenConfig{
		Secret:    "test-secret",
		Issuer:    "toko",
		Audience:  "toko-kredit",
		ClockSkew: time.Second,
		AccessTTL: time.Minute,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return tokens
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := common.UserID(r.Context())
		_, _ = w.Write([]byte(id))
	})
}

func TestRequireAuthAcceptsSignedToken(t *testing.T) {
	tokens := newTestTokens(t, time.Now().UTC())
	token, _, err := tokens.Sign("user-42")
	require.NoError(t, err)

	mw := Middleware{Tokens: tokens}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchases", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.RequireAuth(echoUser()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-42", rec.Body.String())
}

func TestRequireAuthReadsCookie(t *testing.T) {
	tokens := newTestTokens(t, time.Now().UTC())
	token, _, err := tokens.Sign("user-7")
	require.NoError(t, err)

	mw := Middleware{Tokens: tokens, AccessCookie: "access_token"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()
	mw.RequireAuth(echoUser()).ServeHTTP(rec, req)

	require.Equal(t, "user-7", rec.Body.String())
}

func TestRequireAuthRejects(t *testing.T) {
	issued := time.Now().UTC().Add(-time.Hour)
	stale, _, err := newTestTokens(t, issued).Sign("user-1")
	require.NoError(t, err)

	other, err := NewTokenVerifier(TokenConfig{Secret: "other-secret", Issuer: "toko", Audience: "toko-kredit"})
	require.NoError(t, err)
	forged, _, err := other.Sign("user-1")
	require.NoError(t, err)

	mw := Middleware{Tokens: newTestTokens(t, time.Now().UTC())}
	cases := map[string]string{
		"missing": "",
		"expired": "Bearer " + stale,
		"forged":  "Bearer " + forged,
		"garbage": "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			mw.RequireAuth(echoUser()).ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !common.IsAdmin(r.Context()) {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	send := func(guard func(http.Handler) http.Handler, key string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/jobs/installments", nil)
		if key != "" {
			req.Header.Set("X-Admin-Key", key)
		}
		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, send(RequireAPIKey("s3cret"), "s3cret"))
	require.Equal(t, http.StatusUnauthorized, send(RequireAPIKey("s3cret"), "wrong"))
	require.Equal(t, http.StatusUnauthorized, send(RequireAPIKey("s3cret"), ""))
	require.Equal(t, http.StatusForbidden, send(RequireAPIKey(""), "anything"))
}
