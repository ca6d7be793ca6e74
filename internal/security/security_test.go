package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-kredit/internal/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.ContentLength != 0 && !common.DecodeJSON(w, r, &body) {
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimit(t *testing.T) {
	h := BodyLimit{Max: 5}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{}")))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"share":12}`)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"share":12}`))
	req.ContentLength = -1
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestCSRF(t *testing.T) {
	h := CSRF{AccessCookie: "access_token"}.Middleware(okHandler())

	send := func(mutate func(*http.Request)) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		mutate(req)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, send(func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }))
	require.Equal(t, http.StatusOK, send(func(r *http.Request) {}))
	require.Equal(t, http.StatusForbidden, send(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "jwt"})
	}))
	require.Equal(t, http.StatusForbidden, send(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "jwt"})
		r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "one"})
		r.Header.Set("X-CSRF-Token", "two")
	}))
	require.Equal(t, http.StatusOK, send(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "jwt"})
		r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "same"})
		r.Header.Set("X-CSRF-Token", "same")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/purchases", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	Headers{EnableHSTS: true}.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersPublicCatalogAndHSTS(t *testing.T) {
	h := Headers{EnableHSTS: true, PublicPrefixes: []string{"/api/v1/products/"}}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/p-1", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(rr, req)
	require.Equal(t, "public, max-age=60", rr.Header().Get("Cache-Control"))
	require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/purchases/p-1/invoice", nil))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}
