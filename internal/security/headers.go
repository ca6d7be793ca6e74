package security

import (
	"fmt"
	"net/http"
	"strings"
)

const defaultHSTSMaxAge = 365 * 24 * 60 * 60

// Headers sets response hardening headers for a JSON and plain-text API.
type Headers struct {
	EnableHSTS bool
	HSTSMaxAge int
	// PublicPrefixes lists path prefixes whose GET responses may be cached by
	// shared caches, such as the product catalog. Everything else carries
	// customer or invoice data and is marked no-store.
	PublicPrefixes []string
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	hsts := ""
	if h.EnableHSTS {
		maxAge := h.HSTSMaxAge
		if maxAge <= 0 {
			maxAge = defaultHSTSMaxAge
		}
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", maxAge)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if h.public(r) {
			headers.Set("Cache-Control", "public, max-age=60")
		} else {
			headers.Set("Cache-Control", "no-store")
		}
		if hsts != "" && (r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")) {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) public(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	for _, prefix := range h.PublicPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}
