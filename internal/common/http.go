package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the peer address of r without the port. Forwarding headers
// are not read here; the router's RealIP middleware has already folded a
// trusted proxy's X-Forwarded-For or X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap().String()
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	if a, err := netip.ParseAddr(addr); err == nil {
		return a.Unmap().String()
	}
	return addr
}

// RateLimitKey buckets authenticated callers by user and everyone else by IP,
// so customers behind one NAT do not share a checkout budget.
func RateLimitKey(r *http.Request) string {
	if id, ok := UserID(r.Context()); ok {
		return "user:" + id
	}
	return "ip:" + ClientIP(r)
}
