package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routePatternKey struct{}

// WithRoutePattern pins the route label for a request, overriding the chi
// pattern. It is used by handlers mounted outside the router.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RouteOf returns the low-cardinality route label for r: the pinned pattern,
// else the chi pattern matched so far. Call it after the handler has run to
// get the full pattern of nested routers. It returns "" for unmatched paths.
func RouteOf(r *http.Request) string {
	ctx := r.Context()
	if v, ok := ctx.Value(routePatternKey{}).(string); ok && v != "" {
		return v
	}
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
