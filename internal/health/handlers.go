package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-kredit/internal/common"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness flag. The API clears it when shutdown starts so
// load balancers drain traffic before the listener closes.
func SetReady(v bool) { ready.Store(v) }

// Check is a named dependency probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Postgres probes the connection pool.
func Postgres(pool *pgxpool.Pool) Check {
	return Check{Name: "db", Probe: func(ctx context.Context) error {
		if pool == nil {
			return errUnconfigured
		}
		return pool.Ping(ctx)
	}}
}

// Redis probes the redis client shared by locks, cart and the task queue.
func Redis(client *redis.Client) Check {
	return Check{Name: "redis", Probe: func(ctx context.Context) error {
		if client == nil {
			return errUnconfigured
		}
		return client.Ping(ctx).Err()
	}}
}

var errUnconfigured = common.NewAppError("UNAVAILABLE", "dependency not configured", http.StatusServiceUnavailable, nil)

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checks  []Check
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "draining"})
		return
	}
	status := make(map[string]string, len(h.Checks))
	healthy := true
	for _, check := range h.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := check.Probe(ctx)
		cancel()
		if err != nil {
			status[check.Name] = err.Error()
			healthy = false
			continue
		}
		status[check.Name] = "ok"
	}
	code := http.StatusOK
	overall := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		overall = "degraded"
	}
	common.JSON(w, code, map[string]any{"status": overall, "checks": status})
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}
