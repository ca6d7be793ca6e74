package audit

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-kredit/internal/common"
	"github.com/noah-isme/toko-kredit/internal/obs"
)

// HTTPRecorder records requests that reached a handler, with their final
// status, so rejected payments are audited as well as accepted ones.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig describes the audit entry produced for a route.
type HTTPConfig struct {
	Action       string
	ResourceType string
	// ResourceIDParam names the chi URL parameter holding the resource id.
	// When it is empty or unset, the last segment of a Location response
	// header is used, which covers creates.
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled {
				next.ServeHTTP(w, req)
				return
			}
			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)

			status := recorder.Status()
			resourceID := ""
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			if resourceID == "" {
				if loc := recorder.Header().Get("Location"); loc != "" {
					resourceID = path.Base(loc)
				}
			}

			metadata := map[string]any{}
			if inst := chi.URLParam(req, "installmentId"); inst != "" {
				metadata["installment_id"] = inst
			}
			if key := req.Header.Get(common.IdempotencyHeader); key != "" {
				metadata["idempotency_key"] = key
			}
			if cfg.MetadataFunc != nil {
				for k, v := range cfg.MetadataFunc(req, status) {
					metadata[k] = v
				}
			}
			if len(metadata) == 0 {
				metadata = nil
			}

			err := r.Service.Record(req.Context(), actorOf(req), cfg.Action, cfg.ResourceType, resourceID, req, status, metadata)
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func actorOf(req *http.Request) Actor {
	if common.IsAdmin(req.Context()) {
		return Actor{Kind: ActorKindAdmin}
	}
	if userID, ok := common.UserID(req.Context()); ok {
		return Actor{Kind: ActorKindUser, UserID: userID}
	}
	return Actor{Kind: ActorKindAnonymous}
}
