// Package audit records who changed money-relevant state through the API.
package audit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-kredit/internal/common"
	"github.com/noah-isme/toko-kredit/internal/obs"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAdmin     ActorKind = "admin"
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind   ActorKind
	UserID string
}

// Entry is one audited request.
type Entry struct {
	Actor        Actor
	Action       string
	ResourceType string
	ResourceID   string
	Method       string
	Route        string
	Status       int
	ClientIP     string
	RequestID    string
	Metadata     map[string]any
	At           time.Time
}

// Sink stores audit entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// LogSink writes entries to a dedicated zerolog stream.
type LogSink struct {
	Logger zerolog.Logger
}

// Write implements Sink.
func (s LogSink) Write(_ context.Context, e Entry) error {
	evt := s.Logger.Info().
		Str("audit_action", e.Action).
		Str("resource_type", e.ResourceType).
		Str("actor_kind", string(e.Actor.Kind)).
		Str("method", e.Method).
		Str("route", e.Route).
		Int("status", e.Status).
		Time("at", e.At)
	if e.Actor.UserID != "" {
		evt = evt.Str("actor_user_id", e.Actor.UserID)
	}
	if e.ResourceID != "" {
		evt = evt.Str("resource_id", e.ResourceID)
	}
	if e.ClientIP != "" {
		evt = evt.Str("client_ip", e.ClientIP)
	}
	if e.RequestID != "" {
		evt = evt.Str("request_id", e.RequestID)
	}
	if len(e.Metadata) > 0 {
		evt = evt.Interface("metadata", e.Metadata)
	}
	evt.Msg("audit")
	return nil
}

// Service normalises and forwards audit entries.
type Service struct {
	Sink    Sink
	Enabled bool
	Now     func() time.Time
}

// Record builds an entry for req and hands it to the sink.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata map[string]any) error {
	if !s.Enabled {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Sink == nil {
		return errors.New("audit: sink not configured")
	}
	route := obs.RouteOf(req)
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	if status == 0 {
		status = http.StatusOK
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	return s.Sink.Write(ctx, Entry{
		Actor:        normalizeActor(actor),
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   strings.TrimSpace(resourceID),
		Method:       req.Method,
		Route:        route,
		Status:       status,
		ClientIP:     common.ClientIP(req),
		RequestID:    middleware.GetReqID(req.Context()),
		Metadata:     metadata,
		At:           now,
	})
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + route
}

func buildResource(resourceType, route string) string {
	if trimmed := strings.TrimSpace(resourceType); trimmed != "" {
		return trimmed
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		segments = segments[2:]
	}
	kept := segments[:0]
	for _, seg := range segments {
		if !strings.HasPrefix(seg, "{") {
			kept = append(kept, seg)
		}
	}
	return strings.Join(kept, ".")
}

func normalizeActor(a Actor) Actor {
	switch a.Kind {
	case ActorKindUser, ActorKindAdmin:
		return a
	default:
		return Actor{Kind: ActorKindAnonymous}
	}
}
