package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-kredit/internal/common"
)

type memSink struct{ entries []Entry }

func (m *memSink) Write(_ context.Context, e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestHTTPRecorderRecordsPayment(t *testing.T) {
	sink := &memSink{}
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := HTTPRecorder{Service: &Service{Sink: sink, Enabled: true, Now: func() time.Time { return fixed }}}

	r := chi.NewRouter()
	r.With(rec.Middleware(HTTPConfig{
		Action:          "installment.pay",
		ResourceIDParam: "id",
	})).Post("/api/v1/purchases/{id}/installments/{installmentId}/pay", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases/p-1/installments/i-9/pay", nil)
	req.Header.Set(common.IdempotencyHeader, "pay-1")
	req = req.WithContext(common.WithUserID(req.Context(), "u-1"))
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	require.Equal(t, "installment.pay", e.Action)
	require.Equal(t, "purchases.installments.pay", e.ResourceType)
	require.Equal(t, "p-1", e.ResourceID)
	require.Equal(t, http.StatusUnprocessableEntity, e.Status)
	require.Equal(t, Actor{Kind: ActorKindUser, UserID: "u-1"}, e.Actor)
	require.Equal(t, "i-9", e.Metadata["installment_id"])
	require.Equal(t, "pay-1", e.Metadata["idempotency_key"])
	require.Equal(t, fixed, e.At)
}

func TestHTTPRecorderAdminAndDisabled(t *testing.T) {
	sink := &memSink{}
	svc := &Service{Sink: sink, Enabled: true}
	handler := HTTPRecorder{Service: svc}.Middleware(HTTPConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/jobs/installments", nil)
	req = req.WithContext(common.WithAdmin(req.Context()))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, sink.entries, 1)
	require.Equal(t, ActorKindAdmin, sink.entries[0].Actor.Kind)
	require.Equal(t, "POST /api/v1/admin/jobs/installments", sink.entries[0].Action)
	require.Equal(t, "admin.jobs.installments", sink.entries[0].ResourceType)

	svc.Enabled = false
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, sink.entries, 1)
}

func TestHTTPRecorderTakesCreatedIDFromLocation(t *testing.T) {
	sink := &memSink{}
	rec := HTTPRecorder{Service: &Service{Sink: sink, Enabled: true}}

	r := chi.NewRouter()
	r.With(rec.Middleware(HTTPConfig{Action: "checkout.create", ResourceIDParam: "id"})).
		Post("/api/v1/checkout", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "/api/v1/purchases/p-77")
			w.WriteHeader(http.StatusCreated)
		})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(common.WithUserID(req.Context(), "u-1"))
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, sink.entries, 1)
	require.Equal(t, "p-77", sink.entries[0].ResourceID)
	require.Equal(t, http.StatusCreated, sink.entries[0].Status)
	require.Nil(t, sink.entries[0].Metadata)
}
