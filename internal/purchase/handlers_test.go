package purchase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-kredit/internal/common"
)

func newRouter(h *Handler, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(common.WithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/purchases", h.List)
	r.Get("/purchases/{id}", h.Get)
	r.Delete("/purchases/{id}", h.Remove)
	r.Get("/purchases/{id}/plan", h.Plan)
	r.Get("/purchases/{id}/invoice", h.Invoice)
	r.Post("/purchases/{id}/installments/{installmentId}/pay", h.Pay)
	return r
}

func TestPayHandlerErrors(t *testing.T) {
	svc, store, clk := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	clk.t = DueDate(p, 1)
	out, err := svc.Advance(context.Background(), p.ID)
	require.NoError(t, err)
	router := newRouter(&Handler{Svc: svc}, "u-1")
	path := "/purchases/" + p.ID + "/installments/" + out.Installment.ID + "/pay"

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"paymentMethod":"Cash"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{`{"paymentMethod":"Barter","amountPaid":"106.62"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{`{"paymentMethod":"Cash","amountPaid":"100"}`, http.StatusBadRequest, "PAYMENT_BELOW_DUE"},
		{`{"paymentMethod":"Cash","amountPaid":"5000"}`, http.StatusBadRequest, "PAYMENT_EXCEEDS_DEBT"},
		{`not json`, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(tc.body)))
		require.Equal(t, tc.status, rec.Code, tc.body)
		var body struct {
			Error common.ErrorBody `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.code, body.Error.Code, tc.body)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"paymentMethod":"credit card","amountPaid":106.62}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"payment":true`)
}

func TestHandlersRequireUser(t *testing.T) {
	svc, _, _ := newService(t)
	router := newRouter(&Handler{Svc: svc}, "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvoiceAndPlanTextDownloads(t *testing.T) {
	svc, store, _ := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	router := newRouter(&Handler{Svc: svc}, "u-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/"+p.ID+"/invoice?format=text", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Contains(t, rec.Body.String(), "Ana Maria Lopez")
	require.Contains(t, rec.Body.String(), "1200.00")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/"+p.ID+"/plan?format=text", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "1279.44")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/"+p.ID+"/plan", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Plan []json.RawMessage `json:"plan"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Plan, 12)
}

func TestRemoveHandler(t *testing.T) {
	svc, store, _ := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	router := newRouter(&Handler{Svc: svc}, "u-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/purchases/"+p.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/"+p.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
