package purchase

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/common"
)

// Handler exposes purchase endpoints for the authenticated customer.
type Handler struct {
	Svc *Service
}

// PayInput is the body of POST /purchases/{id}/installments/{installmentId}/pay.
type PayInput struct {
	PaymentMethod string           `json:"paymentMethod" validate:"required"`
	AmountPaid    *decimal.Decimal `json:"amountPaid" validate:"required"`
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "purchase service not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return userID, true
}

// List handles GET /purchases.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	rows, pagination, err := h.Svc.List(r.Context(), userID, page, perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows, "pagination": pagination})
}

// Get handles GET /purchases/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	p, err := h.Svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Remove handles DELETE /purchases/{id}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Remove(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pay handles POST /purchases/{id}/installments/{installmentId}/pay.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in PayInput
	if !common.DecodeJSON(w, r, &in) {
		return
	}
	if err := common.ValidateStruct(in); err != nil {
		common.WriteError(w, err)
		return
	}
	method, ok := ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		common.WriteError(w, ErrInvalidPaymentMethod)
		return
	}
	p, receipt, err := h.Svc.PayInstallment(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "installmentId"),
		Payment{Method: method, Amount: *in.AmountPaid})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p, "receipt": receipt})
}

// Plan handles GET /purchases/{id}/plan.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	p, plan, err := h.Svc.Plan(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if wantsText(r) && h.Svc.Renderer != nil {
		w.Header().Set("Content-Type", h.Svc.Renderer.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="plan-`+p.ID+`.txt"`)
		if err := h.Svc.Renderer.RenderPlan(w, p, plan); err != nil {
			h.Svc.Logger.Error().Err(err).Str("purchase_id", p.ID).Msg("render plan")
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": plan})
}

// Invoice handles GET /purchases/{id}/invoice.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	p, err := h.Svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if wantsText(r) && h.Svc.Renderer != nil {
		w.Header().Set("Content-Type", h.Svc.Renderer.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+p.ID+`.txt"`)
		if err := h.Svc.Renderer.RenderInvoice(w, p); err != nil {
			h.Svc.Logger.Error().Err(err).Str("purchase_id", p.ID).Msg("render invoice")
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"purchaseId":   p.ID,
		"customer":     p.Customer,
		"items":        p.Items,
		"shipping":     p.Shipping,
		"invoice":      p.Invoice,
		"installments": p.Installments,
	}})
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}
