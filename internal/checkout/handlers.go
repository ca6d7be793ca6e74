package checkout

import (
	"net/http"

	"github.com/noah-isme/toko-kredit/internal/common"
)

type Handler struct {
	Svc *Service
}

// Checkout handles POST /checkout. The new purchase is linked in Location.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload Input
	if !common.DecodeJSON(w, r, &payload) {
		return
	}
	out, err := h.Svc.Create(r.Context(), userID, payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/purchases/"+out.PurchaseID)
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}
