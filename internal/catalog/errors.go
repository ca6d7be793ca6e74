package catalog

import (
	"net/http"

	"github.com/noah-isme/toko-kredit/internal/common"
)

var (
	ErrProductNotFound   = common.NotFoundError("product not found")
	ErrInsufficientStock = common.NewAppError("INSUFFICIENT_STOCK", "not enough stock", http.StatusConflict, nil)
)
