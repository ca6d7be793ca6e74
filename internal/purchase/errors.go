package purchase

import (
	"net/http"

	"github.com/noah-isme/toko-kredit/internal/common"
)

var (
	ErrNotFound            = common.NotFoundError("purchase not found")
	ErrInstallmentNotFound = common.NotFoundError("installment not found")

	ErrInvalidInstallmentCount    = common.ValidationError("INVALID_INSTALLMENT_COUNT", "installment count is not allowed")
	ErrInsufficientInitialPayment = common.ValidationError("INSUFFICIENT_INITIAL_PAYMENT", "initial payment must be non-negative and less than the total due")
	ErrInvalidPaymentMethod       = common.ValidationError("VALIDATION_ERROR", "payment method is not supported")
	ErrNotFinanced                = common.ValidationError("NOT_FINANCED", "purchase is not financed")
	ErrAlreadyPaid                = common.ValidationError("ALREADY_PAID", "purchase is already paid")
	ErrInstallmentAlreadyPaid     = common.ValidationError("INSTALLMENT_ALREADY_PAID", "installment is already paid")
	ErrOutOfSequence              = common.ValidationError("INSTALLMENT_OUT_OF_SEQUENCE", "only the most recent installment can be paid")
	ErrPaymentBelowDue            = common.ValidationError("PAYMENT_BELOW_DUE", "amount paid is less than the amount due")
	ErrPaymentExceedsDebt         = common.ValidationError("PAYMENT_EXCEEDS_DEBT", "amount paid exceeds the remaining debt")

	ErrConflict = common.NewAppError("CONFLICT", "purchase was modified concurrently, retry", http.StatusConflict, nil)
)
