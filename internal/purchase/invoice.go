package purchase

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/pricing"
)

// Terms are the financing defaults in force when an invoice is built.
type Terms struct {
	AnnualInterest   decimal.Decimal
	DailyPenaltyRate decimal.Decimal
	GraceDays        int
	AllowedShares    []int
}

// DefaultTerms mirrors the configuration defaults.
func DefaultTerms() Terms {
	return Terms{
		AnnualInterest:   decimal.NewFromInt(5),
		DailyPenaltyRate: decimal.RequireFromString("0.001"),
		GraceDays:        5,
		AllowedShares:    []int{2, 3, 6, 12, 18, 24, 36},
	}
}

// InvoiceInput carries the order totals and the customer's financing choice.
type InvoiceInput struct {
	Summary        pricing.Summary
	ShippingCost   decimal.Decimal
	Method         PaymentMethod
	Financed       bool
	Share          int
	InitialPayment decimal.Decimal
}

// BuildInvoice assembles the invoice for a new purchase. Financed invoices
// start with no installment generated; the lifecycle job creates the first one.
func BuildInvoice(in InvoiceInput, terms Terms, now time.Time) (Invoice, error) {
	totalDue := in.Summary.Total.Add(in.ShippingCost).Round(2)
	inv := Invoice{
		PaymentMethod:     in.Method,
		Financed:          in.Financed,
		Subtotal:          in.Summary.Subtotal,
		Tax:               in.Summary.Tax,
		OtherCosts:        in.ShippingCost,
		Total:             totalDue,
		InitialPayment:    decimal.Zero,
		Principal:         decimal.Zero,
		Debt:              decimal.Zero,
		Interest:          terms.AnnualInterest,
		DailyInterestRate: terms.DailyPenaltyRate,
		GraceDays:         terms.GraceDays,
		PaidAt:            now,
	}
	if !in.Financed {
		inv.Paid = true
		return inv, nil
	}
	if in.Share < 2 || !slices.Contains(terms.AllowedShares, in.Share) {
		return Invoice{}, ErrInvalidInstallmentCount.WithDetails(map[string]any{
			"share":   in.Share,
			"allowed": terms.AllowedShares,
		})
	}
	if in.InitialPayment.IsNegative() || !in.InitialPayment.LessThan(totalDue) {
		return Invoice{}, ErrInsufficientInitialPayment.WithDetails(map[string]any{
			"initialPayment": in.InitialPayment,
			"totalDue":       totalDue,
		})
	}
	debt := totalDue.Sub(in.InitialPayment).Round(2)
	inv.Share = in.Share
	inv.InitialPayment = in.InitialPayment
	inv.Principal = debt
	inv.Debt = debt
	return inv, nil
}
