package purchase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-kredit/internal/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.StringFixed(2))
}

var checkoutAt = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

// financed builds an active purchase owing debt over share installments with
// no installment generated yet.
func financed(t *testing.T, debt string, share int, annual string) *Purchase {
	t.Helper()
	terms := DefaultTerms()
	terms.AnnualInterest = dec(annual)
	inv, err := BuildInvoice(InvoiceInput{
		Summary:        pricing.Summary{Subtotal: dec(debt), Tax: decimal.Zero, Total: dec(debt)},
		ShippingCost:   decimal.Zero,
		Method:         PaymentCreditCard,
		Financed:       true,
		Share:          share,
		InitialPayment: decimal.Zero,
	}, terms, checkoutAt)
	require.NoError(t, err)
	return &Purchase{
		ID:       "p-1",
		UserID:   "u-1",
		Customer: Customer{ID: "u-1", Name: "Ana Maria Lopez", Email: "ana@example.com"},
		Items: []Item{{
			ProductID: "prod-1", Name: "Laptop", Quantity: 1, Category: pricing.CategoryElectronics,
			UnitPrice: dec(debt), UnitTax: decimal.Zero,
		}},
		Shipping: Shipping{Method: pricing.ShippingPickup, Address: "Jl. Merdeka 1", City: "Bandung", Country: "ID", Cost: decimal.Zero},
		Invoice:  inv,
		Active:   true,
	}
}
