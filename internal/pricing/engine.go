package pricing

import "github.com/shopspring/decimal"

// Money is a monetary amount. Values are rounded to two places when they
// leave this package.
type Money = decimal.Decimal

// Item describes a line item used for pricing calculation. UnitPrice is tax
// inclusive and UnitTax is the tax portion of one unit.
type Item struct {
	Qty       int
	UnitPrice Money
	UnitTax   Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// Compute calculates order totals from line items. Line values are summed
// unrounded and only the aggregates are rounded.
func Compute(items []Item) Summary {
	subtotal := decimal.Zero
	tax := decimal.Zero
	total := decimal.Zero
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		qty := decimal.NewFromInt(int64(it.Qty))
		lineTotal := it.UnitPrice.Mul(qty)
		lineTax := it.UnitTax.Mul(qty)
		subtotal = subtotal.Add(lineTotal.Sub(lineTax))
		tax = tax.Add(lineTax)
		total = total.Add(lineTotal)
	}
	return Summary{
		Subtotal: Round2(subtotal),
		Tax:      Round2(tax),
		Total:    Round2(total),
	}
}

// Round2 rounds half away from zero to cents.
func Round2(m Money) Money {
	return m.Round(2)
}
