package purchase

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/finance"
)

// Renderer turns purchase views into downloadable documents.
type Renderer interface {
	ContentType() string
	RenderInvoice(w io.Writer, p *Purchase) error
	RenderPlan(w io.Writer, p *Purchase, plan finance.Plan) error
}

// TextRenderer renders fixed-width plain text documents.
type TextRenderer struct{}

// ContentType implements Renderer.
func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

// RenderInvoice implements Renderer.
func (TextRenderer) RenderInvoice(w io.Writer, p *Purchase) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	inv := p.Invoice
	fmt.Fprintf(tw, "INVOICE\t%s\n", p.ID)
	fmt.Fprintf(tw, "Date\t%s\n", inv.PaidAt.Format("2006-01-02"))
	fmt.Fprintf(tw, "Customer\t%s <%s>\n", p.Customer.Name, p.Customer.Email)
	fmt.Fprintf(tw, "Ship to\t%s, %s, %s (%s)\n\n", p.Shipping.Address, p.Shipping.City, p.Shipping.Country, p.Shipping.Method)

	fmt.Fprintln(tw, "Product\tQty\tUnit price\tUnit tax\tLine total\t")
	for _, it := range p.Items {
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n", it.Name, it.Quantity,
			it.UnitPrice.StringFixed(2), it.UnitTax.StringFixed(2), line.StringFixed(2))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Subtotal\t%s\n", inv.Subtotal.StringFixed(2))
	fmt.Fprintf(tw, "Tax\t%s\n", inv.Tax.StringFixed(2))
	fmt.Fprintf(tw, "Shipping\t%s\n", inv.OtherCosts.StringFixed(2))
	fmt.Fprintf(tw, "Total\t%s\n", inv.Total.StringFixed(2))
	fmt.Fprintf(tw, "Payment method\t%s\n", inv.PaymentMethod)
	if inv.Financed {
		fmt.Fprintf(tw, "Initial payment\t%s\n", inv.InitialPayment.StringFixed(2))
		fmt.Fprintf(tw, "Installments\t%d of %d\n", inv.CurrentShare, inv.Share)
		fmt.Fprintf(tw, "Annual interest\t%s%%\n", inv.Interest.String())
		fmt.Fprintf(tw, "Outstanding debt\t%s\n", inv.Debt.StringFixed(2))
	}
	fmt.Fprintf(tw, "Status\t%s\n", paidLabel(inv.Paid))

	if len(p.Installments) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "#\tDue\tDeadline\tAmount\tPaid\tPenalty\tCapital\tDebt\tStatus\t")
		for _, in := range p.Installments {
			status := "open"
			switch {
			case in.Payment:
				status = "paid"
			case in.Overdue:
				status = "overdue"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", in.Index,
				in.DueAt.Format("2006-01-02"), in.DeadlineAt.Format("2006-01-02"),
				in.Amount.StringFixed(2), in.AmountPaid.StringFixed(2), in.PenaltyFee.StringFixed(2),
				in.Capital.StringFixed(2), in.Debt.StringFixed(2), status)
		}
	}
	return tw.Flush()
}

// RenderPlan implements Renderer.
func (TextRenderer) RenderPlan(w io.Writer, p *Purchase, plan finance.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PAYMENT PLAN\t%s\n", p.ID)
	fmt.Fprintf(tw, "Customer\t%s\n", p.Customer.Name)
	fmt.Fprintf(tw, "Annual interest\t%s%%\n\n", p.Invoice.Interest.String())
	fmt.Fprintln(tw, "#\tDate\tPayment\tInterest\tPrincipal\tDebt\t")
	for _, row := range plan.Plan {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", row.Installment, row.Date.Format("2006-01-02"),
			row.MonthlyPayment.StringFixed(2), row.Interest.StringFixed(2),
			row.Principal.StringFixed(2), row.Debt.StringFixed(2))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Total debt\t%s\n", plan.TotalDebt.StringFixed(2))
	fmt.Fprintf(tw, "Total interest\t%s\n", plan.TotalInterest.StringFixed(2))
	fmt.Fprintf(tw, "Total payment plan\t%s\n", plan.TotalPaymentPlan.StringFixed(2))
	return tw.Flush()
}

func paidLabel(paid bool) string {
	if paid {
		return "PAID"
	}
	return "PENDING"
}
