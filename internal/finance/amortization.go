// Package finance implements the numeric core of financed purchases: the
// fixed-payment amortization formula and the overdue penalty calculation.
package finance

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTerm is returned when the number of installments is not positive.
	ErrInvalidTerm = errors.New("finance: number of installments must be positive")
	// ErrInvalidRate is returned for negative interest rates.
	ErrInvalidRate = errors.New("finance: interest rate must not be negative")
	// ErrInvalidPrincipal is returned for negative principals.
	ErrInvalidPrincipal = errors.New("finance: principal must not be negative")
	// ErrNonNumeric is returned when the annuity factor degenerates.
	ErrNonNumeric = errors.New("finance: amortization produced a non-numeric value")
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Period is one month of an amortization schedule.
type Period struct {
	Payment   decimal.Decimal `json:"payment"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Debt      decimal.Decimal `json:"debt"`
}

// MonthlyRate converts an annual percentage (12 means 12%) into a monthly fraction.
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(hundred).Div(twelve)
}

// MonthlyPayment returns the constant installment that repays principal over
// n months at annualRate:
//
//	payment = r*P / (1 - (1+r)^-n)
//
// A zero rate splits the principal evenly.
func MonthlyPayment(principal decimal.Decimal, n int, annualRate decimal.Decimal) (decimal.Decimal, error) {
	if n <= 0 {
		return decimal.Zero, ErrInvalidTerm
	}
	if annualRate.IsNegative() {
		return decimal.Zero, ErrInvalidRate
	}
	if principal.IsNegative() {
		return decimal.Zero, ErrInvalidPrincipal
	}
	if annualRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(2), nil
	}
	r := MonthlyRate(annualRate)
	// r*P / (1 - (1+r)^-n) rewritten over g = (1+r)^n as r*P*g / (g - 1).
	growth, err := one.Add(r).PowInt32(int32(n))
	if err != nil {
		return decimal.Zero, ErrNonNumeric
	}
	denom := growth.Sub(one)
	if !denom.IsPositive() {
		return decimal.Zero, ErrNonNumeric
	}
	return r.Mul(principal).Mul(growth).DivRound(denom, 10).Round(2), nil
}

// Amortize splits one payment against the running debt. On the final period
// the whole remaining debt is retired so the balance closes at zero.
func Amortize(debt, payment, monthlyRate decimal.Decimal, final bool) Period {
	interest := debt.Mul(monthlyRate).Round(2)
	principal := payment.Sub(interest).Round(2)
	if final || principal.GreaterThan(debt) {
		principal = debt.Round(2)
		payment = principal.Add(interest)
	}
	remaining := debt.Sub(principal).Round(3)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Period{
		Payment:   payment,
		Interest:  interest,
		Principal: principal,
		Debt:      remaining,
	}
}

// NextPeriod computes the installment owed on debt when remaining
// installments are left, re-deriving the fixed payment from the current
// balance so prepaid capital lowers later installments.
func NextPeriod(debt decimal.Decimal, remaining int, annualRate decimal.Decimal) (Period, error) {
	payment, err := MonthlyPayment(debt, remaining, annualRate)
	if err != nil {
		return Period{}, err
	}
	return Amortize(debt, payment, MonthlyRate(annualRate), remaining == 1), nil
}

// PlanRow is a projected month of a payment plan.
type PlanRow struct {
	Date           time.Time       `json:"date"`
	Installment    int             `json:"installment"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	Interest       decimal.Decimal `json:"interest"`
	Principal      decimal.Decimal `json:"principal"`
	Debt           decimal.Decimal `json:"debt"`
}

// Plan is a full prospective projection of a financed debt.
type Plan struct {
	Plan             []PlanRow       `json:"plan"`
	TotalDebt        decimal.Decimal `json:"totalDebt"`
	TotalInterest    decimal.Decimal `json:"totalInterest"`
	TotalPaymentPlan decimal.Decimal `json:"totalPaymentPlan"`
}

// BuildPlan projects every month of a fixed-payment schedule starting one
// month after start. It never touches persisted installments.
func BuildPlan(debt decimal.Decimal, n int, annualRate decimal.Decimal, start time.Time) (Plan, error) {
	payment, err := MonthlyPayment(debt, n, annualRate)
	if err != nil {
		return Plan{}, err
	}
	rate := MonthlyRate(annualRate)
	rows := make([]PlanRow, 0, n)
	balance := debt
	totalInterest := decimal.Zero
	for i := 1; i <= n; i++ {
		p := Amortize(balance, payment, rate, i == n)
		rows = append(rows, PlanRow{
			Date:           AddMonths(start, i),
			Installment:    i,
			MonthlyPayment: p.Payment,
			Interest:       p.Interest,
			Principal:      p.Principal,
			Debt:           p.Debt.Round(2),
		})
		totalInterest = totalInterest.Add(p.Interest)
		balance = p.Debt
	}
	return Plan{
		Plan:             rows,
		TotalDebt:        debt.Round(2),
		TotalInterest:    totalInterest.Round(2),
		TotalPaymentPlan: payment.Mul(decimal.NewFromInt(int64(n))).Round(2),
	}, nil
}

// AddMonths moves t forward by months, clamping to the last day of the target
// month instead of spilling into the next one (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
