package purchase

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/finance"
)

// State is the installment lifecycle position of a purchase. It is always
// derived from the invoice and installment list, never stored.
type State string

const (
	StateNotFinanced   State = "NOT_FINANCED"
	StateAwaitingFirst State = "AWAITING_FIRST"
	StateAwaitingNext  State = "AWAITING_NEXT"
	StateOpenCurrent   State = "OPEN_CURRENT"
	StateOverdue       State = "OVERDUE_CURRENT"
	StateAllPaid       State = "ALL_PAID"
)

// Action is what the lifecycle job should do with a purchase right now.
type Action string

const (
	ActionNone        Action = "none"
	ActionGenerate    Action = "generate"
	ActionMarkOverdue Action = "mark_overdue"
)

// StateAt derives the lifecycle state of p at now.
func StateAt(p *Purchase, now time.Time) State {
	inv := p.Invoice
	if !inv.Financed {
		return StateNotFinanced
	}
	last := p.Last()
	if inv.Paid || (last != nil && last.Payment && inv.CurrentShare >= inv.Share) {
		return StateAllPaid
	}
	switch {
	case last == nil:
		return StateAwaitingFirst
	case last.Payment:
		return StateAwaitingNext
	case finance.IsOverdue(last.DeadlineAt, now):
		return StateOverdue
	default:
		return StateOpenCurrent
	}
}

// DueDate is the scheduled date of installment k, anchored to the moment the
// invoice was finalised so that late generation never shifts later periods.
func DueDate(p *Purchase, k int) time.Time {
	return finance.AddMonths(p.Invoice.PaidAt, k)
}

// Evaluate is the single eligibility predicate used by the job and by tests.
// Applying the returned action moves p into a state where Evaluate returns
// ActionNone for the same now.
func Evaluate(p *Purchase, now time.Time) Action {
	if !p.Active {
		return ActionNone
	}
	inv := p.Invoice
	switch StateAt(p, now) {
	case StateAwaitingFirst:
		if inv.CurrentShare < inv.Share && !now.Before(DueDate(p, 1)) {
			return ActionGenerate
		}
	case StateAwaitingNext:
		if inv.CurrentShare < inv.Share && !now.Before(DueDate(p, inv.CurrentShare+1)) {
			return ActionGenerate
		}
	case StateOverdue:
		if !p.Last().Overdue {
			return ActionMarkOverdue
		}
	}
	return ActionNone
}

// GenerateNext appends the next installment, amortizing the outstanding debt
// over the installments still to be generated.
func GenerateNext(p *Purchase, now time.Time) (*Installment, error) {
	inv := &p.Invoice
	remaining := inv.Share - inv.CurrentShare
	if remaining <= 0 {
		return nil, ErrAlreadyPaid
	}
	debt := inv.Debt
	if last := p.Last(); last != nil {
		debt = last.Debt
	}
	period, err := finance.NextPeriod(debt, remaining, inv.Interest)
	if err != nil {
		return nil, fmt.Errorf("amortize purchase %s: %w", p.ID, err)
	}
	due := DueDate(p, inv.CurrentShare+1)
	graceFrom := due
	if now.After(due) {
		graceFrom = now
	}
	inst := Installment{
		ID:         uuid.NewString(),
		Index:      inv.CurrentShare + 1,
		Amount:     period.Payment,
		AmountPaid: decimal.Zero,
		Interest:   period.Interest,
		Principal:  period.Principal,
		Debt:       period.Debt,
		PenaltyFee: decimal.Zero,
		Capital:    decimal.Zero,
		DueAt:      due,
		DeadlineAt: graceFrom.AddDate(0, 0, inv.GraceDays),
	}
	p.Installments = append(p.Installments, inst)
	inv.CurrentShare++
	return p.Last(), nil
}

// MarkOverdue flags the open installment as overdue. It stays payable.
func MarkOverdue(p *Purchase) bool {
	last := p.Last()
	if last == nil || last.Payment || last.Overdue {
		return false
	}
	last.Overdue = true
	return true
}

// Payment is a customer's attempt to settle an installment.
type Payment struct {
	Method PaymentMethod
	Amount decimal.Decimal
}

// Receipt describes how a payment was booked.
type Receipt struct {
	Installment *Installment       `json:"installment"`
	Assessment  finance.Assessment `json:"assessment"`
	Settled     bool               `json:"settled"`
}

// ApplyPayment books pay against installment id. Only the most recent,
// unpaid installment is payable; any amount between the due amount and the
// remaining debt plus the due amount is accepted and the surplus is applied
// as extra capital.
func ApplyPayment(p *Purchase, id string, pay Payment, now time.Time) (Receipt, error) {
	inv := &p.Invoice
	if !inv.Financed {
		return Receipt{}, ErrNotFinanced
	}
	if inv.Paid {
		return Receipt{}, ErrAlreadyPaid
	}
	inst, idx := p.Installment(id)
	if inst == nil {
		return Receipt{}, ErrInstallmentNotFound
	}
	if inst.Payment {
		return Receipt{}, ErrInstallmentAlreadyPaid
	}
	if idx != len(p.Installments)-1 {
		return Receipt{}, ErrOutOfSequence
	}
	if _, ok := ParsePaymentMethod(string(pay.Method)); !ok {
		return Receipt{}, ErrInvalidPaymentMethod
	}

	assessment := finance.Assess(inst.Amount, now, inst.DeadlineAt, inv.DailyInterestRate)
	if pay.Amount.LessThan(assessment.AmountDue) {
		return Receipt{}, ErrPaymentBelowDue.WithDetails(map[string]any{
			"amountDue":   assessment.AmountDue,
			"penalty":     assessment.Penalty,
			"daysOverdue": assessment.DaysOverdue,
		})
	}
	ceiling := inst.Debt.Add(assessment.AmountDue)
	if pay.Amount.GreaterThan(ceiling) {
		return Receipt{}, ErrPaymentExceedsDebt.WithDetails(map[string]any{
			"maxAmount": ceiling,
		})
	}

	capital := pay.Amount.Sub(assessment.AmountDue)
	paidAt := now
	inst.Payment = true
	inst.PaymentAt = &paidAt
	inst.PaymentMethod = pay.Method
	inst.AmountPaid = pay.Amount
	inst.PenaltyFee = assessment.Penalty
	inst.Capital = capital
	inst.Debt = inst.Debt.Sub(capital)
	inst.Overdue = inst.Overdue || assessment.IsOverdue

	inv.Debt = inst.Debt
	settled := inst.Index >= inv.Share || inst.Debt.IsZero()
	if settled {
		inv.Paid = true
	}
	return Receipt{Installment: inst, Assessment: assessment, Settled: settled}, nil
}
