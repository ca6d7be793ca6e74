package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Assessment is the outcome of checking a payment date against a deadline.
type Assessment struct {
	IsOverdue   bool            `json:"isOverdue"`
	DaysOverdue int             `json:"daysOverdue"`
	Penalty     decimal.Decimal `json:"penalty"`
	AmountDue   decimal.Decimal `json:"amountDue"`
}

// Assess computes the amount due when amount is paid at paidAt against
// deadline, charging dailyRate of amount for each calendar day late.
func Assess(amount decimal.Decimal, paidAt, deadline time.Time, dailyRate decimal.Decimal) Assessment {
	if !IsOverdue(deadline, paidAt) {
		return Assessment{Penalty: decimal.Zero, AmountDue: amount}
	}
	days := DaysBetween(deadline, paidAt)
	penalty := amount.Mul(dailyRate).Mul(decimal.NewFromInt(int64(days))).Round(2)
	return Assessment{
		IsOverdue:   true,
		DaysOverdue: days,
		Penalty:     penalty,
		AmountDue:   amount.Add(penalty),
	}
}

// IsOverdue reports whether now falls on a calendar day after deadline.
// The deadline day itself is still on time.
func IsOverdue(deadline, now time.Time) bool {
	return DaysBetween(deadline, now) > 0
}

// DaysBetween returns the calendar-day difference to - from, evaluated in
// from's location. Time of day is ignored.
func DaysBetween(from, to time.Time) int {
	loc := from.Location()
	a := civil(from.In(loc))
	b := civil(to.In(loc))
	return int(b.Sub(a).Hours() / 24)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
