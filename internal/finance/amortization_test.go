package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.StringFixed(2))
}

func TestMonthlyPayment(t *testing.T) {
	p, err := MonthlyPayment(dec("1200"), 12, dec("12"))
	require.NoError(t, err)
	requireMoney(t, "106.62", p)

	p, err = MonthlyPayment(dec("1000"), 4, decimal.Zero)
	require.NoError(t, err)
	requireMoney(t, "250", p)
}

func TestMonthlyPaymentWithRepeatingMonthlyRate(t *testing.T) {
	cases := []struct {
		principal string
		n         int
		annual    string
		want      string
	}{
		{"300", 3, "5", "100.83"},
		{"15000", 24, "18", "748.86"},
		{"999.99", 36, "7", "30.88"},
	}
	for _, tc := range cases {
		p, err := MonthlyPayment(dec(tc.principal), tc.n, dec(tc.annual))
		require.NoError(t, err)
		requireMoney(t, tc.want, p)
		require.True(t, p.Equal(p.Round(2)))
	}
}

func TestMonthlyPaymentRejectsBadInput(t *testing.T) {
	_, err := MonthlyPayment(dec("100"), 0, dec("5"))
	require.ErrorIs(t, err, ErrInvalidTerm)

	_, err = MonthlyPayment(dec("100"), -3, dec("5"))
	require.ErrorIs(t, err, ErrInvalidTerm)

	_, err = MonthlyPayment(dec("100"), 3, dec("-1"))
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = MonthlyPayment(dec("-100"), 3, dec("5"))
	require.ErrorIs(t, err, ErrInvalidPrincipal)
}

func TestNextPeriodFirstInstallment(t *testing.T) {
	p, err := NextPeriod(dec("1200"), 12, dec("12"))
	require.NoError(t, err)
	requireMoney(t, "106.62", p.Payment)
	requireMoney(t, "12.00", p.Interest)
	requireMoney(t, "94.62", p.Principal)
	requireMoney(t, "1105.38", p.Debt)
}

func TestNextPeriodLastInstallmentClosesDebt(t *testing.T) {
	p, err := NextPeriod(dec("101.50"), 1, dec("12"))
	require.NoError(t, err)
	requireMoney(t, "101.50", p.Principal)
	requireMoney(t, "1.02", p.Interest)
	requireMoney(t, "102.52", p.Payment)
	require.True(t, p.Debt.IsZero())
}

func TestBuildPlanProperties(t *testing.T) {
	start := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		debt string
		n    int
		rate string
	}{
		{"1200", 12, "12"},
		{"1000", 3, "5"},
		{"5399.99", 36, "5"},
		{"87.13", 2, "0"},
		{"250000", 24, "18.5"},
	}
	for _, tc := range cases {
		plan, err := BuildPlan(dec(tc.debt), tc.n, dec(tc.rate), start)
		require.NoError(t, err)
		require.Len(t, plan.Plan, tc.n)

		sum := decimal.Zero
		interest := decimal.Zero
		prev := dec(tc.debt)
		rate := MonthlyRate(dec(tc.rate))
		for i, row := range plan.Plan {
			require.Equal(t, i+1, row.Installment)
			require.False(t, row.Debt.IsNegative())
			require.True(t, row.Interest.Equal(prev.Mul(rate).Round(2)))
			require.True(t, row.Debt.LessThanOrEqual(prev))
			sum = sum.Add(row.Principal)
			interest = interest.Add(row.Interest)
			prev = row.Debt
		}
		requireMoney(t, tc.debt, sum)
		require.True(t, plan.Plan[tc.n-1].Debt.IsZero())
		require.True(t, plan.TotalInterest.Equal(interest))
		requireMoney(t, tc.debt, plan.TotalDebt)
		require.True(t, plan.TotalPaymentPlan.Equal(plan.Plan[0].MonthlyPayment.Mul(decimal.NewFromInt(int64(tc.n)))))
	}
}

func TestBuildPlanDates(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	plan, err := BuildPlan(dec("300"), 3, dec("5"), start)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), plan.Plan[0].Date)
	require.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), plan.Plan[1].Date)
	require.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), plan.Plan[2].Date)
}

func TestBuildPlanInvalidTerm(t *testing.T) {
	_, err := BuildPlan(dec("300"), 0, dec("5"), time.Now())
	require.ErrorIs(t, err, ErrInvalidTerm)
}

func TestAddMonths(t *testing.T) {
	jan31 := time.Date(2023, 1, 31, 8, 30, 0, 0, time.UTC)
	require.Equal(t, time.Date(2023, 2, 28, 8, 30, 0, 0, time.UTC), AddMonths(jan31, 1))
	require.Equal(t, time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC), AddMonths(jan31, 13))
	require.Equal(t, time.Date(2023, 12, 31, 8, 30, 0, 0, time.UTC), AddMonths(jan31, 11))
	require.Equal(t, jan31, AddMonths(jan31, 0))
}
