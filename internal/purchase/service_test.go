package purchase

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-kredit/internal/lock"
	"github.com/noah-isme/toko-kredit/internal/obs"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newService(t *testing.T) (*Service, *MemoryStore, *clock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewMemoryStore()
	clk := &clock{t: checkoutAt}
	svc := &Service{
		Store:    store,
		Locker:   lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
		LockTTL:  time.Second,
		Renderer: TextRenderer{},
		Logger:   zerolog.Nop(),
		Now:      clk.Now,
	}
	return svc, store, clk
}

func seed(t *testing.T, store *MemoryStore, p *Purchase) *Purchase {
	t.Helper()
	p.ID = ""
	require.NoError(t, store.Insert(context.Background(), p))
	return p
}

func TestAdvanceGeneratesOncePerWindow(t *testing.T) {
	svc, store, clk := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	ctx := context.Background()

	out, err := svc.Advance(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, ActionNone, out.Action)

	clk.t = DueDate(p, 1).Add(time.Hour)
	out, err = svc.Advance(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, ActionGenerate, out.Action)
	require.NotNil(t, out.Installment)
	requireMoney(t, "106.62", out.Installment.Amount)

	out, err = svc.Advance(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, ActionNone, out.Action)

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Installments, 1)
	require.Equal(t, 1, stored.Invoice.CurrentShare)
}

func TestAdvanceMarksOverdue(t *testing.T) {
	svc, store, clk := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	ctx := context.Background()

	clk.t = DueDate(p, 1)
	_, err := svc.Advance(ctx, p.ID)
	require.NoError(t, err)

	clk.t = clk.t.AddDate(0, 0, 6)
	out, err := svc.Advance(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, ActionMarkOverdue, out.Action)

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, stored.Last().Overdue)
	require.Len(t, stored.Installments, 1)
}

func TestPayInstallmentPersistsAndCountsMetric(t *testing.T) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())
	svc, store, clk := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	ctx := context.Background()

	clk.t = DueDate(p, 1)
	out, err := svc.Advance(ctx, p.ID)
	require.NoError(t, err)
	instID := out.Installment.ID

	okBefore := testutil.ToFloat64(obs.InstallmentPaymentsTotal.WithLabelValues("ok"))
	belowBefore := testutil.ToFloat64(obs.InstallmentPaymentsTotal.WithLabelValues("PAYMENT_BELOW_DUE"))

	_, _, err = svc.PayInstallment(ctx, "u-1", p.ID, instID, Payment{Method: PaymentCash, Amount: dec("50")})
	require.ErrorIs(t, err, ErrPaymentBelowDue)

	updated, receipt, err := svc.PayInstallment(ctx, "u-1", p.ID, instID, Payment{Method: PaymentCash, Amount: dec("106.62")})
	require.NoError(t, err)
	require.True(t, receipt.Installment.Payment)
	require.True(t, updated.Last().Payment)

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, stored.Last().Payment)
	require.Equal(t, int64(3), stored.Version)

	require.Equal(t, okBefore+1, testutil.ToFloat64(obs.InstallmentPaymentsTotal.WithLabelValues("ok")))
	require.Equal(t, belowBefore+1, testutil.ToFloat64(obs.InstallmentPaymentsTotal.WithLabelValues("PAYMENT_BELOW_DUE")))
}

func TestPayInstallmentHidesOtherUsersPurchases(t *testing.T) {
	svc, store, clk := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	clk.t = DueDate(p, 1)
	out, err := svc.Advance(context.Background(), p.ID)
	require.NoError(t, err)

	_, _, err = svc.PayInstallment(context.Background(), "intruder", p.ID, out.Installment.ID, Payment{Method: PaymentCash, Amount: dec("106.62")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStaleUpdateConflicts(t *testing.T) {
	_, store, _ := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	ctx := context.Background()

	a, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	b, err := store.Get(ctx, p.ID)
	require.NoError(t, err)

	_, err = GenerateNext(a, DueDate(a, 1))
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, a))

	b.Active = false
	require.ErrorIs(t, store.Update(ctx, b), ErrConflict)
}

func TestRemoveIsSoft(t *testing.T) {
	svc, store, _ := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "u-1", p.ID))
	_, err := svc.Get(ctx, "u-1", p.ID)
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, stored.Active)
	require.Equal(t, p.Invoice.Debt, stored.Invoice.Debt)

	require.ErrorIs(t, svc.Remove(ctx, "u-1", p.ID), ErrNotFound)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		p := financed(t, "1200", 12, "12")
		p.ID = ""
		p.CreatedAt = checkoutAt.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Insert(ctx, p))
		ids = append(ids, p.ID)
	}

	rows, pg, err := svc.List(ctx, "u-1", 1, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, ids[2], rows[0].ID)
	require.Equal(t, int64(3), pg.TotalItems)
	require.Equal(t, int64(2), pg.TotalPages)

	rows, _, err = svc.List(ctx, "u-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, ids[0], rows[0].ID)
}

func TestPlanProjectsAgreedSchedule(t *testing.T) {
	svc, store, _ := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))

	_, plan, err := svc.Plan(context.Background(), "u-1", p.ID)
	require.NoError(t, err)
	require.Len(t, plan.Plan, 12)
	requireMoney(t, "1200", plan.TotalDebt)
	requireMoney(t, "1279.44", plan.TotalPaymentPlan)
	require.Equal(t, DueDate(p, 1), plan.Plan[0].Date)

	cash := financed(t, "100", 2, "5")
	cash.Invoice = Invoice{Paid: true, PaidAt: checkoutAt}
	seed(t, store, cash)
	_, _, err = svc.Plan(context.Background(), "u-1", cash.ID)
	require.ErrorIs(t, err, ErrNotFinanced)
}

func TestAdvancePropagatesStoreFailure(t *testing.T) {
	svc, store, clk := newService(t)
	p := seed(t, store, financed(t, "1200", 12, "12"))
	boom := errors.New("disk full")
	store.FailUpdate = map[string]error{p.ID: boom}

	clk.t = DueDate(p, 1)
	_, err := svc.Advance(context.Background(), p.ID)
	require.ErrorIs(t, err, boom)

	stored, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Installments)
}
