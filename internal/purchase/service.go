package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-kredit/internal/common"
	"github.com/noah-isme/toko-kredit/internal/finance"
	"github.com/noah-isme/toko-kredit/internal/obs"
)

// Locker serialises work on a single purchase across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service exposes purchase reads and lifecycle mutations.
type Service struct {
	Store    Store
	Locker   Locker
	LockTTL  time.Duration
	Renderer Renderer
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Outcome reports what Advance did to a purchase.
type Outcome struct {
	Action      Action
	Purchase    *Purchase
	Installment *Installment
}

// LockKey is the distributed lock key guarding one purchase.
func LockKey(id string) string {
	return "lock:purchase:" + id
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.Locker == nil {
		return fn(ctx)
	}
	return s.Locker.WithLock(ctx, LockKey(id), s.LockTTL, fn)
}

// owned loads an active purchase belonging to userID. Purchases of other
// users are reported as missing.
func (s *Service) owned(ctx context.Context, userID, id string) (*Purchase, error) {
	if s == nil || s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active || p.UserID != userID {
		return nil, ErrNotFound
	}
	return p, nil
}

// Get returns the purchase view for its owner.
func (s *Service) Get(ctx context.Context, userID, id string) (*Purchase, error) {
	return s.owned(ctx, userID, id)
}

// List returns the user's active purchases, newest first.
func (s *Service) List(ctx context.Context, userID string, page, perPage int) ([]Purchase, common.Pagination, error) {
	if s == nil || s.Store == nil {
		return nil, common.Pagination{}, ErrStoreUnavailable
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	rows, total, err := s.Store.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	return rows, common.NewPagination(page, perPage, total), nil
}

// Remove soft-deletes a purchase. Its invoice and installments are kept.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	return s.withLock(ctx, id, func(ctx context.Context) error {
		p, err := s.owned(ctx, userID, id)
		if err != nil {
			return err
		}
		p.Active = false
		if err := s.Store.Update(ctx, p); err != nil {
			return err
		}
		s.Logger.Info().Str("purchase_id", id).Msg("purchase removed")
		return nil
	})
}

// Plan projects the agreed amortization schedule of a financed purchase.
func (s *Service) Plan(ctx context.Context, userID, id string) (*Purchase, finance.Plan, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, finance.Plan{}, err
	}
	plan, err := ProjectPlan(p)
	if err != nil {
		return nil, finance.Plan{}, err
	}
	return p, plan, nil
}

// ProjectPlan builds the full schedule from the financed amount and the
// terms captured on the invoice.
func ProjectPlan(p *Purchase) (finance.Plan, error) {
	inv := p.Invoice
	if !inv.Financed {
		return finance.Plan{}, ErrNotFinanced
	}
	principal := inv.Principal
	if principal.IsZero() {
		principal = inv.Total.Sub(inv.InitialPayment)
	}
	return finance.BuildPlan(principal, inv.Share, inv.Interest, inv.PaidAt)
}

// PayInstallment books a customer payment against installmentID.
func (s *Service) PayInstallment(ctx context.Context, userID, id, installmentID string, pay Payment) (*Purchase, Receipt, error) {
	var (
		out     *Purchase
		receipt Receipt
	)
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		p, err := s.owned(ctx, userID, id)
		if err != nil {
			return err
		}
		receipt, err = ApplyPayment(p, installmentID, pay, s.now())
		if err != nil {
			return err
		}
		if err := s.Store.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	result := "ok"
	if err != nil {
		result = paymentResult(err)
	}
	if obs.InstallmentPaymentsTotal != nil {
		obs.InstallmentPaymentsTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		return nil, Receipt{}, err
	}
	s.Logger.Info().
		Str("purchase_id", id).
		Int("installment", receipt.Installment.Index).
		Str("amount_paid", pay.Amount.StringFixed(2)).
		Bool("overdue", receipt.Assessment.IsOverdue).
		Bool("settled", receipt.Settled).
		Msg("installment paid")
	return out, receipt, nil
}

func paymentResult(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}

// Advance re-evaluates one purchase under its lock and applies whatever the
// lifecycle calls for: a new installment, an overdue flag, or nothing.
func (s *Service) Advance(ctx context.Context, id string) (Outcome, error) {
	if s == nil || s.Store == nil {
		return Outcome{}, ErrStoreUnavailable
	}
	var out Outcome
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		p, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		out = Outcome{Action: Evaluate(p, now), Purchase: p}
		switch out.Action {
		case ActionGenerate:
			inst, err := GenerateNext(p, now)
			if err != nil {
				return err
			}
			out.Installment = inst
		case ActionMarkOverdue:
			MarkOverdue(p)
			out.Installment = p.Last()
		default:
			return nil
		}
		return s.Store.Update(ctx, p)
	})
	if err != nil {
		return Outcome{Action: ActionNone}, err
	}
	return out, nil
}
