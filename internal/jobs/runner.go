// Package jobs runs the periodic installment lifecycle pass over open
// financed purchases.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-kredit/internal/finance"
	"github.com/noah-isme/toko-kredit/internal/notify"
	"github.com/noah-isme/toko-kredit/internal/obs"
	"github.com/noah-isme/toko-kredit/internal/purchase"
)

// Lister pages through candidate purchases.
type Lister interface {
	ListOpen(ctx context.Context, afterID string, limit int) ([]purchase.Purchase, error)
}

// Advancer applies the lifecycle to one purchase under its lock.
type Advancer interface {
	Advance(ctx context.Context, id string) (purchase.Outcome, error)
}

// Report summarises one run.
type Report struct {
	Scanned       int `json:"scanned"`
	Generated     int `json:"generated"`
	MarkedOverdue int `json:"markedOverdue"`
	Skipped       int `json:"skipped"`
	NotifyFailed  int `json:"notifyFailed"`
}

// Runner walks every active, financed, unpaid purchase once per run.
type Runner struct {
	Store     Lister
	Purchases Advancer
	Notifier  notify.Notifier
	BatchSize int
	Logger    *zerolog.Logger
	Now       func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Runner) logger() *zerolog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// RunOnce performs a full pass. A purchase that fails is logged and skipped;
// only listing failures and cancellation abort the run.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	if r.Store == nil || r.Purchases == nil {
		return Report{}, errors.New("jobs: runner not configured")
	}
	ctx, span := obs.StartSpan(ctx, "installments.run")
	report, err := r.run(ctx)
	span.SetAttributes(
		attribute.Int("installments.scanned", report.Scanned),
		attribute.Int("installments.generated", report.Generated),
		attribute.Int("installments.marked_overdue", report.MarkedOverdue),
		attribute.Int("installments.skipped", report.Skipped),
	)
	obs.EndSpan(span, err)
	return report, err
}

func (r *Runner) run(ctx context.Context) (Report, error) {
	batch := r.BatchSize
	if batch <= 0 {
		batch = 200
	}
	start := time.Now()
	log := r.logger()
	var (
		report Report
		cursor string
	)
	for {
		if err := ctx.Err(); err != nil {
			r.finish(report, start, err)
			return report, err
		}
		page, err := r.Store.ListOpen(ctx, cursor, batch)
		if err != nil {
			r.finish(report, start, err)
			return report, err
		}
		for i := range page {
			p := &page[i]
			report.Scanned++
			if purchase.Evaluate(p, r.now()) == purchase.ActionNone {
				continue
			}
			r.advance(ctx, p.ID, &report)
		}
		if len(page) < batch {
			break
		}
		cursor = page[len(page)-1].ID
	}
	r.finish(report, start, nil)
	log.Info().
		Int("scanned", report.Scanned).
		Int("generated", report.Generated).
		Int("marked_overdue", report.MarkedOverdue).
		Int("skipped", report.Skipped).
		Int("notify_failed", report.NotifyFailed).
		Dur("took", time.Since(start)).
		Msg("installment run finished")
	return report, nil
}

func (r *Runner) advance(ctx context.Context, id string, report *Report) {
	log := r.logger()
	out, err := r.Purchases.Advance(ctx, id)
	if err != nil {
		reason := skipReason(err)
		report.Skipped++
		if obs.InstallmentJobSkippedTotal != nil {
			obs.InstallmentJobSkippedTotal.WithLabelValues(reason).Inc()
		}
		log.Warn().Err(err).Str("purchase_id", id).Str("reason", reason).Msg("installment run skipped purchase")
		return
	}

	var topic string
	switch out.Action {
	case purchase.ActionGenerate:
		report.Generated++
		topic = notify.TopicInstallmentGenerated
		if obs.InstallmentsGeneratedTotal != nil {
			obs.InstallmentsGeneratedTotal.Inc()
		}
	case purchase.ActionMarkOverdue:
		report.MarkedOverdue++
		topic = notify.TopicInstallmentOverdue
		if obs.InstallmentsMarkedOverdueTotal != nil {
			obs.InstallmentsMarkedOverdueTotal.Inc()
		}
	default:
		return
	}
	log.Info().Str("purchase_id", id).Str("action", string(out.Action)).Int("installment", out.Installment.Index).Msg("installment lifecycle advanced")

	if r.Notifier == nil {
		return
	}
	err = r.Notifier.Notify(ctx, notify.Event{
		Topic:       topic,
		Purchase:    out.Purchase,
		Installment: out.Installment,
		OccurredAt:  r.now(),
	})
	if err != nil {
		report.NotifyFailed++
		log.Error().Err(err).Str("purchase_id", id).Str("topic", topic).Msg("installment notification failed")
	}
}

func (r *Runner) finish(report Report, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if obs.InstallmentJobRunsTotal != nil {
		obs.InstallmentJobRunsTotal.WithLabelValues(result).Inc()
	}
	if obs.InstallmentJobDuration != nil {
		obs.InstallmentJobDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.logger().Error().Err(err).Int("scanned", report.Scanned).Msg("installment run aborted")
	}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, finance.ErrNonNumeric),
		errors.Is(err, finance.ErrInvalidPrincipal),
		errors.Is(err, finance.ErrInvalidRate),
		errors.Is(err, finance.ErrInvalidTerm):
		return "invalid_amounts"
	case errors.Is(err, purchase.ErrConflict):
		return "conflict"
	case errors.Is(err, context.DeadlineExceeded):
		return "lock_timeout"
	default:
		return "error"
	}
}
