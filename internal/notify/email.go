package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-kredit/internal/common"
	"github.com/noah-isme/toko-kredit/internal/purchase"
)

const (
	TopicInstallmentGenerated = "installment.generated"
	TopicInstallmentOverdue   = "installment.overdue"
)

// Event describes a lifecycle change worth telling the customer about.
type Event struct {
	Topic       string
	Purchase    *purchase.Purchase
	Installment *purchase.Installment
	OccurredAt  time.Time
}

// Notifier delivers lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// EmailNotifier sends installment emails to the customer snapshot address.
type EmailNotifier struct {
	Mail         common.EmailSender
	Enabled      bool
	TopicToggles map[string]bool
}

// Notify implements Notifier.
func (n EmailNotifier) Notify(_ context.Context, event Event) error {
	if !n.Enabled || n.Mail == nil || event.Purchase == nil || event.Installment == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	to := strings.TrimSpace(event.Purchase.Customer.Email)
	if to == "" {
		return nil
	}
	if err := n.Mail.Send(to, subjectFor(event), bodyFor(event)); err != nil {
		return fmt.Errorf("email notify: %w", err)
	}
	return nil
}

func subjectFor(event Event) string {
	switch event.Topic {
	case TopicInstallmentGenerated:
		return fmt.Sprintf("Tagihan cicilan ke-%d", event.Installment.Index)
	case TopicInstallmentOverdue:
		return fmt.Sprintf("Cicilan ke-%d terlambat", event.Installment.Index)
	default:
		return "Informasi pembelian"
	}
}

func bodyFor(event Event) string {
	p, in := event.Purchase, event.Installment
	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s,\n\n", p.Customer.Name)
	switch event.Topic {
	case TopicInstallmentOverdue:
		fmt.Fprintf(&b, "Cicilan ke-%d dari %d untuk pembelian %s telah melewati batas waktu %s.\n",
			in.Index, p.Invoice.Share, p.ID, in.DeadlineAt.Format("2006-01-02"))
		fmt.Fprintf(&b, "Denda harian %s%% dari tagihan berlaku sampai cicilan dibayar.\n",
			p.Invoice.DailyInterestRate.Shift(2).String())
	default:
		fmt.Fprintf(&b, "Cicilan ke-%d dari %d untuk pembelian %s sudah tersedia.\n", in.Index, p.Invoice.Share, p.ID)
	}
	fmt.Fprintf(&b, "Jumlah tagihan: %s\n", in.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Bunga: %s, pokok: %s\n", in.Interest.StringFixed(2), in.Principal.StringFixed(2))
	fmt.Fprintf(&b, "Batas pembayaran: %s\n", in.DeadlineAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Sisa utang setelah pembayaran: %s\n", in.Debt.StringFixed(2))
	return b.String()
}

// LogMailer is an EmailSender that writes messages to the log instead of
// delivering them. It is used when no mail transport is configured.
type LogMailer struct {
	Logger zerolog.Logger
	From   string
}

// Send implements common.EmailSender.
func (m LogMailer) Send(to, subject, body string) error {
	m.Logger.Info().
		Str("component", "mail").
		Str("from", m.From).
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("email queued")
	return nil
}
