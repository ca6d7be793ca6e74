package purchase

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/pricing"
)

// PaymentMethod is how a customer settles an invoice or an installment.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "Credit Card"
	PaymentDebitCard  PaymentMethod = "Debit Card"
	PaymentPaypal     PaymentMethod = "Paypal"
	PaymentCash       PaymentMethod = "Cash"
	PaymentTransfer   PaymentMethod = "Transfer"
	PaymentCheck      PaymentMethod = "Check"
	PaymentOther      PaymentMethod = "Other"
	PaymentNotDefined PaymentMethod = "Not Defined"
)

var paymentMethods = map[string]PaymentMethod{}

func init() {
	for _, m := range []PaymentMethod{
		PaymentCreditCard, PaymentDebitCard, PaymentPaypal, PaymentCash,
		PaymentTransfer, PaymentCheck, PaymentOther, PaymentNotDefined,
	} {
		paymentMethods[strings.ToLower(string(m))] = m
	}
}

// ParsePaymentMethod resolves a method name case-insensitively.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	m, ok := paymentMethods[strings.ToLower(strings.TrimSpace(raw))]
	return m, ok
}

// Customer is the buyer profile copied at checkout.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Item is a purchased product line copied at checkout.
type Item struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	Category  pricing.Category `json:"category"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	UnitTax   decimal.Decimal  `json:"unitTax"`
}

// Shipping holds the delivery details and computed cost.
type Shipping struct {
	Method  pricing.ShippingMethod `json:"method"`
	Address string                 `json:"address"`
	City    string                 `json:"city"`
	Country string                 `json:"country"`
	Cost    decimal.Decimal        `json:"cost"`
}

// Invoice is the billing state of a purchase. Interest, DailyInterestRate and
// GraceDays are captured when the invoice is built and never re-read from
// configuration afterwards.
type Invoice struct {
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	Paid              bool            `json:"paid"`
	Financed          bool            `json:"financed"`
	Share             int             `json:"share"`
	CurrentShare      int             `json:"currentShare"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	OtherCosts        decimal.Decimal `json:"otherCosts"`
	Total             decimal.Decimal `json:"total"`
	InitialPayment    decimal.Decimal `json:"initialPayment"`
	Principal         decimal.Decimal `json:"principal"`
	Interest          decimal.Decimal `json:"interest"`
	DailyInterestRate decimal.Decimal `json:"dailyInterestRate"`
	GraceDays         int             `json:"graceDays"`
	Debt              decimal.Decimal `json:"debt"`
	PaidAt            time.Time       `json:"paidAt"`
}

// Installment is one generated month of a financed purchase. Once Payment is
// true only the fields booked at pay time have been written.
type Installment struct {
	ID            string          `json:"id"`
	Index         int             `json:"index"`
	Amount        decimal.Decimal `json:"amount"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	Interest      decimal.Decimal `json:"interest"`
	Principal     decimal.Decimal `json:"principal"`
	Debt          decimal.Decimal `json:"debt"`
	PenaltyFee    decimal.Decimal `json:"penaltyFee"`
	Capital       decimal.Decimal `json:"capital"`
	Payment       bool            `json:"payment"`
	Overdue       bool            `json:"overdue"`
	DueAt         time.Time       `json:"dueAt"`
	DeadlineAt    time.Time       `json:"deadlineAt"`
	PaymentAt     *time.Time      `json:"paymentAt,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
}

// Purchase is the aggregate root persisted as one document.
type Purchase struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Customer     Customer      `json:"customer"`
	Items        []Item        `json:"items"`
	Shipping     Shipping      `json:"shipping"`
	Invoice      Invoice       `json:"invoice"`
	Installments []Installment `json:"installments"`
	Active       bool          `json:"active"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Last returns the most recently generated installment, or nil.
func (p *Purchase) Last() *Installment {
	if len(p.Installments) == 0 {
		return nil
	}
	return &p.Installments[len(p.Installments)-1]
}

// Installment looks an installment up by id.
func (p *Purchase) Installment(id string) (*Installment, int) {
	for i := range p.Installments {
		if p.Installments[i].ID == id {
			return &p.Installments[i], i
		}
	}
	return nil, -1
}
