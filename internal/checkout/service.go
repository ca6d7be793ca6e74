package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/cart"
	"github.com/noah-isme/toko-kredit/internal/catalog"
	"github.com/noah-isme/toko-kredit/internal/common"
	"github.com/noah-isme/toko-kredit/internal/obs"
	"github.com/noah-isme/toko-kredit/internal/pricing"
	"github.com/noah-isme/toko-kredit/internal/purchase"
	"github.com/noah-isme/toko-kredit/internal/user"
)

var (
	ErrEmptyCart           = common.ValidationError("EMPTY_CART", "cart is empty")
	ErrNoProductsAvailable = common.ValidationError("NO_PRODUCTS_AVAILABLE", "none of the products in the cart are available")
)

// CartProvider reads and clears a user's cart.
type CartProvider interface {
	Items(ctx context.Context, userID string) ([]cart.Line, error)
	Clear(ctx context.Context, userID string) error
}

// CustomerProvider resolves the buyer profile.
type CustomerProvider interface {
	GetUser(ctx context.Context, id string) (user.Profile, error)
}

// CacheInvalidator drops cached product reads after stock changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, ids ...string)
}

// Input is the checkout request.
type Input struct {
	PaymentMethod  string           `json:"paymentMethod" validate:"required"`
	ShippingMethod string           `json:"shippingMethod" validate:"required"`
	Address        string           `json:"address" validate:"required,max=300"`
	City           string           `json:"city" validate:"required,max=100"`
	Country        string           `json:"country" validate:"required,max=100"`
	Financed       bool             `json:"financed"`
	Share          int              `json:"share" validate:"gte=0"`
	InitialPayment *decimal.Decimal `json:"initialPayment"`
}

// Output identifies the created purchase.
type Output struct {
	PurchaseID string          `json:"purchaseId"`
	Total      decimal.Decimal `json:"total"`
	Financed   bool            `json:"financed"`
	Skipped    []string        `json:"skipped,omitempty"`
}

// Service runs the checkout transaction.
type Service struct {
	Tx        Transactor
	Cart      CartProvider
	Customers CustomerProvider
	Catalog   CacheInvalidator
	Terms     purchase.Terms
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create turns the user's cart into a purchase. Stock decrements and the
// purchase insert commit together or not at all; the cart is cleared only
// after commit.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	out, err := s.create(ctx, userID, in)
	result := "ok"
	if err != nil {
		result = "error"
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			result = appErr.Code
		}
	}
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
	return out, err
}

func (s *Service) create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Tx == nil || s.Cart == nil || s.Customers == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if err := common.ValidateStruct(in); err != nil {
		return Output{}, err
	}
	method, ok := purchase.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return Output{}, purchase.ErrInvalidPaymentMethod
	}
	shipMethod := pricing.ShippingMethod(strings.ToUpper(strings.TrimSpace(in.ShippingMethod)))
	if !pricing.ValidShippingMethod(shipMethod) {
		shipMethod = pricing.ShippingOther
	}
	initial := decimal.Zero
	if in.InitialPayment != nil {
		initial = *in.InitialPayment
	}

	lines, err := s.Cart.Items(ctx, userID)
	if err != nil {
		return Output{}, err
	}
	if len(lines) == 0 {
		return Output{}, ErrEmptyCart
	}
	profile, err := s.Customers.GetUser(ctx, userID)
	if err != nil {
		return Output{}, err
	}

	now := s.now()
	p := &purchase.Purchase{
		UserID: userID,
		Customer: purchase.Customer{
			ID:    profile.ID,
			Name:  profile.FullName(),
			Email: profile.Email,
			Phone: profile.Phone,
		},
		Shipping: purchase.Shipping{
			Method:  shipMethod,
			Address: strings.TrimSpace(in.Address),
			City:    strings.TrimSpace(in.City),
			Country: strings.TrimSpace(in.Country),
		},
		Active:    true,
		CreatedAt: now,
	}
	var (
		skipped []string
		touched []string
	)
	err = s.Tx.InTx(ctx, func(ctx context.Context, tx Tx) error {
		items := make([]pricing.Item, 0, len(lines))
		for _, line := range lines {
			prod, err := tx.GetProduct(ctx, line.ProductID)
			if errors.Is(err, catalog.ErrProductNotFound) {
				skipped = append(skipped, line.ProductID)
				continue
			}
			if err != nil {
				return err
			}
			if !prod.Active || prod.Stock < line.Quantity {
				skipped = append(skipped, line.ProductID)
				continue
			}
			if _, err := tx.AdjustStock(ctx, prod.ID, -line.Quantity); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					skipped = append(skipped, line.ProductID)
					continue
				}
				return err
			}
			touched = append(touched, prod.ID)
			p.Items = append(p.Items, purchase.Item{
				ProductID: prod.ID,
				Name:      prod.Name,
				Quantity:  line.Quantity,
				Category:  prod.Category,
				UnitPrice: prod.Price,
				UnitTax:   prod.UnitTax,
			})
			items = append(items, pricing.Item{Qty: line.Quantity, UnitPrice: prod.Price, UnitTax: prod.UnitTax})
		}
		if len(items) == 0 {
			return ErrNoProductsAvailable
		}

		summary := pricing.Compute(items)
		p.Shipping.Cost = pricing.ShippingCost(summary.Total, shipMethod)
		inv, err := purchase.BuildInvoice(purchase.InvoiceInput{
			Summary:        summary,
			ShippingCost:   p.Shipping.Cost,
			Method:         method,
			Financed:       in.Financed,
			Share:          in.Share,
			InitialPayment: initial,
		}, s.Terms, now)
		if err != nil {
			return err
		}
		p.Invoice = inv
		return tx.InsertPurchase(ctx, p)
	})
	if err != nil {
		s.Logger.Warn().Err(err).Str("user_id", userID).Msg("checkout aborted")
		return Output{}, err
	}

	if err := s.Cart.Clear(ctx, userID); err != nil {
		s.Logger.Error().Err(err).Str("purchase_id", p.ID).Msg("clear cart after checkout")
	}
	if s.Catalog != nil {
		s.Catalog.Invalidate(ctx, touched...)
	}
	s.Logger.Info().
		Str("purchase_id", p.ID).
		Str("user_id", userID).
		Str("total", p.Invoice.Total.StringFixed(2)).
		Bool("financed", p.Invoice.Financed).
		Int("skipped", len(skipped)).
		Msg("purchase created")
	return Output{PurchaseID: p.ID, Total: p.Invoice.Total, Financed: p.Invoice.Financed, Skipped: skipped}, nil
}
