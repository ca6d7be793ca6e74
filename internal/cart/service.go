package cart

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-kredit/internal/catalog"
	"github.com/noah-isme/toko-kredit/internal/common"
)

var (
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = common.ValidationError("", "quantity must be at least 1")
	// ErrItemNotFound is returned when removing a product that is not in the cart.
	ErrItemNotFound = common.NotFoundError("cart item not found")
)

// Line is one product reference and quantity in a cart.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ProductReader resolves products when items are added.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// Service keeps one Redis hash per user mapping product id to quantity.
// Every write refreshes the TTL.
type Service struct {
	R        *redis.Client
	Products ProductReader
	TTL      time.Duration
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func key(userID string) string {
	return "cart:" + userID
}

// Items returns the user's cart ordered by product id.
func (s *Service) Items(ctx context.Context, userID string) ([]Line, error) {
	raw, err := s.R.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	lines := make([]Line, 0, len(raw))
	for productID, v := range raw {
		qty, err := strconv.Atoi(v)
		if err != nil || qty <= 0 {
			continue
		}
		lines = append(lines, Line{ProductID: productID, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

// Add increases the quantity of productID by qty.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) ([]Line, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if s.Products != nil {
		if _, err := s.Products.GetProduct(ctx, productID); err != nil {
			return nil, err
		}
	}
	k := key(userID)
	pipe := s.R.TxPipeline()
	pipe.HIncrBy(ctx, k, productID, int64(qty))
	pipe.Expire(ctx, k, s.ttl())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return s.Items(ctx, userID)
}

// Remove drops productID from the cart.
func (s *Service) Remove(ctx context.Context, userID, productID string) ([]Line, error) {
	n, err := s.R.HDel(ctx, key(userID), productID).Result()
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	if n == 0 {
		return nil, ErrItemNotFound
	}
	return s.Items(ctx, userID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.R.Del(ctx, key(userID)).Err()
}
