package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/app"
	"github.com/noah-isme/toko-kredit/internal/auth"
	"github.com/noah-isme/toko-kredit/internal/catalog"
	"github.com/noah-isme/toko-kredit/internal/config"
	"github.com/noah-isme/toko-kredit/internal/obs"
)

type seedUser struct {
	First, Last, Email, Phone string
}

type seedProduct struct {
	Name     string
	Category string
	Price    string
	Stock    int
}

var users = []seedUser{
	{"Budi", "Santoso", "budi@example.com", "+6281200000001"},
	{"Siti", "Aminah", "siti@example.com", "+6281200000002"},
	{"Andi", "Pratama", "andi@example.com", "+6281200000003"},
	{"Dewi", "Lestari", "dewi@example.com", "+6281200000004"},
}

var products = []seedProduct{
	{"MacBook Pro 14 M3", "ELECTRONICS", "25000000", 50},
	{"Samsung Galaxy S24 Ultra", "ELECTRONICS", "19000000", 80},
	{"Sony WH-1000XM5", "ELECTRONICS", "5000000", 150},
	{"Nike Air Force 1", "CLOTHING", "1500000", 200},
	{"IKEA Landskrona Sofa", "FURNITURE", "8000000", 10},
	{"LEGO Millennium Falcon", "TOYS", "13000000", 25},
	{"Laskar Pelangi", "BOOKS", "95000", 300},
	{"Kopi Gayo 1kg", "FOOD", "180000", 120},
}

func main() {
	withTokens := flag.Bool("tokens", true, "print a development access token per seeded user")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of printed tokens")
	flag.Parse()

	logger := obs.NewLogger("toko-kredit-seeder", "console", "info")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := app.OpenPostgres(ctx, cfg.DatabaseURL, "toko-kredit-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	ids := seedUsers(ctx, pool, logger)
	seedCatalog(ctx, pool, logger)

	if !*withTokens {
		return
	}
	tokens, err := auth.NewTokenVerifier(auth.TokenConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: *tokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise tokens")
	}
	for email, id := range ids {
		token, _, err := tokens.Sign(id)
		if err != nil {
			logger.Error().Err(err).Str("email", email).Msg("sign token")
			continue
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", email, id, token)
	}
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) map[string]string {
	ids := make(map[string]string, len(users))
	for _, u := range users {
		var id string
		err := pool.QueryRow(ctx, `INSERT INTO users (id, first_name, last_name, email, phone)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE SET first_name = EXCLUDED.first_name
RETURNING id::text`, uuid.New(), u.First, u.Last, u.Email, u.Phone).Scan(&id)
		if err != nil {
			logger.Error().Err(err).Str("email", u.Email).Msg("seed user")
			continue
		}
		ids[u.Email] = id
	}
	logger.Info().Int("users", len(ids)).Msg("users seeded")
	return ids
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) {
	svc := catalog.NewService(catalog.ServiceConfig{Store: catalog.NewPGStore(pool), Logger: logger})
	created := 0
	for _, p := range products {
		price := decimal.RequireFromString(p.Price)
		if _, err := svc.CreateProduct(ctx, catalog.CreateInput{
			Name:     p.Name,
			Category: p.Category,
			Price:    &price,
			Stock:    p.Stock,
		}); err != nil {
			logger.Error().Err(err).Str("product", p.Name).Msg("seed product")
			continue
		}
		created++
	}
	logger.Info().Int("products", created).Msg("catalog seeded")
}
