package user

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-kredit/internal/common"
)

// ErrNotFound indicates the user does not exist or is disabled.
var ErrNotFound = common.NotFoundError("user not found")

// Profile holds the fields copied into a purchase at checkout.
type Profile struct {
	ID         string
	FirstName  string
	SecondName string
	LastName   string
	FamilyName string
	Email      string
	Phone      string
}

// FullName joins the name parts that are present and capitalises each word.
func (p Profile) FullName() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{p.FirstName, p.SecondName, p.LastName, p.FamilyName} {
		for _, word := range strings.Fields(part) {
			parts = append(parts, capitalize(word))
		}
	}
	return strings.Join(parts, " ")
}

func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service looks customers up in Postgres.
type Service struct {
	db queryRower
}

// NewService constructs a Service.
func NewService(db queryRower) *Service {
	return &Service{db: db}
}

// GetUser returns the profile of an active user.
func (s *Service) GetUser(ctx context.Context, id string) (Profile, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Profile{}, ErrNotFound
	}
	var (
		pid                         pgtype.UUID
		first, email                string
		second, last, family, phone pgtype.Text
	)
	err = s.db.QueryRow(ctx, `SELECT id, first_name, second_name, last_name, family_name, email, phone
FROM users WHERE id = $1 AND active`, uid).Scan(&pid, &first, &second, &last, &family, &email, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:         uuidString(pid),
		FirstName:  first,
		SecondName: textToString(second),
		LastName:   textToString(last),
		FamilyName: textToString(family),
		Email:      email,
		Phone:      textToString(phone),
	}, nil
}

func toUUID(value string) (pgtype.UUID, error) {
	var id pgtype.UUID
	if err := id.Scan(value); err != nil {
		return pgtype.UUID{}, err
	}
	return id, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u, err := uuid.FromBytes(id.Bytes[:])
	if err != nil {
		return ""
	}
	return u.String()
}

func textToString(value pgtype.Text) string {
	if !value.Valid {
		return ""
	}
	return value.String
}
