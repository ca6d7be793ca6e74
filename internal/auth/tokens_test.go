package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func TestParseAccessTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	tokens := newTestTokens(t, now)

	signed, exp, err := tokens.Sign("user-42")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Minute), exp)

	sub, err := tokens.ParseAccessToken(signed)
	require.NoError(t, err)
	require.Equal(t, "user-42", sub)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	signed, _, err := newTestTokens(t, now).Sign("user-42")
	require.NoError(t, err)

	_, err = newTestTokens(t, now.Add(2*time.Minute)).ParseAccessToken(signed)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsForeignIssuer(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	other, err := NewTokenVerifier(TokenConfig{Secret: "test-secret", Issuer: "elsewhere", Audience: "toko-kredit", Now: func() time.Time { return now }})
	require.NoError(t, err)
	signed, _, err := other.Sign("user-42")
	require.NoError(t, err)

	_, err = newTestTokens(t, now).ParseAccessToken(signed)
	require.Error(t, err)
}

func TestParseAccessTokenRequiresSubject(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	tok, err := jwt.NewBuilder().
		Issuer("toko").
		Audience([]string{"toko-kredit"}).
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	require.NoError(t, err)

	_, err = newTestTokens(t, now).ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	tok, err := jwt.NewBuilder().Subject("user-42").Expiration(now.Add(time.Minute)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("test-secret")))
	require.NoError(t, err)

	_, err = newTestTokens(t, now).ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier(TokenConfig{})
	require.Error(t, err)
}
