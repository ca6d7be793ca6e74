package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/toko-kredit/internal/common"
)

// TokenConfig configures access token verification.
type TokenConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	AccessTTL time.Duration
	Now       func() time.Time
}

// TokenVerifier verifies HS256 access tokens issued by the identity service. It can
// also mint tokens for local tooling and tests.
type TokenVerifier struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenVerifier constructs a TokenVerifier.
func NewTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenVerifier{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		clockSkew: cfg.ClockSkew,
		accessTTL: ttl,
		now:       now,
	}, nil
}

func unauthorized(msg string, cause error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", msg, http.StatusUnauthorized, cause)
}

// ParseAccessToken returns the subject of a valid access token.
func (t *TokenVerifier) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", unauthorized("missing token", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", unauthorized("invalid token", err)
	}
	if algorithm != jwa.HS256 {
		return "", unauthorized("invalid token", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, t.secret), jwt.WithValidate(false))
	if err != nil {
		return "", unauthorized("invalid token", err)
	}
	if err := t.validateClaims(parsed); err != nil {
		return "", unauthorized("invalid token", err)
	}
	return parsed.Subject(), nil
}

// Sign issues an access token for userID.
func (t *TokenVerifier) Sign(userID string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.accessTTL)
	builder := jwt.NewBuilder().
		Subject(userID).
		IssuedAt(now).
		NotBefore(now.Add(-t.clockSkew)).
		Expiration(expiresAt)
	if t.issuer != "" {
		builder = builder.Issuer(t.issuer)
	}
	if t.audience != "" {
		builder = builder.Audience([]string{t.audience})
	}
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// validateClaims checks expiry and not-before against the verifier clock, plus
// issuer and audience when configured. A token must name its subject.
func (t *TokenVerifier) validateClaims(tok jwt.Token) error {
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(t.now)),
	}
	if t.clockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(t.clockSkew))
	}
	if t.issuer != "" {
		options = append(options, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		options = append(options, jwt.WithAudience(t.audience))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return err
	}
	if strings.TrimSpace(tok.Subject()) == "" {
		return errors.New("auth: token has no subject")
	}
	return nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
