package idp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/motivohq/motivo-server/internal/config"
)

// Claims carries the identity fields extracted from a verified token.
type Claims struct {
	Subject string // Stable identity provider subject ID.
	Email   string // Email claim, lowercased.
	Name    string // Display name claim.
}

// Verifier verifies an identity token and extracts its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// ErrNotConfigured indicates no verification mode is configured.
var ErrNotConfigured = errors.New("idp: no verifier configured (set shared-secret or issuer/audience)")

// idClaims maps the token payload fields used for user resolution.
type idClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (c *idClaims) toClaims() (Claims, error) {
	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		return Claims{}, errors.New("idp: token missing subject claim")
	}
	return Claims{
		Subject: subject,
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Name:    strings.TrimSpace(c.Name),
	}, nil
}

// NewFromConfig builds a verifier from configuration. A shared secret selects
// HS256 verification (development and tests); otherwise issuer and audience
// select RS256 verification against the provider's published key set.
func NewFromConfig(cfg config.IDPConfig) (Verifier, error) {
	if secret := strings.TrimSpace(cfg.SharedSecret); secret != "" {
		return NewStaticVerifier(secret, cfg.Issuer, cfg.Audience), nil
	}
	if strings.TrimSpace(cfg.Issuer) != "" && strings.TrimSpace(cfg.Audience) != "" {
		return NewJWKSVerifier(cfg.Issuer, cfg.Audience, cfg.JWKSURL), nil
	}
	return nil, ErrNotConfigured
}

// StaticVerifier verifies HS256 tokens signed with a shared secret.
type StaticVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewStaticVerifier constructs a StaticVerifier.
func NewStaticVerifier(secret, issuer, audience string) *StaticVerifier {
	return &StaticVerifier{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(issuer),
		audience: strings.TrimSpace(audience),
	}
}

// Verify checks the token signature and registered claims.
func (v *StaticVerifier) Verify(_ context.Context, token string) (Claims, error) {
	claims := &idClaims{}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}
	_, errParse := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, options...)
	if errParse != nil {
		return Claims{}, fmt.Errorf("idp: verify token: %w", errParse)
	}
	return claims.toClaims()
}
