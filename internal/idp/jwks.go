package idp

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwksRefreshInterval = time.Hour
	jwksFetchTimeout    = 10 * time.Second
)

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSVerifier verifies RS256 tokens against the identity provider's
// published JSON Web Key Set, caching keys and refreshing when an unknown
// key ID appears.
type JWKSVerifier struct {
	issuer   string
	audience string
	jwksURL  string

	httpClient *http.Client

	mu      sync.RWMutex
	cache   map[string]*rsa.PublicKey
	fetched time.Time
}

// NewJWKSVerifier constructs a JWKSVerifier. An empty jwksURL derives the
// OpenID discovery document from the issuer.
func NewJWKSVerifier(issuer, audience, jwksURL string) *JWKSVerifier {
	return &JWKSVerifier{
		issuer:     strings.TrimSpace(issuer),
		audience:   strings.TrimSpace(audience),
		jwksURL:    strings.TrimSpace(jwksURL),
		httpClient: &http.Client{Timeout: jwksFetchTimeout},
		cache:      make(map[string]*rsa.PublicKey),
	}
}

// Verify checks the token signature against the cached key set and validates
// issuer, audience, and expiry.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if errEnsure := v.ensureKeys(ctx); errEnsure != nil {
		return Claims{}, errEnsure
	}

	claims := &idClaims{}
	keyFunc := func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if key, ok := v.keyFor(kid); ok {
			return key, nil
		}
		if errRefresh := v.refresh(ctx); errRefresh != nil {
			return nil, errRefresh
		}
		if key, ok := v.keyFor(kid); ok {
			return key, nil
		}
		return nil, fmt.Errorf("idp: unknown key id %q", kid)
	}

	_, errParse := jwt.ParseWithClaims(token, claims, keyFunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if errParse != nil {
		return Claims{}, fmt.Errorf("idp: verify token: %w", errParse)
	}
	return claims.toClaims()
}

func (v *JWKSVerifier) keyFor(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok := v.cache[kid]
	return key, ok
}

func (v *JWKSVerifier) ensureKeys(ctx context.Context) error {
	v.mu.RLock()
	fresh := time.Since(v.fetched) < jwksRefreshInterval && len(v.cache) > 0
	v.mu.RUnlock()
	if fresh {
		return nil
	}
	return v.refresh(ctx)
}

func (v *JWKSVerifier) refresh(ctx context.Context) error {
	jwksURL := v.jwksURL
	if jwksURL == "" {
		resolved, errDiscover := v.discoverJWKSURL(ctx)
		if errDiscover != nil {
			return errDiscover
		}
		jwksURL = resolved
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if errReq != nil {
		return fmt.Errorf("idp: build jwks request: %w", errReq)
	}
	resp, errDo := v.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("idp: fetch jwks: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("idp: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set jwks
	if errDecode := json.NewDecoder(resp.Body).Decode(&set); errDecode != nil {
		return fmt.Errorf("idp: decode jwks: %w", errDecode)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range set.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pub, errKey := rsaKeyFromJWK(key)
		if errKey != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("idp: jwks contained no usable keys")
	}

	v.mu.Lock()
	v.cache = keys
	v.fetched = time.Now()
	v.mu.Unlock()
	return nil
}

func (v *JWKSVerifier) discoverJWKSURL(ctx context.Context) (string, error) {
	discoveryURL := strings.TrimSuffix(v.issuer, "/") + "/.well-known/openid-configuration"
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if errReq != nil {
		return "", fmt.Errorf("idp: build discovery request: %w", errReq)
	}
	resp, errDo := v.httpClient.Do(req)
	if errDo != nil {
		return "", fmt.Errorf("idp: fetch discovery document: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&doc); errDecode != nil {
		return "", fmt.Errorf("idp: decode discovery document: %w", errDecode)
	}
	if strings.TrimSpace(doc.JWKSURI) == "" {
		return "", errors.New("idp: discovery document missing jwks_uri")
	}
	return doc.JWKSURI, nil
}

func rsaKeyFromJWK(j jwk) (*rsa.PublicKey, error) {
	nBytes, errN := base64.RawURLEncoding.DecodeString(j.N)
	if errN != nil {
		return nil, errN
	}
	eBytes, errE := base64.RawURLEncoding.DecodeString(j.E)
	if errE != nil {
		return nil, errE
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("idp: invalid key exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
