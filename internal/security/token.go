package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-minimal-auth/internal/model"
)

const DefaultTokenTTL = time.Hour

// exp has whole-second resolution; a token stays valid through its exp second
// and is rejected once now > exp.
const expiryLeeway = time.Second

// Claims is the fixed claim set carried by a bearer token. Extra holds any
// additional claims; it can never shadow sub, iat or exp.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// TokenIssuer mints and verifies HS256 tokens with a shared secret. It keeps
// no state, so any instance with the same secret can verify any token.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenIssuer)

// WithClock replaces the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTokenIssuer(secret string, ttl time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	issuer := &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}

	return issuer, nil
}

func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs claims with iat set to now and exp to now+ttl. A non-positive
// ttl falls back to the configured default.
func (t *TokenIssuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = t.ttl
	}

	now := t.now().UTC()
	payload := jwt.MapClaims{}
	for key, value := range claims.Extra {
		payload[key] = value
	}
	payload["sub"] = claims.Subject
	payload["iat"] = now.Unix()
	payload["exp"] = now.Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify checks signature, algorithm and expiry (now > exp is expired). Every failure is reported
// as model.ErrInvalidToken regardless of cause.
func (t *TokenIssuer) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(expiryLeeway),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, model.ErrInvalidToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, model.ErrInvalidToken
	}

	subject, err := claimsMap.GetSubject()
	if err != nil || subject == "" {
		return Claims{}, model.ErrInvalidToken
	}

	claims := Claims{Subject: subject}
	if exp, err := claimsMap.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time.UTC()
	}
	if iat, err := claimsMap.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time.UTC()
	}

	for key, value := range claimsMap {
		switch key {
		case "sub", "iat", "exp":
			continue
		}
		if claims.Extra == nil {
			claims.Extra = map[string]any{}
		}
		claims.Extra[key] = value
	}

	return claims, nil
}
