package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager signs and validates HS256 JWTs for a single purpose.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	audience string
	now      func() time.Time
}

// NewTokenManager builds a new manager. Tokens carry audience so that a
// token minted for one purpose never validates for another.
func NewTokenManager(secret string, ttl time.Duration, audience string) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, audience: audience, now: time.Now}
}

// TTL returns the lifetime applied to new tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// registered fills the standard claims for a token issued now.
func (tm *TokenManager) registered(subject, id string) (jwt.RegisteredClaims, time.Time) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	return jwt.RegisteredClaims{
		ID:        id,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{tm.audience},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
	}, expiresAt
}

func (tm *TokenManager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// parse validates signature, expiry and audience and decodes into claims.
func (tm *TokenManager) parse(tokenStr string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(tm.audience),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token claims")
	}
	return nil
}
