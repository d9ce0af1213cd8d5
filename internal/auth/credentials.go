package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/domain"
)

const (
	sessionAudience = "session"
	resetAudience   = "password-reset"
)

// ErrInvalidToken is the only error token verification ever returns, so
// callers cannot tell a forged token from an expired one.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID string      `json:"id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password-reset token. RegisteredClaims.ID
// holds a random nonce used to enforce single use.
type ResetClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// CredentialStore hashes passwords and issues the two token classes.
type CredentialStore struct {
	session    *TokenManager
	reset      *TokenManager
	bcryptCost int
}

// NewCredentialStore builds the store from auth configuration.
func NewCredentialStore(cfg config.AuthConfig) *CredentialStore {
	cost := cfg.BcryptCost
	if cost <= 0 {
		cost = 10
	}
	return &CredentialStore{
		session:    NewTokenManager(cfg.SessionSecret, cfg.SessionTTL, sessionAudience),
		reset:      NewTokenManager(cfg.ResetSecret, cfg.ResetTTL, resetAudience),
		bcryptCost: cost,
	}
}

// WithClock overrides the time source for both token classes.
func (s *CredentialStore) WithClock(now func() time.Time) *CredentialStore {
	s.session.now = now
	s.reset.now = now
	return s
}

// HashPassword returns a bcrypt hash of plain.
func (s *CredentialStore) HashPassword(plain string) (string, error) {
	return HashPassword(plain, s.bcryptCost)
}

// VerifyPassword reports whether plain matches hash.
func (s *CredentialStore) VerifyPassword(plain, hash string) bool {
	return ComparePassword(hash, plain) == nil
}

// IssueSessionToken signs {id, role} with the session secret.
func (s *CredentialStore) IssueSessionToken(userID string, role domain.Role) (string, time.Time, error) {
	registered, expiresAt := s.session.registered(userID, "")
	token, err := s.session.sign(&SessionClaims{UserID: userID, Role: role, RegisteredClaims: registered})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// VerifySessionToken checks signature and expiry of a session token.
func (s *CredentialStore) VerifySessionToken(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.session.parse(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueResetToken signs {id} with the reset secret.
func (s *CredentialStore) IssueResetToken(userID string) (string, time.Time, error) {
	registered, expiresAt := s.reset.registered(userID, uuid.NewString())
	token, err := s.reset.sign(&ResetClaims{UserID: userID, RegisteredClaims: registered})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// VerifyResetToken checks signature and expiry of a reset token.
func (s *CredentialStore) VerifyResetToken(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := s.reset.parse(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ResetTTL returns the lifetime of reset tokens.
func (s *CredentialStore) ResetTTL() time.Duration {
	return s.reset.TTL()
}
