package auth

import (
	"github.com/deskline/helpdesk/internal/domain"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

// SessionVerifier validates session tokens.
type SessionVerifier interface {
	VerifySessionToken(token string) (*SessionClaims, error)
}

// Guard resolves actors and makes role and ownership decisions. It performs
// no I/O beyond signature checks.
type Guard struct {
	sessions SessionVerifier
}

// NewGuard constructs a guard on top of a session verifier.
func NewGuard(sessions SessionVerifier) *Guard {
	return &Guard{sessions: sessions}
}

// ResolveActor turns a bearer token into the acting identity.
func (g *Guard) ResolveActor(token string) (domain.Actor, error) {
	if token == "" {
		return domain.Actor{}, apperrors.NewUnauthorized(ErrInvalidToken.Error())
	}
	claims, err := g.sessions.VerifySessionToken(token)
	if err != nil {
		return domain.Actor{}, apperrors.NewUnauthorized(ErrInvalidToken.Error())
	}
	return domain.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

// RequireAuthenticated rejects a zero actor.
func (g *Guard) RequireAuthenticated(actor domain.Actor) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// RequireAdmin allows ADMIN actors only.
func (g *Guard) RequireAdmin(actor domain.Actor) error {
	if err := g.RequireAuthenticated(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// RequireOwnerOrAdmin allows the resource owner or any ADMIN.
func (g *Guard) RequireOwnerOrAdmin(actor domain.Actor, ownerID string) error {
	if err := g.RequireAuthenticated(actor); err != nil {
		return err
	}
	if actor.IsAdmin() || (ownerID != "" && actor.ID == ownerID) {
		return nil
	}
	return apperrors.NewForbidden("access denied")
}
