package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/events"
	"github.com/deskline/helpdesk/internal/mail"
	"github.com/deskline/helpdesk/internal/repository"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

// AccountService coordinates signup, login, profile and password reset flows.
type AccountService struct {
	users            repository.UserRepository
	resets           repository.ResetTokenLedger
	creds            *auth.CredentialStore
	mailer           mail.Sender
	dispatcher       events.Dispatcher
	logger           *zap.Logger
	clientURL        string
	sendTimeout      time.Duration
	allowAdminSignup bool
}

// AccountDependencies encapsulates collaborators for the account service.
// ResetLedger may be nil, in which case reset tokens are reusable until
// they expire.
type AccountDependencies struct {
	UserRepo    repository.UserRepository
	ResetLedger repository.ResetTokenLedger
	Credentials *auth.CredentialStore
	Mailer      mail.Sender
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ledger := deps.ResetLedger
	if !cfg.Auth.ResetSingleUse {
		ledger = nil
	}
	return &AccountService{
		users:            deps.UserRepo,
		resets:           ledger,
		creds:            deps.Credentials,
		mailer:           deps.Mailer,
		dispatcher:       deps.Dispatcher,
		logger:           logger,
		clientURL:        strings.TrimRight(cfg.App.ClientURL, "/"),
		sendTimeout:      cfg.Mail.SendTimeout,
		allowAdminSignup: cfg.Auth.AllowAdminSignup,
	}
}

// SignupInput is the registration payload.
type SignupInput struct {
	Name              string
	Email             string
	Phone             string
	Password          string
	Role              domain.Role
	ProfilePictureURL string
}

// Signup registers an account and returns it with a fresh session token.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.ProfilePictureURL = strings.TrimSpace(in.ProfilePictureURL)
	if in.Role == "" {
		in.Role = domain.RoleUser
	}

	fields := fieldErrors{}
	checkName(fields, in.Name)
	checkEmail(fields, in.Email)
	if in.Phone == "" {
		fields.add("phone", "required")
	}
	if in.Password == "" {
		fields.add("password", "required")
	}
	if !in.Role.Valid() {
		fields.add("role", "must be USER or ADMIN")
	}
	if err := fields.err("invalid signup payload"); err != nil {
		return nil, "", err
	}
	if in.Role == domain.RoleAdmin && !s.allowAdminSignup {
		return nil, "", apperrors.NewForbidden("admin accounts cannot be self-registered")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", emailTaken()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperrors.NewInternalError(err)
	}

	if err := auth.ValidatePasswordPolicy(in.Password); err != nil {
		return nil, "", err
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	picture := in.ProfilePictureURL
	if picture == "" {
		picture = domain.DefaultProfilePictureURL
	}
	user := &domain.User{
		Name:              in.Name,
		Email:             in.Email,
		Phone:             in.Phone,
		PasswordHash:      hash,
		Role:              in.Role,
		Active:            true,
		ProfilePictureURL: picture,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, "", emailTaken()
		}
		return nil, "", apperrors.NewInternalError(err)
	}

	token, _, err := s.creds.IssueSessionToken(user.ID, user.Role)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, token, nil
}

// Login authenticates by email and password. Unknown emails, wrong passwords
// and deactivated accounts all produce the same error.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	invalid := apperrors.NewUnauthorized("invalid email or password")
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", invalid
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", invalid
	}
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	if !s.creds.VerifyPassword(password, user.PasswordHash) || !user.Active {
		return nil, "", invalid
	}

	token, _, err := s.creds.IssueSessionToken(user.ID, user.Role)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	return user, token, nil
}

// Profile returns the actor's own account.
func (s *AccountService) Profile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// EditProfile applies the allow-listed patch to the actor's account.
func (s *AccountService) EditProfile(ctx context.Context, actor domain.Actor, patch domain.ProfilePatch) (*domain.User, error) {
	fields := fieldErrors{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		checkName(fields, name)
		patch.Name = &name
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if phone == "" {
			fields.add("phone", "must not be empty")
		}
		patch.Phone = &phone
	}
	if patch.ProfilePictureURL != nil {
		url := strings.TrimSpace(*patch.ProfilePictureURL)
		if url == "" {
			url = domain.DefaultProfilePictureURL
		}
		patch.ProfilePictureURL = &url
	}
	if err := fields.err("invalid profile patch"); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, actor.ID, patch)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// Delete deactivates the actor's account. The row, and its email, are kept.
func (s *AccountService) Delete(ctx context.Context, actor domain.Actor) error {
	if err := s.users.Deactivate(ctx, actor.ID); err != nil {
		return userLookupError(err)
	}
	s.logger.Info("user deactivated", zap.String("user_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:  events.EventUserDeactivated,
		Actor: events.ActorOf(actor),
	})
	return nil
}

// ForgotPassword issues a reset token for the account and mails the link.
// A send failure is reported, but the token already issued stays valid.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return userLookupError(err)
	}

	token, _, err := s.creds.IssueResetToken(user.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	link := s.clientURL + "/reset-password/" + token

	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}
	if err := s.mailer.SendResetLink(sendCtx, user.Email, link); err != nil {
		s.logger.Error("reset email not sent", zap.String("user_id", user.ID), zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ResetPassword sets a new password for the account named by a reset token.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password is required", map[string]any{"newPassword": "required"})
	}
	invalid := apperrors.NewUnauthorized(auth.ErrInvalidToken.Error())

	claims, err := s.creds.VerifyResetToken(token)
	if err != nil {
		return invalid
	}
	if s.resets != nil {
		if claims.ID == "" || claims.ExpiresAt == nil {
			return invalid
		}
		fresh, err := s.resets.Consume(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time)
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if !fresh {
			return invalid
		}
	}

	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return apperrors.NewInternalError(err)
	}
	hash, err := s.creds.HashPassword(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, claims.UserID, hash); err != nil {
		return userLookupError(err)
	}
	s.logger.Info("password reset", zap.String("user_id", claims.UserID))
	return nil
}

func emailTaken() error {
	return apperrors.NewConflict("email already in use", map[string]any{"email": "taken"})
}

func userLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", nil)
	}
	return apperrors.NewInternalError(err)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
