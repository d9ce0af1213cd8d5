package dto

import (
	"time"

	"github.com/deskline/helpdesk/internal/domain"
)

// SignupRequest payload for new accounts. profilePicture is accepted as an
// alias of profilePictureUrl.
type SignupRequest struct {
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	Password          string      `json:"password"`
	Role              domain.Role `json:"role"`
	ProfilePictureURL string      `json:"profilePictureUrl"`
	ProfilePicture    string      `json:"profilePicture"`
}

// Picture returns whichever picture field was sent.
func (r SignupRequest) Picture() string {
	if r.ProfilePictureURL != "" {
		return r.ProfilePictureURL
	}
	return r.ProfilePicture
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// EditProfileRequest lists the only fields profile edit reads. Anything else
// in the body is ignored.
type EditProfileRequest struct {
	Name              *string `json:"name"`
	Phone             *string `json:"phone"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

// Patch converts the request to a domain patch.
func (r EditProfileRequest) Patch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Name:              r.Name,
		Phone:             r.Phone,
		ProfilePictureURL: r.ProfilePictureURL,
	}
}

// ForgotPasswordRequest payload.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest payload.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// MessageResponse acknowledges an operation with no other body.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse is the public view of an account. It has no password field.
type UserResponse struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	Role              domain.Role `json:"role"`
	Active            bool        `json:"active"`
	IsDeleted         bool        `json:"isDeleted"`
	ProfilePictureURL string      `json:"profilePictureUrl"`
	Tickets           []string    `json:"tickets"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	tickets := u.TicketIDs
	if tickets == nil {
		tickets = []string{}
	}
	return UserResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Phone:             u.Phone,
		Role:              u.Role,
		Active:            u.Active,
		IsDeleted:         u.IsDeleted,
		ProfilePictureURL: u.ProfilePictureURL,
		Tickets:           tickets,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
