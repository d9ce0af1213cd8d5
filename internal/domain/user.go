package domain

import "time"

// DefaultProfilePictureURL is assigned when signup omits a picture.
const DefaultProfilePictureURL = "https://cdn.wallpapersafari.com/92/63/wUq2AY.jpg"

// User is the shared account model for end-users and administrators.
type User struct {
	ID                string
	Name              string
	Email             string
	Phone             string
	PasswordHash      string
	Role              Role
	Active            bool
	IsDeleted         bool
	ProfilePictureURL string
	TicketIDs         []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProfilePatch lists the only fields a caller may change through profile edit.
// Nil pointers leave the stored value untouched.
type ProfilePatch struct {
	Name              *string
	Phone             *string
	ProfilePictureURL *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.ProfilePictureURL == nil
}

// Apply copies the patched fields onto u.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.ProfilePictureURL != nil {
		u.ProfilePictureURL = *p.ProfilePictureURL
	}
}
