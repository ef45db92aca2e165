package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the account kind. It is fixed at registration.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleNPO       Role = "npo"
	RoleAdmin     Role = "admin"
)

// ParseRole normalises raw and rejects unknown roles.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleInitiator, RoleNPO, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Organization string    `json:"organization,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public strips contact details that only the owner and admins may see.
func (u User) Public() User {
	u.Email = ""
	u.Phone = ""
	u.Address = ""
	return u
}

// Registration is the input of self sign-up.
type Registration struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
}

// ProfileUpdate carries optional profile fields; nil leaves a field untouched.
// Identity fields (email, role) are not editable.
type ProfileUpdate struct {
	Name         *string `json:"name,omitempty"`
	Organization *string `json:"organization,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	Bio          *string `json:"bio,omitempty"`
	Avatar       *string `json:"avatar,omitempty"`
}

func (p ProfileUpdate) apply(u *User) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		u.Name = name
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&u.Organization, p.Organization)
	set(&u.Phone, p.Phone)
	set(&u.Address, p.Address)
	set(&u.Bio, p.Bio)
	set(&u.Avatar, p.Avatar)
	return nil
}
