// Package accounts implements the user-account domain: registration, login,
// sessions, password reset and the admin operations.
package accounts

import "time"

// Role enumerates the account roles.
type Role string

const (
	RoleMember Role = "Member"
	RoleAdmin  Role = "Admin"
)

// User represents a stored user account. The password hash never leaves the
// service layer; responses carry PublicUser instead.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Profile      string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the serializable projection of a User without credentials.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullname"`
	Profile   string    `json:"profile,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public strips credentials from the record.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Profile:   u.Profile,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PublicUsers maps a slice of records to their public projection.
func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
