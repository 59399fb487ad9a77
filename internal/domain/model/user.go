package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a dashboard account; platform handles hang off it as PlatformProfiles.
type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	Role           string     `json:"role"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Account is a user together with every linked platform handle.
type Account struct {
	*User
	Profiles []PlatformProfile `json:"profiles"`
}
