package domain

import "time"

// Identity is a registered user as stored by the user directory.
type Identity struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullname,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	GoogleID     string    `json:"-"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created"`
	UpdatedAt    time.Time `json:"updated"`
}

// SignedIn reports whether the identity currently holds a refresh token.
func (i *Identity) SignedIn() bool {
	return i.RefreshToken != ""
}

// Public returns a copy without credentials, safe to cache or serialise.
func (i *Identity) Public() *Identity {
	p := *i
	p.PasswordHash = ""
	p.RefreshToken = ""
	return &p
}
