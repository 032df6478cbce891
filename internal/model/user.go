package model

import "time"

// UserType tells which profile a user owns.
type UserType string

const (
	UserBusiness UserType = "business"
	UserCustomer UserType = "customer"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool { return t == UserBusiness || t == UserCustomer }

// User represents an application user record as stored in the `users`
// table. Handlers define their own response types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name, spaces replaced by underscores.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Type         – business or customer.
//	IsActive     – false until the account is activated (when required).
//	IsAdmin      – staff account allowed to override ownership checks.
type User struct {
	ID           uint64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Type         UserType
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BusinessProfile is the seller side of a user. Offers hang off it.
type BusinessProfile struct {
	ID           uint64
	UserID       uint64
	Location     string
	Tel          string
	Description  string
	WorkingHours string
	CreatedAt    time.Time
}

// CustomerProfile is the buyer side of a user.
type CustomerProfile struct {
	ID        uint64
	UserID    uint64
	CreatedAt time.Time
}

// Identity is the authenticated caller as carried by the access token.
type Identity struct {
	UserID uint64
	Type   UserType
	Admin  bool
}

// IsBusiness reports whether the caller owns a business profile.
func (i *Identity) IsBusiness() bool { return i != nil && i.Type == UserBusiness }

// IsCustomer reports whether the caller owns a customer profile.
func (i *Identity) IsCustomer() bool { return i != nil && i.Type == UserCustomer }

// IsAdmin reports whether the caller is staff.
func (i *Identity) IsAdmin() bool { return i != nil && i.Admin }

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// AccountActivation is a pending activation link for an inactive user.
type AccountActivation struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
