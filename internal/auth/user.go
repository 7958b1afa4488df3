package auth

import (
	"time"

	"github.com/mediahub/mediahub/internal/email"
	"github.com/mediahub/mediahub/internal/krypto"
)

// User contains the data for a user, the principal that logs in.
type User struct {
	ID           int
	Username     Username
	Email        email.Address
	PasswordHash krypto.ScryptHash
	FirstName    *string
	LastName     *string
	IsAdmin      bool
	CreatedAt    time.Time
}

// PublicUser is the view of a User that may leave the server.
// It has no field for the password hash.
type PublicUser struct {
	ID        int           `json:"id"`
	Username  Username      `json:"username"`
	Email     email.Address `json:"email"`
	FirstName *string       `json:"firstName"`
	LastName  *string       `json:"lastName"`
	IsAdmin   bool          `json:"isAdmin"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Public projects u onto its public view.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

// Credentials are provided by a user to log in.
type Credentials struct {
	Username Username
	Password Password
}

// Registration contains the data for a new user account.
type Registration struct {
	Username  Username
	Email     email.Address
	Password  Password
	FirstName *string
	LastName  *string
}

// UserUpdate is a partial update of a user performed by an admin.
// Nil fields are left unchanged, the username can't be changed.
type UserUpdate struct {
	Email     *email.Address
	Password  *Password
	FirstName *string
	LastName  *string
	IsAdmin   *bool
}

func (u UserUpdate) apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.FirstName != nil {
		user.FirstName = u.FirstName
	}
	if u.LastName != nil {
		user.LastName = u.LastName
	}
	if u.IsAdmin != nil {
		user.IsAdmin = *u.IsAdmin
	}
}

// AdminSeed describes the admin account that is created on startup
// when no user with the same username exists.
type AdminSeed struct {
	Username Username
	Email    email.Address
	Password Password
}
