// Package identity talks to the hosted identity provider.  Users,
// passwords and access tokens live there; this package only forwards
// calls and maps the provider's answers onto a small set of errors.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidToken means the provider rejected the access token.
	ErrInvalidToken = errors.New("identity: invalid or expired token")
	// ErrInvalidCredentials means a password sign-in was refused.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrUserNotFound is returned by admin lookups.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrUnavailable covers transport failures and unexpected statuses.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// User is the provider's view of an account.  Metadata is the free-form
// user_metadata document; role and payment state live there.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"user_metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is what a successful sign-in returns.
type Session struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// SignUpError carries the provider's message for a refused sign-up so the
// handler can echo it back.
type SignUpError struct {
	Message string
}

func (e *SignUpError) Error() string { return e.Message }

// Provider is the subset of the identity provider the application uses.
// Admin methods use the service credential.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	VerifyToken(ctx context.Context, token string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUserMetadata(ctx context.Context, id string, metadata map[string]any) (*User, error)
	ListUsers(ctx context.Context, page, perPage int) ([]*User, error)
}

// FindUserByEmail pages through ListUsers until it finds email.  This is
// linear in the number of accounts; callers should prefer GetUserByID.
func FindUserByEmail(ctx context.Context, p Provider, email string, perPage int) (*User, error) {
	if perPage <= 0 {
		perPage = 200
	}
	for page := 1; ; page++ {
		users, err := p.ListUsers(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if u.Email == email {
				return u, nil
			}
		}
		if len(users) < perPage {
			return nil, ErrUserNotFound
		}
	}
}
