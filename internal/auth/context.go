package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/learntrack/internal/identity"
	"github.com/iliyamo/learntrack/internal/repository"
)

var (
	ErrMissingToken          = errors.New("missing authorization token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrProviderUnavailable   = errors.New("authentication check failed")
)

// Request is the authenticated context of one HTTP request.  Store is
// bound to Principal.ID and is the only data handle handlers use for
// writes.
type Request struct {
	Principal *Principal
	Token     string
	Store     *repository.Scoped
}

// Builder verifies tokens and assembles a Request.
type Builder struct {
	provider identity.Provider
	repos    *repository.Repos
}

func NewBuilder(provider identity.Provider, repos *repository.Repos) *Builder {
	return &Builder{provider: provider, repos: repos}
}

// Build verifies token with the identity provider.  present is the second
// result of Resolve: an absent carrier is ErrMissingToken, an empty or
// rejected token is ErrInvalidOrExpiredToken and any other provider
// failure is ErrProviderUnavailable.
func (b *Builder) Build(ctx context.Context, token string, present bool) (*Request, error) {
	if !present {
		return nil, ErrMissingToken
	}
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	u, err := b.provider.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if u == nil || u.ID == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	p := PrincipalFromUser(u)
	return &Request{Principal: p, Token: token, Store: b.repos.As(p.ID)}, nil
}
