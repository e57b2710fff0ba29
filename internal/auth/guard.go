package auth

import (
	"context"

	"github.com/iliyamo/learntrack/internal/repository"
)

// ErrForbidden is shared with the repository layer so that both the
// pre-check and a conditional write report ownership failures the same way.
var ErrForbidden = repository.ErrForbidden

// Authorize permits the action iff p owns the resource.  There is no role
// override.
func Authorize(p *Principal, ownerID string) error {
	if p == nil || p.ID == "" || p.ID != ownerID {
		return ErrForbidden
	}
	return nil
}

// OwnerLookup resolves the owner of a resource by id.  Implementations
// return repository.ErrNotFound for a missing resource.
type OwnerLookup interface {
	GetOwner(ctx context.Context, id string) (string, error)
}

// CheckOwnership confirms that the resource exists before deciding on
// ownership, so a missing resource is never reported as forbidden.
func CheckOwnership(ctx context.Context, lookup OwnerLookup, p *Principal, id string) error {
	owner, err := lookup.GetOwner(ctx, id)
	if err != nil {
		return err
	}
	return Authorize(p, owner)
}
