package resolver

import (
	"context"

	"github.com/000hen/changelogs.cc/internal/auth"
	"github.com/000hen/changelogs.cc/internal/models"
)

// Resolver determines which local user an external identity belongs to.
// It is the ONLY place where identity-to-user mapping logic lives.
type Resolver interface {
	Resolve(ctx context.Context, identity *auth.Identity) (*models.User, error)
}
