package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/000hen/changelogs.cc/internal/auth"
	"github.com/000hen/changelogs.cc/internal/cache"
	"github.com/000hen/changelogs.cc/internal/logger"
	"github.com/000hen/changelogs.cc/internal/models"
	"github.com/000hen/changelogs.cc/internal/store"
)

// StoreResolver resolves identities against the record store.
//
// Lookup order is fixed: subject, then email, then create. Only a newly
// created user redeems pending invitations.
type StoreResolver struct {
	store store.Store
	cache cache.Client
	now   func() time.Time
}

// NewStoreResolver builds a resolver. c may be nil when nothing caches users.
func NewStoreResolver(s store.Store, c cache.Client) *StoreResolver {
	return &StoreResolver{store: s, cache: c, now: time.Now}
}

func (r *StoreResolver) Resolve(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	if identity == nil || identity.Subject == "" || identity.Email == "" {
		return nil, auth.ErrMalformedIdentity
	}

	user, err := r.lookup(ctx, identity)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, persistence(err)
	}

	user, err = r.create(ctx, identity)
	if errors.Is(err, store.ErrDuplicate) {
		// Another callback for the same person won the insert.
		logger.Warn("account creation raced, re-resolving", map[string]any{
			"subject": identity.Subject,
		})
		user, err = r.lookup(ctx, identity)
	}
	if err != nil {
		return nil, persistence(err)
	}
	return user, nil
}

// lookup runs the subject and email steps. It returns store.ErrNotFound when
// neither matches.
func (r *StoreResolver) lookup(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	user, err := r.store.UserBySubject(ctx, identity.Subject)
	if err == nil {
		user.Email = identity.Email
		applyProfile(user, identity)
		return r.update(ctx, user)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user, err = r.store.UserByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}

	logger.Info("linking new subject to existing account", map[string]any{
		"user_id":     user.ID.String(),
		"old_subject": user.Subject,
		"new_subject": identity.Subject,
	})
	user.Subject = identity.Subject
	applyProfile(user, identity)
	return r.update(ctx, user)
}

func (r *StoreResolver) update(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, cache.Keys.User(user.ID.String())); err != nil {
			logger.Warn("failed to invalidate cached user", map[string]any{
				"user_id": user.ID.String(),
				"error":   err,
			})
		}
	}
	return user, nil
}

// create inserts the user and redeems its pending invitations in one
// transaction.
func (r *StoreResolver) create(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	user := &models.User{
		Subject: identity.Subject,
		Email:   identity.Email,
		Name:    models.StringPtr(identity.Name),
		Picture: models.StringPtr(identity.Picture),
	}

	var converted, expired int
	err := r.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		invitations, err := tx.PendingInvitationsByEmail(ctx, user.Email)
		if err != nil {
			return err
		}

		now := r.now()
		for _, inv := range invitations {
			if inv.Expired(now) {
				expired++
				continue
			}
			err := tx.CreateCollaboration(ctx, &models.Collaboration{
				UserID:    user.ID,
				ProjectID: inv.ProjectID,
				Role:      inv.Role,
			})
			if err != nil {
				return fmt.Errorf("convert invitation %s: %w", inv.ID, err)
			}
			converted++
		}

		if len(invitations) == 0 {
			return nil
		}
		_, err = tx.DeletePendingInvitationsByEmail(ctx, user.Email)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("account created", map[string]any{
		"user_id":               user.ID.String(),
		"invitations_converted": converted,
		"invitations_expired":   expired,
	})

	// Redeemed invitations leave their projects' rosters stale.
	if converted > 0 && r.cache != nil {
		if err := r.cache.DeletePattern(ctx, cache.Keys.AllCollaborators); err != nil {
			logger.Warn("failed to invalidate collaborator rosters", map[string]any{
				"user_id": user.ID.String(),
				"error":   err,
			})
		}
	}
	return user, nil
}

// applyProfile copies optional profile fields. An absent claim keeps the
// stored value.
func applyProfile(user *models.User, identity *auth.Identity) {
	if identity.Name != "" {
		user.Name = models.StringPtr(identity.Name)
	}
	if identity.Picture != "" {
		user.Picture = models.StringPtr(identity.Picture)
	}
}

func persistence(err error) error {
	return fmt.Errorf("%w: %w", auth.ErrPersistence, err)
}

var _ Resolver = (*StoreResolver)(nil)
