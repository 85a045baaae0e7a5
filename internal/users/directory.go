// Package users serves the signed-in user's own record.
package users

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/cache"
	"github.com/000hen/changelogs.cc/internal/logger"
	"github.com/000hen/changelogs.cc/internal/models"
	"github.com/000hen/changelogs.cc/internal/store"
)

// Directory is a read-through cache over store.UserStore.
type Directory struct {
	users store.UserStore
	cache cache.Client
	ttl   time.Duration
}

func NewDirectory(users store.UserStore, c cache.Client, ttl time.Duration) *Directory {
	return &Directory{users: users, cache: c, ttl: ttl}
}

// Get returns store.ErrNotFound for unknown or malformed ids.
//
// The user is served from the cache when possible, and the cached form omits
// Subject. Callers that need the identity provider subject must read the
// store directly.
func (d *Directory) Get(ctx context.Context, id string) (*models.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, store.ErrNotFound
	}

	key := cache.Keys.User(uid.String())

	var cached models.User
	if cache.GetJSON(ctx, d.cache, key, &cached) {
		return &cached, nil
	}

	user, err := d.users.UserByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, d.cache, key, user, d.ttl); err != nil {
		logger.Warn("failed to cache user", map[string]any{
			"user_id": id,
			"error":   err,
		})
	}
	return user, nil
}
