// Package cache is a thin key/value cache in front of read-mostly records.
// Misses and backend failures are indistinguishable to callers that use
// GetJSON: both fall through to the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMiss = errors.New("cache: miss")

type Client interface {
	// Get returns ErrMiss when key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl. A ttl <= 0 means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob pattern such as "project:acme:*".
	DeletePattern(ctx context.Context, pattern string) error
}

// Keys builds the cache keys shared by writers and readers. Everything derived
// from one project lives under "project:<slug>:" so ProjectScope clears it.
var Keys = struct {
	User                 func(id string) string
	Project              func(slug string) string
	ProjectCollaborators func(slug string) string
	ProjectScope         func(slug string) string
	AllCollaborators     string
}{
	User:                 func(id string) string { return "user:" + id },
	Project:              func(slug string) string { return "project:" + slug },
	ProjectCollaborators: func(slug string) string { return "project:" + slug + ":collaborators" },
	ProjectScope:         func(slug string) string { return "project:" + slug + ":*" },
	AllCollaborators:     "project:*:collaborators",
}

// persistent reports whether ttl asks for an entry without expiry. Every
// backend treats ttl <= 0 this way.
func persistent(ttl time.Duration) bool {
	return ttl <= 0
}

// GetJSON decodes the cached value at key into dst. It reports false on a
// miss, a backend error or an undecodable value.
func GetJSON(ctx context.Context, c Client, key string, dst any) bool {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func SetJSON(ctx context.Context, c Client, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
