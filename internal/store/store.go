// Package store defines the persistent-record store used by the account
// resolver and the project service. Implementations live in the postgres and
// memory subpackages.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/models"
)

var (
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint
	// (user subject/email, project slug, invitation email+project,
	// collaboration user+project).
	ErrDuplicate = errors.New("store: duplicate record")
)

type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserBySubject(ctx context.Context, subject string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser assigns ID and timestamps on u.
	CreateUser(ctx context.Context, u *models.User) error
	// UpdateUser persists Subject, Email, Name and Picture and bumps UpdatedAt.
	UpdateUser(ctx context.Context, u *models.User) error
}

type InvitationStore interface {
	PendingInvitationsByEmail(ctx context.Context, email string) ([]models.PendingInvitation, error)
	PendingInvitation(ctx context.Context, email string, projectID uuid.UUID) (*models.PendingInvitation, error)
	CreatePendingInvitation(ctx context.Context, inv *models.PendingInvitation) error
	// DeletePendingInvitationsByEmail removes every invitation for email and
	// returns how many were deleted.
	DeletePendingInvitationsByEmail(ctx context.Context, email string) (int64, error)
	PendingInvitationsByProject(ctx context.Context, projectID uuid.UUID) ([]models.PendingInvitation, error)
	// DeletePendingInvitation removes one invitation of projectID. ErrNotFound
	// when id does not belong to that project.
	DeletePendingInvitation(ctx context.Context, id, projectID uuid.UUID) error
}

type CollaborationStore interface {
	CreateCollaboration(ctx context.Context, c *models.Collaboration) error
	Collaboration(ctx context.Context, userID, projectID uuid.UUID) (*models.Collaboration, error)
	CollaborationsByUser(ctx context.Context, userID uuid.UUID) ([]models.Collaboration, error)
	CollaborationsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Collaboration, error)
	// UpdateCollaborationRole and DeleteCollaboration are scoped to projectID
	// and return ErrNotFound for an id of another project.
	UpdateCollaborationRole(ctx context.Context, id, projectID uuid.UUID, role models.Role) (*models.Collaboration, error)
	DeleteCollaboration(ctx context.Context, id, projectID uuid.UUID) error
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	ProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ProjectBySlug(ctx context.Context, slug string) (*models.Project, error)
	ProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error)
}

// Store is the full record store. WithTx runs fn against a store bound to a
// single transaction; fn's error rolls everything back.
type Store interface {
	UserStore
	InvitationStore
	CollaborationStore
	ProjectStore

	WithTx(ctx context.Context, fn func(tx Store) error) error
}
