// Package models holds the persistent records shared by the store, the
// account resolver and the project service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level a collaborator holds on a project.
type Role string

const (
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleEditor || r == RoleViewer
}

// User is the local account bound to an identity provider subject.
// Subject and Email are each unique.
type User struct {
	ID        uuid.UUID `json:"id"`
	Subject   string    `json:"-"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	Picture   *string   `json:"picture,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Project struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     uuid.UUID `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Collaboration grants a non-owner user a role on a project.
type Collaboration struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ProjectID uuid.UUID `json:"projectId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// PendingInvitation is an invitation addressed to an email that has no
// account yet. It is converted into a Collaboration on first sign-in.
type PendingInvitation struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	ProjectID uuid.UUID `json:"projectId"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the invitation can no longer be redeemed at now.
func (p PendingInvitation) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// StringPtr returns nil for an empty string so optional profile fields stay
// NULL instead of "".
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
