// Package project owns projects and the collaborator invitations that the
// account resolver redeems on first sign-in.
package project

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/cache"
	"github.com/000hen/changelogs.cc/internal/logger"
	"github.com/000hen/changelogs.cc/internal/models"
	"github.com/000hen/changelogs.cc/internal/store"
)

// InvitationTTL is how long a pending invitation can be redeemed.
const InvitationTTL = 30 * 24 * time.Hour

var slugPattern = regexp.MustCompile(`^[a-z0-9-]{3,50}$`)

type CreateInput struct {
	Name        string
	Slug        string
	Description string
}

// InviteResult holds exactly one of Collaboration (the invitee already has an
// account) or Invitation (they do not).
type InviteResult struct {
	Collaboration *models.Collaboration     `json:"collaboration,omitempty"`
	Invitation    *models.PendingInvitation `json:"invitation,omitempty"`
}

// Membership is a project the user collaborates on, with their role.
type Membership struct {
	Project models.Project `json:"project"`
	Role    models.Role    `json:"role"`
}

// Collaborator is one roster entry: the collaboration plus the user's
// public profile.
type Collaborator struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"userId"`
	Email     string      `json:"email"`
	Name      *string     `json:"name,omitempty"`
	Picture   *string     `json:"picture,omitempty"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Roster struct {
	Collaborators []Collaborator             `json:"collaborators"`
	Invitations   []models.PendingInvitation `json:"invitations"`
}

type Dashboard struct {
	Owned         []models.Project `json:"owned"`
	Collaborating []Membership     `json:"collaborating"`
}

type Service struct {
	store store.Store
	cache cache.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewService(s store.Store, c cache.Client, ttl time.Duration) *Service {
	return &Service{store: s, cache: c, ttl: ttl, now: time.Now}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 2 {
		return nil, ErrInvalidName
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	p := &models.Project{
		Slug:        slug,
		Name:        name,
		Description: models.StringPtr(strings.TrimSpace(in.Description)),
		OwnerID:     ownerID,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create project: %w", err)
	}

	logger.Info("project created", map[string]any{
		"project_id": p.ID.String(),
		"slug":       p.Slug,
		"owner_id":   ownerID.String(),
	})
	return p, nil
}

// AccessOwner is the role reported to a project's owner.
const AccessOwner = "OWNER"

// Access is a project together with the caller's role on it.
type Access struct {
	Project models.Project `json:"project"`
	Role    string         `json:"role"`
}

// Get returns the project for its owner or a collaborator and ErrForbidden for
// anyone else. The project record is read through the cache. Membership is
// always checked against the store.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, slug string) (*Access, error) {
	p, err := s.cachedProject(ctx, slug)
	if err != nil {
		return nil, err
	}

	if p.OwnerID == actorID {
		return &Access{Project: *p, Role: AccessOwner}, nil
	}

	c, err := s.store.Collaboration(ctx, actorID, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &Access{Project: *p, Role: string(c.Role)}, nil
}

func (s *Service) cachedProject(ctx context.Context, slug string) (*models.Project, error) {
	key := cache.Keys.Project(slug)

	var cached models.Project
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	p, err := s.store.ProjectBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", slug, err)
	}

	if err := cache.SetJSON(ctx, s.cache, key, p, s.ttl); err != nil {
		logger.Warn("failed to cache project", map[string]any{"slug": slug, "error": err})
	}
	return p, nil
}

// ownedProject loads slug from the store and requires actorID to own it. A
// missing project is reported as ErrForbidden too.
func (s *Service) ownedProject(ctx context.Context, actorID uuid.UUID, slug string) (*models.Project, error) {
	p, err := s.store.ProjectBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", slug, err)
	}
	if p.OwnerID != actorID {
		return nil, ErrForbidden
	}
	return p, nil
}

// invalidate drops everything cached under the project's scope.
func (s *Service) invalidate(ctx context.Context, slug string) {
	if err := s.cache.DeletePattern(ctx, cache.Keys.ProjectScope(slug)); err != nil {
		logger.Warn("failed to invalidate project cache", map[string]any{
			"slug":  slug,
			"error": err,
		})
	}
}

// Invite adds email to the project. Existing accounts become collaborators
// immediately; unknown emails get a pending invitation.
func (s *Service) Invite(ctx context.Context, actorID uuid.UUID, slug, email string, role models.Role) (*InviteResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	p, err := s.ownedProject(ctx, actorID, slug)
	if err != nil {
		return nil, err
	}

	actor, err := s.store.UserByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if strings.EqualFold(actor.Email, email) {
		return nil, ErrSelfInvite
	}

	var res *InviteResult
	invitee, err := s.store.UserByEmail(ctx, email)
	switch {
	case err == nil:
		res, err = s.addCollaborator(ctx, p, invitee, role)
	case errors.Is(err, store.ErrNotFound):
		res, err = s.addInvitation(ctx, p, email, role)
	default:
		return nil, fmt.Errorf("look up invitee: %w", err)
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, p.Slug)
	return res, nil
}

func (s *Service) addCollaborator(ctx context.Context, p *models.Project, invitee *models.User, role models.Role) (*InviteResult, error) {
	c := &models.Collaboration{UserID: invitee.ID, ProjectID: p.ID, Role: role}
	if err := s.store.CreateCollaboration(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyCollaborator
		}
		return nil, fmt.Errorf("create collaboration: %w", err)
	}

	logger.Info("collaborator added", map[string]any{
		"project_id": p.ID.String(),
		"user_id":    invitee.ID.String(),
		"role":       string(role),
	})
	return &InviteResult{Collaboration: c}, nil
}

func (s *Service) addInvitation(ctx context.Context, p *models.Project, email string, role models.Role) (*InviteResult, error) {
	inv := &models.PendingInvitation{
		Email:     email,
		ProjectID: p.ID,
		Role:      role,
		ExpiresAt: s.now().Add(InvitationTTL),
	}
	if err := s.store.CreatePendingInvitation(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyInvited
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	logger.Info("invitation created", map[string]any{
		"project_id": p.ID.String(),
		"role":       string(role),
		"expires_at": inv.ExpiresAt,
	})
	return &InviteResult{Invitation: inv}, nil
}

// Collaborators lists a project's collaborators and pending invitations for
// its owner. The roster is cached under the project's scope.
func (s *Service) Collaborators(ctx context.Context, actorID uuid.UUID, slug string) (*Roster, error) {
	p, err := s.ownedProject(ctx, actorID, slug)
	if err != nil {
		return nil, err
	}

	key := cache.Keys.ProjectCollaborators(p.Slug)

	var cached Roster
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	collabs, err := s.store.CollaborationsByProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}

	roster := &Roster{
		Collaborators: make([]Collaborator, 0, len(collabs)),
		Invitations:   []models.PendingInvitation{},
	}
	for _, c := range collabs {
		u, err := s.store.UserByID(ctx, c.UserID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load collaborator %s: %w", c.UserID, err)
		}
		roster.Collaborators = append(roster.Collaborators, Collaborator{
			ID:        c.ID,
			UserID:    u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Picture:   u.Picture,
			Role:      c.Role,
			CreatedAt: c.CreatedAt,
		})
	}

	invs, err := s.store.PendingInvitationsByProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	if invs != nil {
		roster.Invitations = invs
	}

	if err := cache.SetJSON(ctx, s.cache, key, roster, s.ttl); err != nil {
		logger.Warn("failed to cache collaborators", map[string]any{"slug": p.Slug, "error": err})
	}
	return roster, nil
}

func (s *Service) UpdateRole(ctx context.Context, actorID uuid.UUID, slug string, collaborationID uuid.UUID, role models.Role) (*models.Collaboration, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	p, err := s.ownedProject(ctx, actorID, slug)
	if err != nil {
		return nil, err
	}

	c, err := s.store.UpdateCollaborationRole(ctx, collaborationID, p.ID, role)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCollaboratorMissing
	}
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.invalidate(ctx, p.Slug)
	logger.Info("collaborator role updated", map[string]any{
		"project_id": p.ID.String(),
		"user_id":    c.UserID.String(),
		"role":       string(role),
	})
	return c, nil
}

func (s *Service) RemoveCollaborator(ctx context.Context, actorID uuid.UUID, slug string, collaborationID uuid.UUID) error {
	p, err := s.ownedProject(ctx, actorID, slug)
	if err != nil {
		return err
	}

	err = s.store.DeleteCollaboration(ctx, collaborationID, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCollaboratorMissing
	}
	if err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}

	s.invalidate(ctx, p.Slug)
	logger.Info("collaborator removed", map[string]any{
		"project_id":       p.ID.String(),
		"collaboration_id": collaborationID.String(),
	})
	return nil
}

// CancelInvitation withdraws a pending invitation before it is redeemed.
func (s *Service) CancelInvitation(ctx context.Context, actorID uuid.UUID, slug string, invitationID uuid.UUID) error {
	p, err := s.ownedProject(ctx, actorID, slug)
	if err != nil {
		return err
	}

	err = s.store.DeletePendingInvitation(ctx, invitationID, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvitationMissing
	}
	if err != nil {
		return fmt.Errorf("cancel invitation: %w", err)
	}

	s.invalidate(ctx, p.Slug)
	logger.Info("invitation cancelled", map[string]any{
		"project_id":    p.ID.String(),
		"invitation_id": invitationID.String(),
	})
	return nil
}

func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	owned, err := s.store.ProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned projects: %w", err)
	}

	collabs, err := s.store.CollaborationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list collaborations: %w", err)
	}

	d := &Dashboard{
		Owned:         owned,
		Collaborating: make([]Membership, 0, len(collabs)),
	}
	if d.Owned == nil {
		d.Owned = []models.Project{}
	}
	for _, c := range collabs {
		p, err := s.store.ProjectByID(ctx, c.ProjectID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load project %s: %w", c.ProjectID, err)
		}
		d.Collaborating = append(d.Collaborating, Membership{Project: *p, Role: c.Role})
	}
	return d, nil
}
