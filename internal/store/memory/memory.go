// Package memory is an in-process store.Store used for local development
// without DATABASE_URL and by tests. It enforces the same uniqueness rules as
// the postgres schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/models"
	"github.com/000hen/changelogs.cc/internal/store"
)

type data struct {
	users          map[uuid.UUID]models.User
	projects       map[uuid.UUID]models.Project
	collaborations map[uuid.UUID]models.Collaboration
	invitations    map[uuid.UUID]models.PendingInvitation
}

func newData() *data {
	return &data{
		users:          make(map[uuid.UUID]models.User),
		projects:       make(map[uuid.UUID]models.Project),
		collaborations: make(map[uuid.UUID]models.Collaboration),
		invitations:    make(map[uuid.UUID]models.PendingInvitation),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.collaborations {
		c.collaborations[k] = v
	}
	for k, v := range d.invitations {
		c.invitations[k] = v
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	d   *data
	now func() time.Time

	// FailOn, when set, is consulted before every write; a non-nil return is
	// returned from the write unchanged. Tests use it to inject failures.
	FailOn func(op string) error
}

func New() *Store {
	return &Store{d: newData(), now: time.Now}
}

// WithTx runs fn against a copy of the data and swaps it in only when fn
// succeeds. Writers are serialized for the duration of fn.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{d: s.d.clone(), now: s.now, FailOn: s.FailOn}
	if err := fn(tx); err != nil {
		return err
	}
	s.d = tx.d
	return nil
}

func (s *Store) fail(op string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn(op)
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserBySubject(_ context.Context, subject string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.d.users {
		if u.Subject == subject {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.d.users {
		if sameEmail(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) userConflicts(u *models.User) bool {
	for id, other := range s.d.users {
		if id == u.ID {
			continue
		}
		if other.Subject == u.Subject || sameEmail(other.Email, u.Email) {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	if err := s.fail("CreateUser"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u.ID = uuid.New()
	if s.userConflicts(u) {
		return store.ErrDuplicate
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.d.users[u.ID] = *u
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	if err := s.fail("UpdateUser"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.d.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.userConflicts(u) {
		return store.ErrDuplicate
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now()
	s.d.users[u.ID] = *u
	return nil
}

func (s *Store) PendingInvitationsByEmail(_ context.Context, email string) ([]models.PendingInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PendingInvitation
	for _, inv := range s.d.invitations {
		if sameEmail(inv.Email, email) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) PendingInvitation(_ context.Context, email string, projectID uuid.UUID) (*models.PendingInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.d.invitations {
		if sameEmail(inv.Email, email) && inv.ProjectID == projectID {
			return &inv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreatePendingInvitation(_ context.Context, inv *models.PendingInvitation) error {
	if err := s.fail("CreatePendingInvitation"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.d.invitations {
		if sameEmail(other.Email, inv.Email) && other.ProjectID == inv.ProjectID {
			return store.ErrDuplicate
		}
	}
	inv.ID = uuid.New()
	inv.CreatedAt = s.now()
	s.d.invitations[inv.ID] = *inv
	return nil
}

func (s *Store) DeletePendingInvitationsByEmail(_ context.Context, email string) (int64, error) {
	if err := s.fail("DeletePendingInvitationsByEmail"); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, inv := range s.d.invitations {
		if sameEmail(inv.Email, email) {
			delete(s.d.invitations, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) PendingInvitationsByProject(_ context.Context, projectID uuid.UUID) ([]models.PendingInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PendingInvitation
	for _, inv := range s.d.invitations {
		if inv.ProjectID == projectID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeletePendingInvitation(_ context.Context, id, projectID uuid.UUID) error {
	if err := s.fail("DeletePendingInvitation"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.d.invitations[id]
	if !ok || inv.ProjectID != projectID {
		return store.ErrNotFound
	}
	delete(s.d.invitations, id)
	return nil
}

func (s *Store) CreateCollaboration(_ context.Context, c *models.Collaboration) error {
	if err := s.fail("CreateCollaboration"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.d.collaborations {
		if other.UserID == c.UserID && other.ProjectID == c.ProjectID {
			return store.ErrDuplicate
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = s.now()
	s.d.collaborations[c.ID] = *c
	return nil
}

func (s *Store) Collaboration(_ context.Context, userID, projectID uuid.UUID) (*models.Collaboration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.d.collaborations {
		if c.UserID == userID && c.ProjectID == projectID {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CollaborationsByUser(_ context.Context, userID uuid.UUID) ([]models.Collaboration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Collaboration
	for _, c := range s.d.collaborations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CollaborationsByProject(_ context.Context, projectID uuid.UUID) ([]models.Collaboration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Collaboration
	for _, c := range s.d.collaborations {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateCollaborationRole(_ context.Context, id, projectID uuid.UUID, role models.Role) (*models.Collaboration, error) {
	if err := s.fail("UpdateCollaborationRole"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.d.collaborations[id]
	if !ok || c.ProjectID != projectID {
		return nil, store.ErrNotFound
	}
	c.Role = role
	s.d.collaborations[id] = c
	return &c, nil
}

func (s *Store) DeleteCollaboration(_ context.Context, id, projectID uuid.UUID) error {
	if err := s.fail("DeleteCollaboration"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.d.collaborations[id]
	if !ok || c.ProjectID != projectID {
		return store.ErrNotFound
	}
	delete(s.d.collaborations, id)
	return nil
}

func (s *Store) CreateProject(_ context.Context, p *models.Project) error {
	if err := s.fail("CreateProject"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.d.projects {
		if other.Slug == p.Slug {
			return store.ErrDuplicate
		}
	}
	p.ID = uuid.New()
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.d.projects[p.ID] = *p
	return nil
}

func (s *Store) ProjectByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.d.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ProjectBySlug(_ context.Context, slug string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.d.projects {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ProjectsByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Project
	for _, p := range s.d.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

var _ store.Store = (*Store)(nil)
