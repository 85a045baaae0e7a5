package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/000hen/changelogs.cc/internal/models"
	"github.com/000hen/changelogs.cc/internal/store"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

var userCols = []string{"id", "sub", "email", "name", "picture", "created_at", "updated_at"}

func TestUserBySubject(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM users WHERE sub = \\$1").
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(id.String(), "sub-1", "a@x.com", "Ada", nil, now, now))

	u, err := s.UserBySubject(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Ada", *u.Name)
	assert.Nil(t, u.Picture)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByEmailNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery("SELECT .* FROM users WHERE LOWER\\(email\\) = LOWER\\(\\$1\\)").
		WithArgs("missing@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.UserByEmail(context.Background(), "missing@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserMapsUniqueViolation(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("sub-1", "a@x.com", nil, nil).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_sub_key"})

	err := s.CreateUser(context.Background(), &models.User{Subject: "sub-1", Email: "a@x.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "users_sub_key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserAssignsGeneratedFields(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("sub-1", "a@x.com", "Ada", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id.String(), now, now))

	u := &models.User{Subject: "sub-1", Email: "a@x.com", Name: models.StringPtr("Ada")}
	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.Equal(t, id, u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM pending_invitations").
		WithArgs("a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	var deleted int64
	err := s.WithTx(context.Background(), func(tx store.Store) error {
		n, err := tx.DeletePendingInvitationsByEmail(context.Background(), "a@x.com")
		deleted = n
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO collaborators").
		WillReturnError(boom)
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx store.Store) error {
		return tx.CreateCollaboration(context.Background(), &models.Collaboration{
			UserID:    uuid.New(),
			ProjectID: uuid.New(),
			Role:      models.RoleEditor,
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingInvitationsByEmail(t *testing.T) {
	s, mock := newMock(t)
	projectID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM pending_invitations").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "project_id", "role", "expires_at", "created_at"}).
			AddRow(uuid.NewString(), "a@x.com", projectID.String(), "EDITOR", now.Add(time.Hour), now).
			AddRow(uuid.NewString(), "a@x.com", uuid.NewString(), "VIEWER", now.Add(time.Hour), now))

	invs, err := s.PendingInvitationsByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, projectID, invs[0].ProjectID)
	assert.Equal(t, models.RoleEditor, invs[0].Role)
	assert.Equal(t, models.RoleViewer, invs[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePendingInvitationScopedToProject(t *testing.T) {
	s, mock := newMock(t)
	id, projectID := uuid.New(), uuid.New()

	mock.ExpectExec("DELETE FROM pending_invitations WHERE id = \\$1 AND project_id = \\$2").
		WithArgs(id, projectID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM pending_invitations WHERE id = \\$1 AND project_id = \\$2").
		WithArgs(id, projectID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.DeletePendingInvitation(context.Background(), id, projectID))
	assert.ErrorIs(t, s.DeletePendingInvitation(context.Background(), id, projectID), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCollaborationRole(t *testing.T) {
	s, mock := newMock(t)
	id, userID, projectID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery("UPDATE collaborators SET role = \\$3 WHERE id = \\$1 AND project_id = \\$2 RETURNING").
		WithArgs(id, projectID, models.RoleViewer).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "project_id", "role", "created_at"}).
			AddRow(id.String(), userID.String(), projectID.String(), "VIEWER", now))

	c, err := s.UpdateCollaborationRole(context.Background(), id, projectID, models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, userID, c.UserID)
	assert.Equal(t, models.RoleViewer, c.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCollaborationRoleNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery("UPDATE collaborators").
		WillReturnError(sql.ErrNoRows)

	_, err := s.UpdateCollaborationRole(context.Background(), uuid.New(), uuid.New(), models.RoleEditor)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCollaborationNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec("DELETE FROM collaborators").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteCollaboration(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
