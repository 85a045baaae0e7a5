package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/models"
)

const collaborationColumns = `id, user_id, project_id, role, created_at`

func scanCollaboration(row interface{ Scan(...any) error }) (*models.Collaboration, error) {
	var c models.Collaboration
	if err := row.Scan(&c.ID, &c.UserID, &c.ProjectID, &c.Role, &c.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) CreateCollaboration(ctx context.Context, c *models.Collaboration) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO collaborators (user_id, project_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`,
		c.UserID,
		c.ProjectID,
		c.Role,
	).Scan(&c.ID, &c.CreatedAt)

	return mapErr(err)
}

func (s *Store) Collaboration(ctx context.Context, userID, projectID uuid.UUID) (*models.Collaboration, error) {
	return scanCollaboration(s.q.QueryRowContext(ctx, `
		SELECT `+collaborationColumns+`
		FROM collaborators
		WHERE user_id = $1
		  AND project_id = $2
	`, userID, projectID))
}

func (s *Store) CollaborationsByUser(ctx context.Context, userID uuid.UUID) ([]models.Collaboration, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+collaborationColumns+`
		FROM collaborators
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Collaboration
	for rows.Next() {
		c, err := scanCollaboration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) CollaborationsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Collaboration, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+collaborationColumns+`
		FROM collaborators
		WHERE project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Collaboration
	for rows.Next() {
		c, err := scanCollaboration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateCollaborationRole(ctx context.Context, id, projectID uuid.UUID, role models.Role) (*models.Collaboration, error) {
	return scanCollaboration(s.q.QueryRowContext(ctx, `
		UPDATE collaborators
		SET role = $3
		WHERE id = $1
		  AND project_id = $2
		RETURNING `+collaborationColumns, id, projectID, role))
}

func (s *Store) DeleteCollaboration(ctx context.Context, id, projectID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM collaborators
		WHERE id = $1
		  AND project_id = $2
	`, id, projectID)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}
