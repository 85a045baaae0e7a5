package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/models"
)

const invitationColumns = `id, email, project_id, role, expires_at, created_at`

func scanInvitation(row interface{ Scan(...any) error }) (*models.PendingInvitation, error) {
	var inv models.PendingInvitation
	if err := row.Scan(&inv.ID, &inv.Email, &inv.ProjectID, &inv.Role, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

func (s *Store) PendingInvitationsByEmail(ctx context.Context, email string) ([]models.PendingInvitation, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+invitationColumns+`
		FROM pending_invitations
		WHERE LOWER(email) = LOWER($1)
		ORDER BY created_at
	`, email)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.PendingInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) PendingInvitationsByProject(ctx context.Context, projectID uuid.UUID) ([]models.PendingInvitation, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+invitationColumns+`
		FROM pending_invitations
		WHERE project_id = $1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.PendingInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) PendingInvitation(ctx context.Context, email string, projectID uuid.UUID) (*models.PendingInvitation, error) {
	return scanInvitation(s.q.QueryRowContext(ctx, `
		SELECT `+invitationColumns+`
		FROM pending_invitations
		WHERE LOWER(email) = LOWER($1)
		  AND project_id = $2
	`, email, projectID))
}

func (s *Store) CreatePendingInvitation(ctx context.Context, inv *models.PendingInvitation) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO pending_invitations (email, project_id, role, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		inv.Email,
		inv.ProjectID,
		inv.Role,
		inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)

	return mapErr(err)
}

func (s *Store) DeletePendingInvitationsByEmail(ctx context.Context, email string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM pending_invitations
		WHERE LOWER(email) = LOWER($1)
	`, email)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (s *Store) DeletePendingInvitation(ctx context.Context, id, projectID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM pending_invitations
		WHERE id = $1
		  AND project_id = $2
	`, id, projectID)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}
