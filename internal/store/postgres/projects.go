package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/models"
)

const projectColumns = `id, slug, name, description, owner_id, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	var (
		p    models.Project
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &desc, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO projects (slug, name, description, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`,
		p.Slug,
		p.Name,
		p.Description,
		p.OwnerID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	return mapErr(err)
}

func (s *Store) ProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return scanProject(s.q.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1
	`, id))
}

func (s *Store) ProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return scanProject(s.q.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE slug = $1
	`, slug))
}

func (s *Store) ProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, mapErr(rows.Err())
}
