package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/models"
)

const userColumns = `id, sub, email, name, picture, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u       models.User
		name    sql.NullString
		picture sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Subject, &u.Email, &name, &picture, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	if name.Valid {
		u.Name = &name.String
	}
	if picture.Valid {
		u.Picture = &picture.String
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (s *Store) UserBySubject(ctx context.Context, subject string) (*models.User, error) {
	return scanUser(s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE sub = $1
	`, subject))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email))
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO users (sub, email, name, picture)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`,
		u.Subject,
		u.Email,
		u.Name,
		u.Picture,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	return mapErr(err)
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	err := s.q.QueryRowContext(ctx, `
		UPDATE users
		SET sub = $2, email = $3, name = $4, picture = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		u.ID,
		u.Subject,
		u.Email,
		u.Name,
		u.Picture,
	).Scan(&u.UpdatedAt)

	return mapErr(err)
}
