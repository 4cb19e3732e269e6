package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type preferenceRow struct {
	UserID    uuid.UUID `db:"user_id"`
	Email     bool      `db:"email"`
	Push      bool      `db:"push"`
	Digest    string    `db:"digest"`
	UpdatedAt time.Time `db:"updated_at"`
}

type PgPreferenceRepository struct {
	db *sqlx.DB
}

func NewPgPreferenceRepository(db *sqlx.DB) *PgPreferenceRepository {
	return &PgPreferenceRepository{db: db}
}

func (r *PgPreferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	var row preferenceRow
	query := `SELECT user_id, email, push, digest, updated_at FROM notification_preferences WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPreferencesNotFound
		}
		return nil, err
	}
	return &domain.Preferences{
		UserID:    row.UserID,
		Email:     row.Email,
		Push:      row.Push,
		Digest:    domain.Digest(row.Digest),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *PgPreferenceRepository) Upsert(ctx context.Context, p *domain.Preferences) error {
	query := `
		INSERT INTO notification_preferences (user_id, email, push, digest, updated_at)
		VALUES (:user_id, :email, :push, :digest, :updated_at)
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email, push = EXCLUDED.push, digest = EXCLUDED.digest, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, preferenceRow{
		UserID:    p.UserID,
		Email:     p.Email,
		Push:      p.Push,
		Digest:    string(p.Digest),
		UpdatedAt: p.UpdatedAt,
	})
	return err
}
