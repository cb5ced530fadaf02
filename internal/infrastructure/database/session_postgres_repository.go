package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/Modoufinance/healthyimc-sub001/internal/domain/errors"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/repository"
)

type pgxSessionRepository struct {
	db *pgxpool.Pool
}

// NewPgxSessionRepository creates the postgres-backed session store.
func NewPgxSessionRepository(db *pgxpool.Pool) repository.SessionRepository {
	return &pgxSessionRepository{db: db}
}

func (r *pgxSessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token_hash, admin_id, ip_address, user_agent, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query,
		session.TokenHash, session.AdminID, session.IPAddress, session.UserAgent,
		session.IssuedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *pgxSessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT token_hash, admin_id, ip_address, user_agent, issued_at, expires_at
		FROM sessions
		WHERE token_hash = $1`
	session := &models.Session{}
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&session.TokenHash, &session.AdminID, &session.IPAddress, &session.UserAgent,
		&session.IssuedAt, &session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

func (r *pgxSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

func (r *pgxSessionRepository) DeleteByAdminID(ctx context.Context, adminID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE admin_id = $1`, adminID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions by admin: %w", err)
	}
	return nil
}

func (r *pgxSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.SessionRepository = (*pgxSessionRepository)(nil)
