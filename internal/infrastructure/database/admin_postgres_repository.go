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

const adminColumns = `id, username, password_hash, totp_secret_enc, totp_pending_secret_enc,
	totp_enabled, failed_login_attempts, last_failed_at, created_at, updated_at`

type pgxAdminRepository struct {
	db *pgxpool.Pool
}

// NewPgxAdminRepository creates the postgres-backed credential store.
func NewPgxAdminRepository(db *pgxpool.Pool) repository.AdminRepository {
	return &pgxAdminRepository{db: db}
}

func (r *pgxAdminRepository) scanAdmin(row pgx.Row) (*models.Admin, error) {
	admin := &models.Admin{}
	err := row.Scan(
		&admin.ID, &admin.Username, &admin.PasswordHash,
		&admin.TOTPSecretEnc, &admin.TOTPPendingSecretEnc, &admin.TOTPEnabled,
		&admin.FailedLoginAttempts, &admin.LastFailedAt,
		&admin.CreatedAt, &admin.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to scan admin: %w", err)
	}
	return admin, nil
}

func (r *pgxAdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE username = $1`
	return r.scanAdmin(r.db.QueryRow(ctx, query, username))
}

func (r *pgxAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return r.scanAdmin(r.db.QueryRow(ctx, query, id))
}

func (r *pgxAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	query := `
		INSERT INTO admins (id, username, password_hash, totp_enabled, failed_login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		admin.ID, admin.Username, admin.PasswordHash, admin.TOTPEnabled,
		admin.FailedLoginAttempts, admin.CreatedAt, admin.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

// IncrementFailedAttempts is a single atomic statement; concurrent attempts
// serialize on the row and none of the increments is lost.
func (r *pgxAdminRepository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE admins
		SET failed_login_attempts = failed_login_attempts + 1,
		    last_failed_at = $2,
		    updated_at = $2
		WHERE id = $1
		RETURNING failed_login_attempts`
	var count int
	if err := r.db.QueryRow(ctx, query, id, time.Now().UTC()).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrAdminNotFound
		}
		return 0, fmt.Errorf("failed to increment failed attempts: %w", err)
	}
	return count, nil
}

func (r *pgxAdminRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE admins
		SET failed_login_attempts = 0, last_failed_at = NULL, updated_at = $2
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAdminNotFound
	}
	return nil
}

func (r *pgxAdminRepository) SetPendingTOTPSecret(ctx context.Context, id uuid.UUID, secretEnc string) error {
	query := `
		UPDATE admins
		SET totp_pending_secret_enc = $2, updated_at = $3
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, secretEnc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set pending totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAdminNotFound
	}
	return nil
}

// PromotePendingTOTPSecret commits the enrollment exactly once: the WHERE
// guard keeps a concurrent confirm from promoting twice.
func (r *pgxAdminRepository) PromotePendingTOTPSecret(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE admins
		SET totp_secret_enc = totp_pending_secret_enc,
		    totp_pending_secret_enc = NULL,
		    totp_enabled = TRUE,
		    updated_at = $2
		WHERE id = $1 AND totp_enabled = FALSE AND totp_pending_secret_enc IS NOT NULL`
	tag, err := r.db.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to promote pending totp secret: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxAdminRepository) ClearTOTP(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE admins
		SET totp_secret_enc = NULL, totp_pending_secret_enc = NULL,
		    totp_enabled = FALSE, updated_at = $2
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clear totp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAdminNotFound
	}
	return nil
}

var _ repository.AdminRepository = (*pgxAdminRepository)(nil)
