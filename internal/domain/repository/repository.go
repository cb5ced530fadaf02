package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
)

// AdminRepository is the credential store. Counter mutations are atomic
// single-statement updates so concurrent attempts cannot lose increments.
type AdminRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error

	// IncrementFailedAttempts bumps the counter and stamps last_failed_at,
	// returning the post-increment value.
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error

	// SetPendingTOTPSecret stores a fresh (encrypted) enrollment secret
	// without touching the enabled flag.
	SetPendingTOTPSecret(ctx context.Context, id uuid.UUID, secretEnc string) error
	// PromotePendingTOTPSecret atomically moves the pending secret to the
	// active slot and flips totp_enabled, only when not already enabled.
	// Returns false when nothing was promoted.
	PromotePendingTOTPSecret(ctx context.Context, id uuid.UUID) (bool, error)
	// ClearTOTP removes the active secret and disables the second factor.
	ClearTOTP(ctx context.Context, id uuid.UUID) error
}

// SessionRepository is the session store, source of truth for issued tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteByAdminID(ctx context.Context, adminID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
