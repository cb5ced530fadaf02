package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is a back-office credential record. TOTP secrets are stored
// encrypted; the pending secret holds an enrollment that has been generated
// but not yet confirmed. A pending secret never gates login.
type Admin struct {
	ID                   uuid.UUID
	Username             string
	PasswordHash         string
	TOTPSecretEnc        *string
	TOTPPendingSecretEnc *string
	TOTPEnabled          bool
	FailedLoginAttempts  int
	LastFailedAt         *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PublicAdmin is the shape exposed over the API. No hashes, no secrets.
type PublicAdmin struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	TOTPEnabled bool      `json:"totp_enabled"`
}

func (a *Admin) Public() PublicAdmin {
	return PublicAdmin{ID: a.ID, Username: a.Username, TOTPEnabled: a.TOTPEnabled}
}
