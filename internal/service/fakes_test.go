package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/Modoufinance/healthyimc-sub001/internal/domain/errors"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
)

// memAdminRepo is an in-memory AdminRepository for tests that need real
// state transitions rather than scripted expectations.
type memAdminRepo struct {
	mu     sync.Mutex
	admins map[uuid.UUID]*models.Admin
}

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{admins: make(map[uuid.UUID]*models.Admin)}
}

func (r *memAdminRepo) put(admin *models.Admin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[admin.ID] = admin
}

func (r *memAdminRepo) get(id uuid.UUID) *models.Admin {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admins[id]
}

func (r *memAdminRepo) FindByUsername(_ context.Context, username string) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, admin := range r.admins {
		if admin.Username == username {
			copied := *admin
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrAdminNotFound
}

func (r *memAdminRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return nil, domainErrors.ErrAdminNotFound
	}
	copied := *admin
	return &copied, nil
}

func (r *memAdminRepo) Create(_ context.Context, admin *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[admin.ID] = admin
	return nil
}

func (r *memAdminRepo) IncrementFailedAttempts(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return 0, domainErrors.ErrAdminNotFound
	}
	admin.FailedLoginAttempts++
	now := time.Now().UTC()
	admin.LastFailedAt = &now
	return admin.FailedLoginAttempts, nil
}

func (r *memAdminRepo) ResetFailedAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return domainErrors.ErrAdminNotFound
	}
	admin.FailedLoginAttempts = 0
	admin.LastFailedAt = nil
	return nil
}

func (r *memAdminRepo) SetPendingTOTPSecret(_ context.Context, id uuid.UUID, secretEnc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return domainErrors.ErrAdminNotFound
	}
	admin.TOTPPendingSecretEnc = &secretEnc
	return nil
}

func (r *memAdminRepo) PromotePendingTOTPSecret(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return false, domainErrors.ErrAdminNotFound
	}
	if admin.TOTPEnabled || admin.TOTPPendingSecretEnc == nil {
		return false, nil
	}
	admin.TOTPSecretEnc = admin.TOTPPendingSecretEnc
	admin.TOTPPendingSecretEnc = nil
	admin.TOTPEnabled = true
	return true, nil
}

func (r *memAdminRepo) ClearTOTP(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return domainErrors.ErrAdminNotFound
	}
	admin.TOTPEnabled = false
	admin.TOTPSecretEnc = nil
	admin.TOTPPendingSecretEnc = nil
	return nil
}

// stallingAdminRepo blocks lookups until the caller's context expires,
// standing in for a hung credential store.
type stallingAdminRepo struct {
	*memAdminRepo
}

func (r *stallingAdminRepo) FindByID(ctx context.Context, _ uuid.UUID) (*models.Admin, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// memSessionRepo is an in-memory SessionRepository keyed by token hash.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*models.Session)}
}

func (r *memSessionRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *memSessionRepo) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.TokenHash] = &copied
	return nil
}

func (r *memSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *memSessionRepo) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[tokenHash]; !ok {
		return domainErrors.ErrSessionNotFound
	}
	delete(r.sessions, tokenHash)
	return nil
}

func (r *memSessionRepo) DeleteByAdminID(_ context.Context, adminID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, session := range r.sessions {
		if session.AdminID == adminID {
			delete(r.sessions, hash)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, hash)
			n++
		}
	}
	return n, nil
}

// stallingSessionRepo blocks lookups until the caller's context expires.
type stallingSessionRepo struct {
	*memSessionRepo
}

func (r *stallingSessionRepo) FindByTokenHash(ctx context.Context, _ string) (*models.Session, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
