package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	domainErrors "github.com/Modoufinance/healthyimc-sub001/internal/domain/errors"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/repository"
	"github.com/Modoufinance/healthyimc-sub001/internal/events"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/security"
	"github.com/Modoufinance/healthyimc-sub001/internal/utils/metrics"
)

// SessionService issues, verifies and revokes opaque bearer sessions.
// The store holds only token digests; expiry is fixed at issuance.
type SessionService struct {
	logger      *zap.Logger
	cfg         *config.Config
	sessionRepo repository.SessionRepository
	adminRepo   repository.AdminRepository
	publisher   events.Publisher
	now         func() time.Time
}

// NewSessionService wires the session layer. now is injectable for tests;
// pass nil for the wall clock.
func NewSessionService(
	logger *zap.Logger,
	cfg *config.Config,
	sessionRepo repository.SessionRepository,
	adminRepo repository.AdminRepository,
	publisher events.Publisher,
	now func() time.Time,
) *SessionService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SessionService{
		logger:      logger.Named("session_service"),
		cfg:         cfg,
		sessionRepo: sessionRepo,
		adminRepo:   adminRepo,
		publisher:   publisher,
		now:         now,
	}
}

// storeCtx bounds one store round trip so a hung backend surfaces as a
// retryable failure instead of stalling the request. A zero timeout leaves
// the caller's context as-is.
func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Issue mints a new session for an authenticated admin. The plaintext token
// exists only in the returned value.
func (s *SessionService) Issue(ctx context.Context, admin *models.Admin, meta models.RequestMeta) (*models.IssuedSession, error) {
	ctx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
	defer cancel()

	token, err := security.GenerateSessionToken()
	if err != nil {
		s.logger.Error("failed to generate session token", zap.Error(err))
		return nil, domainErrors.ErrInternal
	}

	now := s.now()
	session := &models.Session{
		TokenHash: security.HashSessionToken(token),
		AdminID:   admin.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.Security.SessionTTL),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error("failed to persist session", zap.Error(err), zap.String("admin_id", admin.ID.String()))
		return nil, fmt.Errorf("create session: %w", domainErrors.ErrUpstreamUnavailable)
	}

	return &models.IssuedSession{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Admin:     admin.Public(),
	}, nil
}

// Verify resolves a bearer token to an admin identity. Unknown, revoked and
// expired tokens are indistinguishable to the caller. Verification never
// extends expiry.
func (s *SessionService) Verify(ctx context.Context, token string) (*models.PublicAdmin, error) {
	ctx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
	defer cancel()

	tokenHash := security.HashSessionToken(token)

	session, err := s.sessionRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			metrics.SessionVerificationsTotal.WithLabelValues("invalid").Inc()
			return nil, domainErrors.ErrSessionNotFound
		}
		s.logger.Error("failed to look up session", zap.Error(err))
		metrics.SessionVerificationsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("find session: %w", domainErrors.ErrUpstreamUnavailable)
	}

	if session.Expired(s.now()) {
		// First verification after expiry destroys the row.
		if err := s.sessionRepo.Delete(ctx, tokenHash); err != nil && !errors.Is(err, domainErrors.ErrSessionNotFound) {
			s.logger.Error("failed to delete expired session", zap.Error(err))
		}
		metrics.SessionVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, domainErrors.ErrSessionNotFound
	}

	admin, err := s.adminRepo.FindByID(ctx, session.AdminID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAdminNotFound) {
			metrics.SessionVerificationsTotal.WithLabelValues("invalid").Inc()
			return nil, domainErrors.ErrSessionNotFound
		}
		s.logger.Error("failed to resolve session owner", zap.Error(err))
		metrics.SessionVerificationsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("find session owner: %w", domainErrors.ErrUpstreamUnavailable)
	}

	metrics.SessionVerificationsTotal.WithLabelValues("valid").Inc()
	public := admin.Public()
	return &public, nil
}

// Revoke destroys a session. Revoking an unknown token is a no-op so logout
// is idempotent.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	ctx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
	defer cancel()

	tokenHash := security.HashSessionToken(token)
	err := s.sessionRepo.Delete(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return nil
		}
		s.logger.Error("failed to revoke session", zap.Error(err))
		return fmt.Errorf("delete session: %w", domainErrors.ErrUpstreamUnavailable)
	}
	s.publisher.Publish(ctx, events.Event{Type: events.TypeSessionRevoked, Subject: tokenHash[:12]})
	return nil
}

// StartJanitor sweeps expired sessions until ctx is cancelled.
func (s *SessionService) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepCtx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
				n, err := s.sessionRepo.DeleteExpired(sweepCtx, s.now())
				cancel()
				if err != nil {
					s.logger.Error("session sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					metrics.SessionsSweptTotal.Add(float64(n))
					s.logger.Info("swept expired sessions", zap.Int64("count", n))
				}
			}
		}
	}()
}
