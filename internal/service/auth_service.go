package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	domainErrors "github.com/Modoufinance/healthyimc-sub001/internal/domain/errors"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/repository"
	domainService "github.com/Modoufinance/healthyimc-sub001/internal/domain/service"
	"github.com/Modoufinance/healthyimc-sub001/internal/events"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/security"
	"github.com/Modoufinance/healthyimc-sub001/internal/utils/metrics"
)

// AuthService is the login decision engine. Given one credential
// presentation it either issues a session, demands a second factor, demands
// a bot challenge, or denies.
type AuthService struct {
	logger            *zap.Logger
	cfg               *config.Config
	adminRepo         repository.AdminRepository
	sessionService    *SessionService
	passwordService   domainService.PasswordService
	totpService       domainService.TOTPService
	cipher            domainService.SecretCipher
	challengeProvider domainService.ChallengeProvider
	challengeRegistry domainService.ChallengeRegistry
	anonBucket        domainService.AnonFailureBucket
	publisher         events.Publisher

	// dummyHash is verified against when the username is unknown, so the
	// unknown-user and wrong-password paths cost the same.
	dummyHash string
}

// NewAuthService wires the decision engine.
func NewAuthService(
	logger *zap.Logger,
	cfg *config.Config,
	adminRepo repository.AdminRepository,
	sessionService *SessionService,
	passwordService domainService.PasswordService,
	totpService domainService.TOTPService,
	cipher domainService.SecretCipher,
	challengeProvider domainService.ChallengeProvider,
	challengeRegistry domainService.ChallengeRegistry,
	anonBucket domainService.AnonFailureBucket,
	publisher events.Publisher,
) (*AuthService, error) {
	decoy, err := security.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate decoy password: %w", err)
	}
	dummy, err := passwordService.HashPassword(decoy)
	if err != nil {
		return nil, fmt.Errorf("failed to precompute decoy hash: %w", err)
	}
	return &AuthService{
		logger:            logger.Named("auth_service"),
		cfg:               cfg,
		adminRepo:         adminRepo,
		sessionService:    sessionService,
		passwordService:   passwordService,
		totpService:       totpService,
		cipher:            cipher,
		challengeProvider: challengeProvider,
		challengeRegistry: challengeRegistry,
		anonBucket:        anonBucket,
		publisher:         publisher,
		dummyHash:         dummy,
	}, nil
}

// Login runs one attempt through the decision machine:
// credentials, then escalation, then second factor, then issuance.
//
// Denial errors are sentinels from the domain errors package; the plaintext
// password and code never appear in logs, events or return values.
func (s *AuthService) Login(ctx context.Context, attempt models.LoginAttempt, meta models.RequestMeta) (*models.IssuedSession, error) {
	ctx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
	defer cancel()

	admin, err := s.adminRepo.FindByUsername(ctx, attempt.Username)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAdminNotFound) {
			return nil, s.denyUnknownUser(ctx, attempt, meta)
		}
		return nil, s.storeFailure("find admin", err, meta)
	}

	match, err := s.passwordService.CheckPasswordHash(attempt.Password, admin.PasswordHash)
	if err != nil {
		s.logger.Error("password check failed", zap.Error(err), zap.String("admin_id", admin.ID.String()))
		metrics.LoginAttemptsTotal.WithLabelValues("upstream_error").Inc()
		return nil, domainErrors.ErrInternal
	}
	if !match {
		if _, errInc := s.adminRepo.IncrementFailedAttempts(ctx, admin.ID); errInc != nil {
			s.logger.Error("failed to increment failure counter", zap.Error(errInc), zap.String("admin_id", admin.ID.String()))
		}
		s.publishFailure(ctx, admin.Username, "invalid_credentials", meta)
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domainErrors.ErrInvalidCredentials
	}

	if required, err := s.challengeNeeded(ctx, admin, meta); err != nil {
		return nil, err
	} else if required {
		if err := s.consumeChallenge(ctx, admin, attempt.Challenge, meta); err != nil {
			return nil, err
		}
	}

	if admin.TOTPEnabled {
		if attempt.Factor == nil {
			metrics.LoginAttemptsTotal.WithLabelValues("second_factor_required").Inc()
			return nil, domainErrors.Err2FARequired
		}
		if err := s.checkSecondFactor(ctx, admin, attempt.Factor.Code, meta); err != nil {
			return nil, err
		}
	}

	if err := s.adminRepo.ResetFailedAttempts(ctx, admin.ID); err != nil {
		s.logger.Error("failed to reset failure counter", zap.Error(err), zap.String("admin_id", admin.ID.String()))
	}

	issued, err := s.sessionService.Issue(ctx, admin, meta)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeLoginSucceeded,
		Subject:   admin.ID.String(),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("admin login succeeded", zap.String("admin_id", admin.ID.String()))
	return issued, nil
}

// denyUnknownUser keeps the unknown-username path indistinguishable from a
// wrong password: same work, same sentinel, same log level.
func (s *AuthService) denyUnknownUser(ctx context.Context, attempt models.LoginAttempt, meta models.RequestMeta) error {
	if _, err := s.passwordService.CheckPasswordHash(attempt.Password, s.dummyHash); err != nil {
		s.logger.Error("decoy password check failed", zap.Error(err))
	}
	if _, err := s.anonBucket.Incr(ctx, meta.IPAddress); err != nil {
		s.logger.Error("failed to increment anonymous failure bucket", zap.Error(err))
	}
	s.publishFailure(ctx, attempt.Username, "invalid_credentials", meta)
	metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
	return domainErrors.ErrInvalidCredentials
}

// challengeNeeded applies the escalation policy: the per-identity counter or
// the per-IP anonymous bucket crossing the threshold demands a solved
// challenge before factor checks.
func (s *AuthService) challengeNeeded(ctx context.Context, admin *models.Admin, meta models.RequestMeta) (bool, error) {
	if admin.FailedLoginAttempts >= s.cfg.Security.FailureThreshold {
		return true, nil
	}
	anon, err := s.anonBucket.Count(ctx, meta.IPAddress)
	if err != nil {
		// The bucket is advisory; a read failure must not block logins.
		s.logger.Error("failed to read anonymous failure bucket", zap.Error(err))
		return false, nil
	}
	return anon >= s.cfg.Security.FailureThreshold, nil
}

func (s *AuthService) consumeChallenge(ctx context.Context, admin *models.Admin, challenge *models.ChallengeToken, meta models.RequestMeta) error {
	if challenge == nil {
		s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeChallengeRequired,
			Subject:   admin.ID.String(),
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		metrics.LoginAttemptsTotal.WithLabelValues("challenge_required").Inc()
		return domainErrors.ErrChallengeRequired
	}

	ok, err := s.challengeProvider.Verify(ctx, challenge.Value, meta.IPAddress)
	if err != nil {
		return s.storeFailure("verify challenge", err, meta)
	}
	if ok {
		// First consumer wins; a replayed token loses the compare-and-set.
		fresh, err := s.challengeRegistry.MarkUsed(ctx, challenge.Value)
		if err != nil {
			return s.storeFailure("mark challenge used", err, meta)
		}
		ok = fresh
	}
	if !ok {
		if _, errInc := s.adminRepo.IncrementFailedAttempts(ctx, admin.ID); errInc != nil {
			s.logger.Error("failed to increment failure counter", zap.Error(errInc), zap.String("admin_id", admin.ID.String()))
		}
		s.publishFailure(ctx, admin.Username, "challenge_invalid", meta)
		metrics.LoginAttemptsTotal.WithLabelValues("challenge_invalid").Inc()
		return domainErrors.ErrInvalidChallenge
	}
	return nil
}

func (s *AuthService) checkSecondFactor(ctx context.Context, admin *models.Admin, code string, meta models.RequestMeta) error {
	if admin.TOTPSecretEnc == nil {
		s.logger.Error("totp enabled without stored secret", zap.String("admin_id", admin.ID.String()))
		return domainErrors.ErrInternal
	}
	secret, err := s.cipher.Decrypt(*admin.TOTPSecretEnc)
	if err != nil {
		s.logger.Error("failed to decrypt totp secret", zap.Error(err), zap.String("admin_id", admin.ID.String()))
		return domainErrors.ErrInternal
	}
	valid, err := s.totpService.ValidateCode(secret, code)
	if err != nil {
		s.logger.Error("totp validation failed", zap.Error(err), zap.String("admin_id", admin.ID.String()))
		return domainErrors.ErrInternal
	}
	if !valid {
		if _, errInc := s.adminRepo.IncrementFailedAttempts(ctx, admin.ID); errInc != nil {
			s.logger.Error("failed to increment failure counter", zap.Error(errInc), zap.String("admin_id", admin.ID.String()))
		}
		s.publishFailure(ctx, admin.Username, "second_factor_invalid", meta)
		metrics.LoginAttemptsTotal.WithLabelValues("second_factor_invalid").Inc()
		return domainErrors.ErrInvalid2FACode
	}
	return nil
}

func (s *AuthService) publishFailure(ctx context.Context, subject, reason string, meta models.RequestMeta) {
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeLoginFailed,
		Subject:   subject,
		Reason:    reason,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
}

// storeFailure logs the underlying cause and surfaces a retryable error,
// never a credential denial.
func (s *AuthService) storeFailure(op string, err error, meta models.RequestMeta) error {
	s.logger.Error("upstream operation failed", zap.String("op", op), zap.Error(err), zap.String("ip", meta.IPAddress))
	metrics.LoginAttemptsTotal.WithLabelValues("upstream_error").Inc()
	return fmt.Errorf("%s: %w", op, domainErrors.ErrUpstreamUnavailable)
}
