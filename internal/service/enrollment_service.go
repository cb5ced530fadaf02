package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	domainErrors "github.com/Modoufinance/healthyimc-sub001/internal/domain/errors"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/repository"
	domainService "github.com/Modoufinance/healthyimc-sub001/internal/domain/service"
	"github.com/Modoufinance/healthyimc-sub001/internal/events"
	"github.com/Modoufinance/healthyimc-sub001/internal/utils/metrics"
)

// EnrollmentService manages the two-step TOTP enrollment: a generated secret
// stays pending until the admin proves possession with a valid code. A
// pending secret never gates login.
type EnrollmentService struct {
	logger      *zap.Logger
	cfg         *config.Config
	adminRepo   repository.AdminRepository
	totpService domainService.TOTPService
	cipher      domainService.SecretCipher
	publisher   events.Publisher
}

func NewEnrollmentService(
	logger *zap.Logger,
	cfg *config.Config,
	adminRepo repository.AdminRepository,
	totpService domainService.TOTPService,
	cipher domainService.SecretCipher,
	publisher events.Publisher,
) *EnrollmentService {
	return &EnrollmentService{
		logger:      logger.Named("enrollment_service"),
		cfg:         cfg,
		adminRepo:   adminRepo,
		totpService: totpService,
		cipher:      cipher,
		publisher:   publisher,
	}
}

// Begin generates a fresh shared secret and provisioning URL. Calling Begin
// again replaces any previous unconfirmed secret.
func (s *EnrollmentService) Begin(ctx context.Context, adminID uuid.UUID) (*models.Enrollment, error) {
	ctx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
	defer cancel()

	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return nil, s.mapStoreErr("find admin", err)
	}
	if admin.TOTPEnabled {
		return nil, domainErrors.Err2FAAlreadyEnabled
	}

	secret, provisioningURL, err := s.totpService.GenerateSecret(admin.Username)
	if err != nil {
		s.logger.Error("failed to generate totp secret", zap.Error(err), zap.String("admin_id", adminID.String()))
		return nil, domainErrors.ErrInternal
	}
	secretEnc, err := s.cipher.Encrypt(secret)
	if err != nil {
		s.logger.Error("failed to encrypt totp secret", zap.Error(err), zap.String("admin_id", adminID.String()))
		return nil, domainErrors.ErrInternal
	}
	if err := s.adminRepo.SetPendingTOTPSecret(ctx, adminID, secretEnc); err != nil {
		metrics.EnrollmentsTotal.WithLabelValues("begin", "upstream_error").Inc()
		return nil, s.mapStoreErr("store pending secret", err)
	}

	metrics.EnrollmentsTotal.WithLabelValues("begin", "success").Inc()
	s.logger.Info("two-factor enrollment started", zap.String("admin_id", adminID.String()))
	return &models.Enrollment{Secret: secret, ProvisioningURL: provisioningURL}, nil
}

// Confirm verifies a candidate code against the pending secret and, on
// success, atomically activates the second factor. Re-confirming an already
// enabled factor with a currently valid code is a no-op success.
func (s *EnrollmentService) Confirm(ctx context.Context, adminID uuid.UUID, code string) error {
	ctx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
	defer cancel()

	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return s.mapStoreErr("find admin", err)
	}

	if admin.TOTPEnabled {
		valid, err := s.validateAgainst(admin.TOTPSecretEnc, code, adminID)
		if err != nil {
			return err
		}
		if !valid {
			metrics.EnrollmentsTotal.WithLabelValues("confirm", "invalid_code").Inc()
			return domainErrors.ErrInvalid2FACode
		}
		return nil
	}

	if admin.TOTPPendingSecretEnc == nil {
		return domainErrors.ErrNoPendingSecret
	}
	valid, err := s.validateAgainst(admin.TOTPPendingSecretEnc, code, adminID)
	if err != nil {
		return err
	}
	if !valid {
		metrics.EnrollmentsTotal.WithLabelValues("confirm", "invalid_code").Inc()
		return domainErrors.ErrInvalid2FACode
	}

	promoted, err := s.adminRepo.PromotePendingTOTPSecret(ctx, adminID)
	if err != nil {
		metrics.EnrollmentsTotal.WithLabelValues("confirm", "upstream_error").Inc()
		return s.mapStoreErr("promote pending secret", err)
	}
	if !promoted {
		// Lost the race to a concurrent confirm; the factor is active either
		// way, so the outcome is the same.
		s.logger.Info("pending secret already promoted", zap.String("admin_id", adminID.String()))
	}

	s.publisher.Publish(ctx, events.Event{Type: events.TypeTwoFactorEnabled, Subject: adminID.String()})
	metrics.EnrollmentsTotal.WithLabelValues("confirm", "success").Inc()
	s.logger.Info("two-factor enrollment confirmed", zap.String("admin_id", adminID.String()))
	return nil
}

// Disable turns the second factor off after proving possession of a current
// code.
func (s *EnrollmentService) Disable(ctx context.Context, adminID uuid.UUID, code string) error {
	ctx, cancel := storeCtx(ctx, s.cfg.Security.StoreTimeout)
	defer cancel()

	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return s.mapStoreErr("find admin", err)
	}
	if !admin.TOTPEnabled {
		return domainErrors.Err2FANotEnabled
	}
	valid, err := s.validateAgainst(admin.TOTPSecretEnc, code, adminID)
	if err != nil {
		return err
	}
	if !valid {
		return domainErrors.ErrInvalid2FACode
	}
	if err := s.adminRepo.ClearTOTP(ctx, adminID); err != nil {
		return s.mapStoreErr("clear totp", err)
	}
	s.publisher.Publish(ctx, events.Event{Type: events.TypeTwoFactorDisabled, Subject: adminID.String()})
	s.logger.Info("two-factor disabled", zap.String("admin_id", adminID.String()))
	return nil
}

func (s *EnrollmentService) validateAgainst(secretEnc *string, code string, adminID uuid.UUID) (bool, error) {
	if secretEnc == nil {
		s.logger.Error("missing totp secret for validation", zap.String("admin_id", adminID.String()))
		return false, domainErrors.ErrInternal
	}
	secret, err := s.cipher.Decrypt(*secretEnc)
	if err != nil {
		s.logger.Error("failed to decrypt totp secret", zap.Error(err), zap.String("admin_id", adminID.String()))
		return false, domainErrors.ErrInternal
	}
	valid, err := s.totpService.ValidateCode(secret, code)
	if err != nil {
		s.logger.Error("totp validation failed", zap.Error(err), zap.String("admin_id", adminID.String()))
		return false, domainErrors.ErrInternal
	}
	return valid, nil
}

func (s *EnrollmentService) mapStoreErr(op string, err error) error {
	if errors.Is(err, domainErrors.ErrAdminNotFound) {
		return domainErrors.ErrAdminNotFound
	}
	s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, domainErrors.ErrUpstreamUnavailable)
}
