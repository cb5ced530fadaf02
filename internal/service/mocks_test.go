package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
)

type MockAdminRepo struct{ mock.Mock }

func (m *MockAdminRepo) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	args := m.Called(ctx, username)
	var admin *models.Admin
	if args.Get(0) != nil {
		admin = args.Get(0).(*models.Admin)
	}
	return admin, args.Error(1)
}

func (m *MockAdminRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	args := m.Called(ctx, id)
	var admin *models.Admin
	if args.Get(0) != nil {
		admin = args.Get(0).(*models.Admin)
	}
	return admin, args.Error(1)
}

func (m *MockAdminRepo) Create(ctx context.Context, admin *models.Admin) error {
	return m.Called(ctx, admin).Error(0)
}

func (m *MockAdminRepo) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockAdminRepo) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdminRepo) SetPendingTOTPSecret(ctx context.Context, id uuid.UUID, secretEnc string) error {
	return m.Called(ctx, id, secretEnc).Error(0)
}

func (m *MockAdminRepo) PromotePendingTOTPSecret(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminRepo) ClearTOTP(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockSessionRepo struct{ mock.Mock }

func (m *MockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	args := m.Called(ctx, tokenHash)
	var session *models.Session
	if args.Get(0) != nil {
		session = args.Get(0).(*models.Session)
	}
	return session, args.Error(1)
}

func (m *MockSessionRepo) Delete(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockSessionRepo) DeleteByAdminID(ctx context.Context, adminID uuid.UUID) error {
	return m.Called(ctx, adminID).Error(0)
}

func (m *MockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockPasswordService struct{ mock.Mock }

func (m *MockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) CheckPasswordHash(password, encodedHash string) (bool, error) {
	args := m.Called(password, encodedHash)
	return args.Bool(0), args.Error(1)
}

type MockTOTPService struct{ mock.Mock }

func (m *MockTOTPService) GenerateSecret(accountName string) (string, string, error) {
	args := m.Called(accountName)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockTOTPService) ValidateCode(secret, code string) (bool, error) {
	args := m.Called(secret, code)
	return args.Bool(0), args.Error(1)
}

type MockSecretCipher struct{ mock.Mock }

func (m *MockSecretCipher) Encrypt(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

func (m *MockSecretCipher) Decrypt(ciphertext string) (string, error) {
	args := m.Called(ciphertext)
	return args.String(0), args.Error(1)
}

type MockChallengeProvider struct{ mock.Mock }

func (m *MockChallengeProvider) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	args := m.Called(ctx, token, remoteIP)
	return args.Bool(0), args.Error(1)
}

type MockChallengeRegistry struct{ mock.Mock }

func (m *MockChallengeRegistry) MarkUsed(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type MockAnonFailureBucket struct{ mock.Mock }

func (m *MockAnonFailureBucket) Incr(ctx context.Context, ip string) (int, error) {
	args := m.Called(ctx, ip)
	return args.Int(0), args.Error(1)
}

func (m *MockAnonFailureBucket) Count(ctx context.Context, ip string) (int, error) {
	args := m.Called(ctx, ip)
	return args.Int(0), args.Error(1)
}
