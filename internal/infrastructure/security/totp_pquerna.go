package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	domainService "github.com/Modoufinance/healthyimc-sub001/internal/domain/service"
)

// pquernaTOTPService implements TOTPService on top of pquerna/otp with the
// conventional parameters: 30s period, 6 digits, SHA1.
type pquernaTOTPService struct {
	issuer string
	skew   uint
}

// NewPquernaTOTPService creates a TOTPService. issuer is the name shown in
// authenticator apps; skew is the tolerated clock drift in time steps.
func NewPquernaTOTPService(issuer string, skew uint) domainService.TOTPService {
	if strings.TrimSpace(issuer) == "" {
		issuer = "HealthyIMC"
	}
	return &pquernaTOTPService{issuer: issuer, skew: skew}
}

func (s *pquernaTOTPService) GenerateSecret(accountName string) (string, string, error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", fmt.Errorf("account name cannot be empty")
	}
	if strings.Contains(accountName, ":") || strings.Contains(s.issuer, ":") {
		return "", "", fmt.Errorf("account name and issuer cannot contain a colon")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

func (s *pquernaTOTPService) ValidateCode(secret, code string) (bool, error) {
	if strings.TrimSpace(secret) == "" {
		return false, fmt.Errorf("secret cannot be empty")
	}
	if strings.TrimSpace(code) == "" {
		return false, nil
	}

	valid, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      s.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to validate TOTP code: %w", err)
	}
	return valid, nil
}

var _ domainService.TOTPService = (*pquernaTOTPService)(nil)
