package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestTOTP_GenerateSecret(t *testing.T) {
	svc := NewPquernaTOTPService("HealthyIMC", 1)

	secret, url, err := svc.GenerateSecret("claire")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/")
	assert.Contains(t, url, "HealthyIMC")
	assert.Contains(t, url, "claire")

	second, _, err := svc.GenerateSecret("claire")
	require.NoError(t, err)
	assert.NotEqual(t, secret, second)
}

func TestTOTP_GenerateSecretRejectsBadNames(t *testing.T) {
	svc := NewPquernaTOTPService("HealthyIMC", 1)

	_, _, err := svc.GenerateSecret("")
	assert.Error(t, err)
	_, _, err = svc.GenerateSecret("a:b")
	assert.Error(t, err)
}

func TestTOTP_ValidateCode(t *testing.T) {
	svc := NewPquernaTOTPService("HealthyIMC", 1)
	secret, _, err := svc.GenerateSecret("claire")
	require.NoError(t, err)

	now := time.Now().UTC()

	valid, err := svc.ValidateCode(secret, codeAt(t, secret, now))
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = svc.ValidateCode(secret, "000000")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestTOTP_SkewTolerance(t *testing.T) {
	svc := NewPquernaTOTPService("HealthyIMC", 1)
	secret, _, err := svc.GenerateSecret("claire")
	require.NoError(t, err)

	now := time.Now().UTC()

	// One step of drift on either side is tolerated.
	valid, err := svc.ValidateCode(secret, codeAt(t, secret, now.Add(-30*time.Second)))
	require.NoError(t, err)
	assert.True(t, valid)
	valid, err = svc.ValidateCode(secret, codeAt(t, secret, now.Add(30*time.Second)))
	require.NoError(t, err)
	assert.True(t, valid)

	// Two minutes is not.
	valid, err = svc.ValidateCode(secret, codeAt(t, secret, now.Add(-2*time.Minute)))
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestTOTP_EmptyInputs(t *testing.T) {
	svc := NewPquernaTOTPService("HealthyIMC", 1)
	secret, _, err := svc.GenerateSecret("claire")
	require.NoError(t, err)

	valid, err := svc.ValidateCode(secret, "")
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = svc.ValidateCode("", "123456")
	assert.Error(t, err)
}
