package service

import "context"

// PasswordService hashes and verifies passwords. Verification against a
// stored hash must be constant-time in the comparison.
type PasswordService interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, encodedHash string) (bool, error)
}

// TOTPService generates and validates time-based one-time codes.
type TOTPService interface {
	// GenerateSecret returns the base32 secret and the otpauth:// URL for
	// the given account name.
	GenerateSecret(accountName string) (secret string, provisioningURL string, err error)
	// ValidateCode checks a 6-digit code against a secret, tolerating the
	// configured clock drift.
	ValidateCode(secret, code string) (bool, error)
}

// ChallengeProvider verifies solved bot-challenge tokens with the external
// human-verification service. The core never depends on how the challenge
// widget is rendered.
type ChallengeProvider interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// ChallengeRegistry marks verified challenge tokens as consumed.
// MarkUsed returns false when the token was consumed before, which makes
// every token single-use even under concurrent verification.
type ChallengeRegistry interface {
	MarkUsed(ctx context.Context, token string) (bool, error)
}

// AnonFailureBucket counts login failures that cannot be attributed to a
// known admin, keyed by source IP. At-least-once semantics are fine: the
// count is a rate-limiting signal, not an exact ledger.
type AnonFailureBucket interface {
	// Incr bumps the bucket and returns the new count within the window.
	Incr(ctx context.Context, ip string) (int, error)
	// Count reads the current value without modifying it.
	Count(ctx context.Context, ip string) (int, error)
}

// SecretCipher protects TOTP secrets at rest.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
