package errors

import "errors"

var (
	// ErrInvalidCredentials covers both unknown username and wrong password.
	// The two cases are never distinguished anywhere in the API surface.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Err2FARequired means the password matched but the account has a
	// confirmed second factor and no code was supplied. Recoverable: the
	// caller re-prompts for the code only.
	Err2FARequired = errors.New("second factor required")

	// ErrChallengeRequired means the failure threshold was crossed and no
	// verified bot-challenge token accompanied the attempt.
	ErrChallengeRequired = errors.New("bot challenge required")

	// ErrInvalid2FACode means a supplied TOTP code failed verification.
	ErrInvalid2FACode = errors.New("invalid second factor code")

	// ErrInvalidChallenge means a supplied bot-challenge token failed
	// verification or was already consumed.
	ErrInvalidChallenge = errors.New("invalid bot challenge token")

	// ErrSessionNotFound covers unknown, revoked and expired tokens alike.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUpstreamUnavailable means a store or provider call timed out or
	// failed. Retryable; never folded into a credential denial.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrAdminNotFound     = errors.New("admin not found")
	Err2FAAlreadyEnabled = errors.New("second factor already enabled")
	Err2FANotEnabled     = errors.New("second factor not enabled")
	ErrNoPendingSecret   = errors.New("no pending second factor enrollment")
	ErrInternal          = errors.New("internal error")
)

// IsUnauthorized reports whether err should surface as a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrInvalid2FACode) ||
		errors.Is(err, ErrInvalidChallenge)
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
