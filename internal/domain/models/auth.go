package models

// SecondFactor is a TOTP code supplied with a login attempt.
type SecondFactor struct {
	Code string
}

// ChallengeToken is a solved bot-challenge token supplied with a login
// attempt. Tokens are single-use: a token that already passed verification
// once is rejected on replay.
type ChallengeToken struct {
	Value string
}

// LoginAttempt is one credential presentation. The optional inputs are
// modelled as explicit nilable variants so the decision engine branches on
// presence, not on empty strings: password only, password+factor,
// password+challenge, or all three.
//
// The plaintext password and code live only for the duration of the attempt
// and must never be logged or persisted.
type LoginAttempt struct {
	Username  string
	Password  string
	Factor    *SecondFactor
	Challenge *ChallengeToken
}

// RequestMeta is transport-level context attached to an attempt, used for
// the anonymous failure bucket and session bookkeeping.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Enrollment is the result of starting a two-factor enrollment: the shared
// secret (base32) and the otpauth:// provisioning URL the admin scans into
// an authenticator app. The secret stays pending until confirmed.
type Enrollment struct {
	Secret          string
	ProvisioningURL string
}
