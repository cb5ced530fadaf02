package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is the manager's authentication state.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

// LoginOutcome tells the caller what to do next. Intermediate outcomes let
// the UI re-collect only the missing input; the credentials live in the
// caller's scope and are never retained by the manager.
type LoginOutcome struct {
	Granted           bool
	Requires2FA       bool
	RequiresChallenge bool
	Identity          *Identity
}

// SessionManager holds the client-side login state. All transitions are
// serialized by a mutex so concurrent calls cannot set contradictory state.
// It trusts a restored token only after the server re-verified it.
type SessionManager struct {
	mu       sync.Mutex
	api      API
	store    TokenStore
	state    State
	token    string
	identity *Identity
}

// NewSessionManager constructs a manager and attempts to restore a persisted
// session. A stored token that fails verification is cleared, not trusted.
func NewSessionManager(ctx context.Context, api API, store TokenStore) (*SessionManager, error) {
	m := &SessionManager{api: api, store: store, state: StateAnonymous}

	token, err := store.Load()
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to load stored token: %w", err)
	}

	identity, err := api.VerifySession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			// Can't decide yet; stay anonymous but keep the token for the
			// next restore attempt.
			return m, nil
		}
		if clearErr := store.Clear(); clearErr != nil {
			return nil, fmt.Errorf("failed to clear stale token: %w", clearErr)
		}
		return m, nil
	}

	m.state = StateAuthenticated
	m.token = token
	m.identity = identity
	return m, nil
}

// Login runs one attempt. On an intermediate outcome the state stays
// anonymous and the caller re-prompts; on success the token is persisted and
// the manager becomes authenticated.
func (m *SessionManager) Login(ctx context.Context, req LoginRequest) (*LoginOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.api.Login(ctx, req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Granted:
		if err := m.store.Save(resp.SessionToken); err != nil {
			return nil, fmt.Errorf("failed to persist session token: %w", err)
		}
		m.state = StateAuthenticated
		m.token = resp.SessionToken
		identity := resp.User
		m.identity = &identity
		return &LoginOutcome{Granted: true, Identity: m.identity}, nil
	case resp.Requires2FA:
		return &LoginOutcome{Requires2FA: true}, nil
	case resp.RequiresChallenge:
		return &LoginOutcome{RequiresChallenge: true}, nil
	default:
		return nil, ErrDenied
	}
}

// Logout revokes the server-side session and clears local state. Local state
// clears even when the server call fails; the session janitor will reap the
// orphan at expiry.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return nil
	}

	revokeErr := m.api.Logout(ctx, m.token)
	m.state = StateAnonymous
	m.token = ""
	m.identity = nil
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear stored token: %w", err)
	}
	return revokeErr
}

// CurrentIdentity returns the verified identity, or nil when anonymous.
func (m *SessionManager) CurrentIdentity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// CurrentState returns the manager's state.
func (m *SessionManager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// BeginEnrollment starts TOTP enrollment for the logged-in admin.
func (m *SessionManager) BeginEnrollment(ctx context.Context) (*EnrollmentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return nil, ErrDenied
	}
	return m.api.SetupTwoFactor(ctx, m.token)
}

// ConfirmEnrollment confirms the pending enrollment with a current code.
func (m *SessionManager) ConfirmEnrollment(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return ErrDenied
	}
	if err := m.api.VerifyTwoFactor(ctx, m.token, code); err != nil {
		return err
	}
	if m.identity != nil {
		m.identity.TOTPEnabled = true
	}
	return nil
}

// Revalidate re-verifies the current token against the server and drops the
// session when it no longer stands.
func (m *SessionManager) Revalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return nil
	}
	identity, err := m.api.VerifySession(ctx, m.token)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		m.state = StateAnonymous
		m.token = ""
		m.identity = nil
		if clearErr := m.store.Clear(); clearErr != nil {
			return fmt.Errorf("failed to clear stored token: %w", clearErr)
		}
		return nil
	}
	m.identity = identity
	return nil
}
