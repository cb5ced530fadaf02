package client

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	loginResp    *LoginResponse
	loginErr     error
	identities   map[string]*Identity
	verifyErr    error
	logoutErr    error
	logoutCalls  []string
	enrollment   *EnrollmentResponse
	confirmErr   error
	confirmCodes []string
}

func (f *fakeAPI) Login(_ context.Context, _ LoginRequest) (*LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) VerifySession(_ context.Context, token string) (*Identity, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	identity, ok := f.identities[token]
	if !ok {
		return nil, ErrDenied
	}
	return identity, nil
}

func (f *fakeAPI) Logout(_ context.Context, token string) error {
	f.logoutCalls = append(f.logoutCalls, token)
	return f.logoutErr
}

func (f *fakeAPI) SetupTwoFactor(_ context.Context, _ string) (*EnrollmentResponse, error) {
	return f.enrollment, nil
}

func (f *fakeAPI) VerifyTwoFactor(_ context.Context, _, code string) error {
	f.confirmCodes = append(f.confirmCodes, code)
	return f.confirmErr
}

func newIdentity() *Identity {
	return &Identity{ID: uuid.New(), Username: "claire"}
}

func TestManager_StartsAnonymousWithEmptyStore(t *testing.T) {
	m, err := NewSessionManager(context.Background(), &fakeAPI{}, NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, m.CurrentState())
	assert.Nil(t, m.CurrentIdentity())
}

func TestManager_RestoresVerifiedToken(t *testing.T) {
	identity := newIdentity()
	api := &fakeAPI{identities: map[string]*Identity{"stored-token": identity}}
	store := NewMemoryStore()
	require.NoError(t, store.Save("stored-token"))

	m, err := NewSessionManager(context.Background(), api, store)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, m.CurrentState())
	assert.Equal(t, "claire", m.CurrentIdentity().Username)
}

func TestManager_ClearsStaleToken(t *testing.T) {
	api := &fakeAPI{identities: map[string]*Identity{}}
	store := NewMemoryStore()
	require.NoError(t, store.Save("expired-token"))

	m, err := NewSessionManager(context.Background(), api, store)
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, m.CurrentState())

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestManager_KeepsTokenWhenServerUnreachable(t *testing.T) {
	api := &fakeAPI{verifyErr: ErrUnavailable}
	store := NewMemoryStore()
	require.NoError(t, store.Save("stored-token"))

	m, err := NewSessionManager(context.Background(), api, store)
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, m.CurrentState())

	// The token survives for the next restore attempt.
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "stored-token", token)
}

func TestManager_LoginGranted(t *testing.T) {
	identity := newIdentity()
	api := &fakeAPI{loginResp: &LoginResponse{Granted: true, SessionToken: "fresh", User: *identity}}
	store := NewMemoryStore()
	m, err := NewSessionManager(context.Background(), api, store)
	require.NoError(t, err)

	outcome, err := m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	require.NoError(t, err)
	assert.True(t, outcome.Granted)
	assert.Equal(t, "claire", outcome.Identity.Username)
	assert.Equal(t, StateAuthenticated, m.CurrentState())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestManager_LoginIntermediateOutcomes(t *testing.T) {
	api := &fakeAPI{loginResp: &LoginResponse{Requires2FA: true}}
	m, err := NewSessionManager(context.Background(), api, NewMemoryStore())
	require.NoError(t, err)

	outcome, err := m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	require.NoError(t, err)
	assert.True(t, outcome.Requires2FA)
	assert.False(t, outcome.Granted)
	assert.Equal(t, StateAnonymous, m.CurrentState())

	api.loginResp = &LoginResponse{RequiresChallenge: true}
	outcome, err = m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	require.NoError(t, err)
	assert.True(t, outcome.RequiresChallenge)
	assert.Equal(t, StateAnonymous, m.CurrentState())
}

func TestManager_LoginDenied(t *testing.T) {
	api := &fakeAPI{loginErr: ErrDenied}
	m, err := NewSessionManager(context.Background(), api, NewMemoryStore())
	require.NoError(t, err)

	_, err = m.Login(context.Background(), LoginRequest{Username: "claire", Password: "wrong"})
	assert.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, StateAnonymous, m.CurrentState())
}

func TestManager_LoginUnavailableKeepsState(t *testing.T) {
	api := &fakeAPI{loginErr: ErrUnavailable}
	m, err := NewSessionManager(context.Background(), api, NewMemoryStore())
	require.NoError(t, err)

	_, err = m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StateAnonymous, m.CurrentState())
}

func TestManager_LogoutClearsStateEvenOnServerError(t *testing.T) {
	identity := newIdentity()
	api := &fakeAPI{
		loginResp: &LoginResponse{Granted: true, SessionToken: "fresh", User: *identity},
		logoutErr: ErrUnavailable,
	}
	store := NewMemoryStore()
	m, err := NewSessionManager(context.Background(), api, store)
	require.NoError(t, err)
	_, err = m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	require.NoError(t, err)

	err = m.Logout(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StateAnonymous, m.CurrentState())
	assert.Nil(t, m.CurrentIdentity())
	assert.Equal(t, []string{"fresh"}, api.logoutCalls)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestManager_LogoutWhenAnonymousIsNoop(t *testing.T) {
	api := &fakeAPI{}
	m, err := NewSessionManager(context.Background(), api, NewMemoryStore())
	require.NoError(t, err)

	assert.NoError(t, m.Logout(context.Background()))
	assert.Empty(t, api.logoutCalls)
}

func TestManager_EnrollmentFlow(t *testing.T) {
	identity := newIdentity()
	api := &fakeAPI{
		loginResp:  &LoginResponse{Granted: true, SessionToken: "fresh", User: *identity},
		enrollment: &EnrollmentResponse{Secret: "JBSWY3DP", ProvisioningURL: "otpauth://totp/x"},
	}
	m, err := NewSessionManager(context.Background(), api, NewMemoryStore())
	require.NoError(t, err)
	_, err = m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	require.NoError(t, err)

	enrollment, err := m.BeginEnrollment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DP", enrollment.Secret)

	require.NoError(t, m.ConfirmEnrollment(context.Background(), "123456"))
	assert.Equal(t, []string{"123456"}, api.confirmCodes)
	assert.True(t, m.CurrentIdentity().TOTPEnabled)
}

func TestManager_EnrollmentRequiresAuthentication(t *testing.T) {
	m, err := NewSessionManager(context.Background(), &fakeAPI{}, NewMemoryStore())
	require.NoError(t, err)

	_, err = m.BeginEnrollment(context.Background())
	assert.ErrorIs(t, err, ErrDenied)
	assert.ErrorIs(t, m.ConfirmEnrollment(context.Background(), "123456"), ErrDenied)
}

func TestManager_RevalidateDropsDeadSession(t *testing.T) {
	identity := newIdentity()
	api := &fakeAPI{
		loginResp:  &LoginResponse{Granted: true, SessionToken: "fresh", User: *identity},
		identities: map[string]*Identity{"fresh": identity},
	}
	store := NewMemoryStore()
	m, err := NewSessionManager(context.Background(), api, store)
	require.NoError(t, err)
	_, err = m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	require.NoError(t, err)

	require.NoError(t, m.Revalidate(context.Background()))
	assert.Equal(t, StateAuthenticated, m.CurrentState())

	// Server-side revocation shows up on the next revalidation.
	delete(api.identities, "fresh")
	require.NoError(t, m.Revalidate(context.Background()))
	assert.Equal(t, StateAnonymous, m.CurrentState())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestManager_RevalidateSurvivesOutage(t *testing.T) {
	identity := newIdentity()
	api := &fakeAPI{
		loginResp:  &LoginResponse{Granted: true, SessionToken: "fresh", User: *identity},
		identities: map[string]*Identity{"fresh": identity},
	}
	m, err := NewSessionManager(context.Background(), api, NewMemoryStore())
	require.NoError(t, err)
	_, err = m.Login(context.Background(), LoginRequest{Username: "claire", Password: "s3cret"})
	require.NoError(t, err)

	api.verifyErr = ErrUnavailable
	err = m.Revalidate(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StateAuthenticated, m.CurrentState())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save("token"))
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "token", token)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestManager_PropagatesStoreLoadFailure(t *testing.T) {
	_, err := NewSessionManager(context.Background(), &fakeAPI{}, failingStore{})
	assert.Error(t, err)
}

type failingStore struct{}

func (failingStore) Save(string) error   { return errors.New("disk full") }
func (failingStore) Load() (string, error) { return "", errors.New("corrupt keyring") }
func (failingStore) Clear() error        { return nil }
