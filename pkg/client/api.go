// Package client is the Go client for the back-office auth API. It holds
// the "am I logged in" state for a caller, persists only the opaque session
// token, and re-verifies a restored token before trusting it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDenied is a terminal login denial (bad credentials or bad code).
	ErrDenied = errors.New("login denied")
	// ErrUnavailable means the service could not answer; retry later.
	ErrUnavailable = errors.New("service unavailable")
)

// Identity mirrors the API's user shape.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	TOTPEnabled bool      `json:"totp_enabled"`
}

// LoginRequest carries one credential presentation. Optional inputs stay
// empty when not collected yet.
type LoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	TOTPCode     string `json:"totp_code,omitempty"`
	CaptchaToken string `json:"captcha_token,omitempty"`
}

// LoginResponse is the decoded login outcome.
type LoginResponse struct {
	Granted           bool
	SessionToken      string
	ExpiresAt         time.Time
	User              Identity
	Requires2FA       bool
	RequiresChallenge bool
}

// EnrollmentResponse is the decoded 2FA setup payload.
type EnrollmentResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURL string `json:"provisioning_url"`
}

// API is the wire surface the SessionManager drives. Abstracted for tests.
type API interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	VerifySession(ctx context.Context, token string) (*Identity, error)
	Logout(ctx context.Context, token string) error
	SetupTwoFactor(ctx context.Context, token string) (*EnrollmentResponse, error)
	VerifyTwoFactor(ctx context.Context, token, code string) error
}

// HTTPAPI talks to a deployed service instance.
type HTTPAPI struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAPI(baseURL string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *HTTPAPI) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Success         bool      `json:"success"`
		SessionToken    string    `json:"session_token"`
		ExpiresAt       time.Time `json:"expires_at"`
		User            Identity  `json:"user"`
		Requires2FA     bool      `json:"requires_2fa"`
		RequiresCaptcha bool      `json:"requires_captcha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &LoginResponse{
			Granted:      true,
			SessionToken: decoded.SessionToken,
			ExpiresAt:    decoded.ExpiresAt,
			User:         decoded.User,
		}, nil
	case http.StatusAccepted:
		return &LoginResponse{Requires2FA: true}, nil
	case http.StatusForbidden:
		return &LoginResponse{RequiresChallenge: true}, nil
	case http.StatusUnauthorized:
		if decoded.Requires2FA {
			return &LoginResponse{Requires2FA: true}, nil
		}
		return nil, ErrDenied
	case http.StatusServiceUnavailable:
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("unexpected login status %d", resp.StatusCode)
	}
}

func (a *HTTPAPI) VerifySession(ctx context.Context, token string) (*Identity, error) {
	resp, err := a.doBearer(ctx, http.MethodGet, "/api/v1/auth/verify", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var decoded struct {
			User Identity `json:"user"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode verify response: %w", err)
		}
		return &decoded.User, nil
	case http.StatusServiceUnavailable:
		return nil, ErrUnavailable
	default:
		return nil, ErrDenied
	}
}

func (a *HTTPAPI) Logout(ctx context.Context, token string) error {
	resp, err := a.doBearer(ctx, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusServiceUnavailable {
		return ErrUnavailable
	}
	return nil
}

func (a *HTTPAPI) SetupTwoFactor(ctx context.Context, token string) (*EnrollmentResponse, error) {
	resp, err := a.doBearer(ctx, http.MethodPost, "/api/v1/auth/2fa/setup", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("2fa setup failed with status %d", resp.StatusCode)
	}
	var decoded EnrollmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode enrollment response: %w", err)
	}
	return &decoded, nil
}

func (a *HTTPAPI) VerifyTwoFactor(ctx context.Context, token, code string) error {
	body, _ := json.Marshal(map[string]string{"totp_code": code})
	resp, err := a.doBearer(ctx, http.MethodPost, "/api/v1/auth/2fa/verify", token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return ErrDenied
	}
}

func (a *HTTPAPI) doBearer(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

var _ API = (*HTTPAPI)(nil)
