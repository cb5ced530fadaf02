package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/Modoufinance/healthyimc-sub001/internal/domain/errors"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
)

// AuthLogic is the slice of the auth service the handler needs.
type AuthLogic interface {
	Login(ctx context.Context, attempt models.LoginAttempt, meta models.RequestMeta) (*models.IssuedSession, error)
}

// SessionLogic is the slice of the session service the handler needs.
type SessionLogic interface {
	Verify(ctx context.Context, token string) (*models.PublicAdmin, error)
	Revoke(ctx context.Context, token string) error
}

// EnrollmentLogic is the slice of the enrollment service the handler needs.
type EnrollmentLogic interface {
	Begin(ctx context.Context, adminID uuid.UUID) (*models.Enrollment, error)
	Confirm(ctx context.Context, adminID uuid.UUID, code string) error
	Disable(ctx context.Context, adminID uuid.UUID, code string) error
}

// AuthHandler exposes the admin auth flow over HTTP+JSON.
type AuthHandler struct {
	logger      *zap.Logger
	authLogic   AuthLogic
	sessions    SessionLogic
	enrollments EnrollmentLogic
}

func NewAuthHandler(logger *zap.Logger, authLogic AuthLogic, sessions SessionLogic, enrollments EnrollmentLogic) *AuthHandler {
	return &AuthHandler{
		logger:      logger.Named("auth_handler"),
		authLogic:   authLogic,
		sessions:    sessions,
		enrollments: enrollments,
	}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgLoginFailed))
		return
	}

	attempt := models.LoginAttempt{Username: req.Username, Password: req.Password}
	if req.TOTPCode != "" {
		attempt.Factor = &models.SecondFactor{Code: req.TOTPCode}
	}
	if req.CaptchaToken != "" {
		attempt.Challenge = &models.ChallengeToken{Value: req.CaptchaToken}
	}
	meta := models.RequestMeta{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}

	issued, err := h.authLogic.Login(c.Request.Context(), attempt, meta)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.Err2FARequired):
			// Intermediate state, not a denial: the client re-prompts for
			// the code without re-entering the password.
			c.JSON(http.StatusAccepted, gin.H{"success": false, "requires_2fa": true})
		case errors.Is(err, domainErrors.ErrInvalid2FACode):
			body := errorBody(msgLoginFailed)
			body["requires_2fa"] = true
			c.JSON(http.StatusUnauthorized, body)
		case errors.Is(err, domainErrors.ErrChallengeRequired), errors.Is(err, domainErrors.ErrInvalidChallenge):
			body := errorBody(msgLoginFailed)
			body["requires_captcha"] = true
			c.JSON(http.StatusForbidden, body)
		case errors.Is(err, domainErrors.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, errorBody(msgLoginFailed))
		case domainErrors.IsRetryable(err):
			c.JSON(http.StatusServiceUnavailable, errorBody(msgUnavailable))
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorBody(msgLoginFailed))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"session_token": issued.Token,
		"expires_at":    issued.ExpiresAt,
		"user":          issued.Admin,
	})
}

// VerifySession handles GET /api/v1/auth/verify. The bearer middleware has
// already resolved the session.
func (h *AuthHandler) VerifySession(c *gin.Context) {
	admin := currentAdmin(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": admin})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := currentToken(c)
	if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
		if domainErrors.IsRetryable(err) {
			c.JSON(http.StatusServiceUnavailable, errorBody(msgUnavailable))
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody(msgLoginFailed))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetupTwoFactor handles POST /api/v1/auth/2fa/setup.
func (h *AuthHandler) SetupTwoFactor(c *gin.Context) {
	admin := currentAdmin(c)
	enrollment, err := h.enrollments.Begin(c.Request.Context(), admin.ID)
	if err != nil {
		h.respondEnrollmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"secret":           enrollment.Secret,
		"provisioning_url": enrollment.ProvisioningURL,
	})
}

// VerifyTwoFactor handles POST /api/v1/auth/2fa/verify.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgLoginFailed))
		return
	}
	admin := currentAdmin(c)
	if err := h.enrollments.Confirm(c.Request.Context(), admin.ID, req.TOTPCode); err != nil {
		h.respondEnrollmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DisableTwoFactor handles POST /api/v1/auth/2fa/disable.
func (h *AuthHandler) DisableTwoFactor(c *gin.Context) {
	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgLoginFailed))
		return
	}
	admin := currentAdmin(c)
	if err := h.enrollments.Disable(c.Request.Context(), admin.ID, req.TOTPCode); err != nil {
		h.respondEnrollmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) respondEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainErrors.ErrInvalid2FACode):
		c.JSON(http.StatusUnauthorized, errorBody(msgLoginFailed))
	case errors.Is(err, domainErrors.Err2FAAlreadyEnabled),
		errors.Is(err, domainErrors.Err2FANotEnabled),
		errors.Is(err, domainErrors.ErrNoPendingSecret):
		c.JSON(http.StatusConflict, errorBody(msgLoginFailed))
	case domainErrors.IsRetryable(err):
		c.JSON(http.StatusServiceUnavailable, errorBody(msgUnavailable))
	default:
		h.logger.Error("enrollment operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody(msgLoginFailed))
	}
}
