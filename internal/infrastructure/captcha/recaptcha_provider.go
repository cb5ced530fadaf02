package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	domainService "github.com/Modoufinance/healthyimc-sub001/internal/domain/service"
)

// recaptchaProvider verifies challenge tokens against the reCAPTCHA
// siteverify endpoint.
type recaptchaProvider struct {
	logger    *zap.Logger
	secretKey string
	verifyURL string
	client    *http.Client
}

// NewRecaptchaProvider creates the production ChallengeProvider.
func NewRecaptchaProvider(cfg config.CaptchaConfig, logger *zap.Logger) domainService.ChallengeProvider {
	return &recaptchaProvider{
		logger:    logger.Named("recaptcha_provider"),
		secretKey: cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

func (p *recaptchaProvider) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", p.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode siteverify response: %w", err)
	}
	if !body.Success {
		p.logger.Debug("challenge token rejected by provider",
			zap.Strings("error_codes", body.ErrorCodes))
	}
	return body.Success, nil
}

var _ domainService.ChallengeProvider = (*recaptchaProvider)(nil)
