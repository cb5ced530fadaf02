package captcha

import (
	"context"

	"go.uber.org/zap"

	domainService "github.com/Modoufinance/healthyimc-sub001/internal/domain/service"
)

// StubProvider accepts any non-empty token. Used when the captcha provider
// is disabled in configuration (local development).
type StubProvider struct {
	logger *zap.Logger
}

func NewStubProvider(logger *zap.Logger) domainService.ChallengeProvider {
	return &StubProvider{logger: logger.Named("stub_captcha_provider")}
}

func (p *StubProvider) Verify(_ context.Context, token, _ string) (bool, error) {
	if token == "" {
		return false, nil
	}
	p.logger.Debug("captcha verification stubbed out, accepting token")
	return true, nil
}

var _ domainService.ChallengeProvider = (*StubProvider)(nil)
