package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
)

// Event types published on the security stream.
const (
	TypeLoginSucceeded    = "auth.admin.login_succeeded"
	TypeLoginFailed       = "auth.admin.login_failed"
	TypeChallengeRequired = "auth.admin.challenge_required"
	TypeSessionRevoked    = "auth.admin.session_revoked"
	TypeTwoFactorEnabled  = "auth.admin.2fa_enabled"
	TypeTwoFactorDisabled = "auth.admin.2fa_disabled"
)

// Event is a security audit event. Payloads never contain passwords, codes
// or raw session tokens.
type Event struct {
	Type      string    `json:"type"`
	Subject   string    `json:"subject"`
	Reason    string    `json:"reason,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits security events. Publishing is best-effort: a broker
// outage must never fail a login.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a Publisher writing to the configured topic.
func NewKafkaPublisher(cfg config.EventsConfig, logger *zap.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
	return &kafkaPublisher{writer: writer, logger: logger.Named("event_publisher")}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal security event", zap.Error(err), zap.String("type", event.Type))
		return
	}
	msg := kafka.Message{Key: []byte(event.Subject), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish security event", zap.Error(err), zap.String("type", event.Type))
	}
}

func (p *kafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

// NopPublisher drops all events. Used when the event stream is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
func (NopPublisher) Close() error                   { return nil }

var (
	_ Publisher = (*kafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
)
