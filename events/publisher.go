// Package events publishes issued challenges and audit records to a
// watermill message bus, so delivery workers and log shippers can consume
// them out of process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MrEthical07/credguard"
)

const (
	// DefaultChallengeTopic carries issued one-time codes for delivery.
	DefaultChallengeTopic = "credguard.challenge.issued"
	// DefaultAuditTopic carries audit records.
	DefaultAuditTopic = "credguard.audit"
)

// ChallengeMessage is the payload published for each issued code.
type ChallengeMessage struct {
	Flow      string    `json:"flow"`
	IP        string    `json:"ip"`
	Username  string    `json:"username,omitempty"`
	Code      string    `json:"code"`
	ExpiresIn int64     `json:"expires_in_seconds"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Publisher implements credguard.ChallengeNotifier and credguard.AuditSink
// on a watermill message.Publisher.
type Publisher struct {
	publisher      message.Publisher
	challengeTopic string
	auditTopic     string
	logger         *slog.Logger
}

type Option func(*Publisher)

func WithChallengeTopic(topic string) Option {
	return func(p *Publisher) { p.challengeTopic = topic }
}

func WithAuditTopic(topic string) Option {
	return func(p *Publisher) { p.auditTopic = topic }
}

// WithLogger sets where audit publish failures are reported.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(publisher message.Publisher, opts ...Option) *Publisher {
	p := &Publisher{
		publisher:      publisher,
		challengeTopic: DefaultChallengeTopic,
		auditTopic:     DefaultAuditTopic,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NotifyChallenge publishes c on the challenge topic.
func (p *Publisher) NotifyChallenge(ctx context.Context, c credguard.Challenge) error {
	payload, err := json.Marshal(ChallengeMessage{
		Flow:      string(c.Flow),
		IP:        c.IP,
		Username:  c.Username,
		Code:      c.Code,
		ExpiresIn: int64(c.ExpiresIn / time.Second),
		IssuedAt:  c.IssuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("flow", string(c.Flow))

	if err := p.publisher.Publish(p.challengeTopic, msg); err != nil {
		return fmt.Errorf("failed to publish challenge: %w", err)
	}
	return nil
}

// Emit publishes event on the audit topic. Failures are logged; the audit
// dispatcher has no error path.
func (p *Publisher) Emit(ctx context.Context, event credguard.AuditEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal audit event", "event_type", event.EventType, "error", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType)
	msg.Metadata.Set("flow", event.Flow)

	if err := p.publisher.Publish(p.auditTopic, msg); err != nil {
		p.logger.WarnContext(ctx, "publish audit event", "event_type", event.EventType, "error", err)
	}
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.publisher.Close()
}
