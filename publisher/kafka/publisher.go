// Package kafka publishes ledger notifications to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/token/notification"
	"github.com/xraph/token/plugin"
)

// Default topics.
const (
	DefaultTransferTopic    = "token.transfer"
	DefaultFrozenFundsTopic = "token.frozen_funds"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin        = (*Publisher)(nil)
	_ plugin.OnTransfer    = (*Publisher)(nil)
	_ plugin.OnFrozenFunds = (*Publisher)(nil)
	_ plugin.OnShutdown    = (*Publisher)(nil)
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is a ledger plugin that writes every Transfer and FrozenFunds
// notification to Kafka as JSON, keyed by ledger id.
type Publisher struct {
	writer           MessageWriter
	transferTopic    string
	frozenFundsTopic string
	logger           *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTopics overrides the destination topics. Empty values keep the defaults.
func WithTopics(transfer, frozenFunds string) Option {
	return func(p *Publisher) {
		if transfer != "" {
			p.transferTopic = transfer
		}
		if frozenFunds != "" {
			p.frozenFundsTopic = frozenFunds
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher writing to brokers.
func NewPublisher(brokers []string, opts ...Option) *Publisher {
	return NewWithWriter(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}, opts...)
}

// NewWithWriter creates a publisher over an existing writer. The writer must
// not have a fixed Topic.
func NewWithWriter(w MessageWriter, opts ...Option) *Publisher {
	p := &Publisher{
		writer:           w,
		transferTopic:    DefaultTransferTopic,
		frozenFundsTopic: DefaultFrozenFundsTopic,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "kafka-publisher" }

// OnTransfer implements plugin.OnTransfer.
func (p *Publisher) OnTransfer(ctx context.Context, n notification.Notification) error {
	return p.publish(ctx, p.transferTopic, n)
}

// OnFrozenFunds implements plugin.OnFrozenFunds.
func (p *Publisher) OnFrozenFunds(ctx context.Context, n notification.Notification) error {
	return p.publish(ctx, p.frozenFundsTopic, n)
}

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	return p.writer.Close()
}

func (p *Publisher) publish(ctx context.Context, topic string, n notification.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("kafka: encode notification %s: %w", n.ID, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(n.LedgerID.String()),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("kafka: publish to %s: %w", topic, err)
	}

	p.logger.Debug("notification published",
		"topic", topic,
		"seq", n.Seq,
	)
	return nil
}
