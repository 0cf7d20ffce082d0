package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeUserRegistered = "user.registered"
	TypeUserFollowed   = "user.followed"
	TypeUserUnfollowed = "user.unfollowed"
)

// Event is the payload published for the notification pipeline.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	TargetID  string    `json:"target_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits user lifecycle events to Kafka. A nil *Publisher is a valid
// no-op so callers never branch on whether eventing is enabled.
type Publisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewPublisher(brokers []string, topic string, log *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
		log: log,
	}
}

// Publish is fire-and-forget; failures are logged, never surfaced.
func (p *Publisher) Publish(ctx context.Context, e Event) {
	if p == nil {
		return
	}
	e.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Warn("marshal event", zap.String("type", e.Type), zap.Error(err))
		return
	}
	msg := kafka.Message{Key: []byte(e.UserID), Value: payload}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
