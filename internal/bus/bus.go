// Package bus provides event bus implementations for Veritas.
package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/veritas/internal/domain"
)

// Bus errors.
var (
	ErrClosed     = errors.New("bus is closed")
	ErrEmptyTopic = errors.New("topic is required")
)

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel", "":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		nb, err := NewNATSBus(cfg)
		if err != nil {
			return nil, err
		}
		return nb, nil

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// ReplyToKey is the metadata key carrying the reply topic of a Request.
const ReplyToKey = "reply_to"

// Reply answers msg if it was sent with Request. It is a no-op otherwise.
func Reply(ctx context.Context, b domain.EventBus, msg *domain.Message, payload []byte) error {
	to := msg.Metadata[ReplyToKey]
	if to == "" {
		return nil
	}
	return b.Publish(ctx, to, payload)
}

func newMessage(topic string, payload []byte) *domain.Message {
	return &domain.Message{
		ID:        uuid.New().String(),
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
}
