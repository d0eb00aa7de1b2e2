package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/stats/internal/service"
)

type saveEvent func(ctx context.Context, event kafka.LifecycleEvent) error

type Consumer struct {
	saveEventHandler saveEvent
	log              *zap.Logger
	ready            chan struct{}
	retryDelay       time.Duration
}

type ConsumerOption func(c *Consumer)

// WithRetryDelay sets the pause before a session is given up after a storage failure.
func WithRetryDelay(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.retryDelay = d
	}
}

func NewConsumer(save saveEvent, log *zap.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		saveEventHandler: save,
		log:              log.Named("consumer"),
		ready:            make(chan struct{}),
		retryDelay:       time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready is closed once the first session is set up.
func (consumer *Consumer) Ready() <-chan struct{} {
	return consumer.ready
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	select {
	case <-consumer.ready:
	default:
		close(consumer.ready)
	}
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim stores every event. Undecodable or malformed messages are
// marked and skipped. A storage failure ends the session without marking, so
// the group resumes from the failed offset.
func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event kafka.LifecycleEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				consumer.log.Error("json.Unmarshal", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.saveEventHandler(session.Context(), event); err != nil {
				consumer.log.Error("consumer.saveEventHandler", zap.Error(err), zap.Int64("offset", message.Offset))
				if errors.Is(err, service.ErrMalformedEvent) {
					session.MarkMessage(message, "")
					continue
				}
				select {
				case <-session.Context().Done():
				case <-time.After(consumer.retryDelay):
				}
				return errors.Wrapf(err, "save event at offset %d", message.Offset)
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
