package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

const (
	LifecycleTopic     = "lending.lifecycle"
	StatsConsumerGroup = "lending-stats"

	rejoinBackoff = 2 * time.Second
)

type Config struct {
	Addrs []string `yaml:"addrs" envconfig:"KAFKA_ADDRS"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

// LifecycleEvent is published after every committed borrow-request transition.
type LifecycleEvent struct {
	EventID     string           `json:"eventId"`
	Timestamp   time.Time        `json:"timestamp"`
	RequestID   int64            `json:"requestId"`
	EquipmentID int64            `json:"equipmentId"`
	UserID      int64            `json:"userId"`
	ActorID     int64            `json:"actorId"`
	Action      lifecycle.Action `json:"action"`
	From        lifecycle.Status `json:"from,omitempty"`
	To          lifecycle.Status `json:"to"`
	Quantity    int              `json:"quantity"`
}

func NewLifecycleEvent(action lifecycle.Action, from, to lifecycle.Status) LifecycleEvent {
	return LifecycleEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		From:      from,
		To:        to,
	}
}

func NewAsyncProducer(cfg Config) (sarama.AsyncProducer, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Producer.RequiredAcks = sarama.WaitForLocal
	defaultCfg.Producer.Return.Errors = true
	defaultCfg.Producer.Flush.Frequency = 500 * time.Millisecond

	return sarama.NewAsyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	defaultCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// CreateTopics creates the lifecycle topic if it is missing.
func CreateTopics(cfg Config) error {
	admin, err := sarama.NewClusterAdmin(cfg.Addrs, sarama.NewConfig())
	if err != nil {
		return errors.Wrap(err, "sarama.NewClusterAdmin")
	}
	defer admin.Close()

	err = admin.CreateTopic(LifecycleTopic, &sarama.TopicDetail{NumPartitions: 1, ReplicationFactor: 1}, false)
	if err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		var topicErr *sarama.TopicError
		if errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists {
			return nil
		}
		return err
	}
	return nil
}

// Consume blocks, rejoining the group after every rebalance until ctx is done.
func Consume(ctx context.Context, group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, log *zap.Logger, topics ...string) {
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			log.Error("group.Consume", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(rejoinBackoff):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
