package service

import (
	"encoding/json"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
)

var ErrEventDropped = errors.New("producer queue is full, event dropped")

type EventLog interface {
	Log(ev kafka.LifecycleEvent) error
}

type eventLog struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewEventLog publishes lifecycle events through producer. Delivery errors are
// logged and dropped.
func NewEventLog(producer sarama.AsyncProducer, topic string, log *zap.Logger) *eventLog {
	log = log.Named("events")
	go func() {
		for err := range producer.Errors() {
			log.Warn("publish lifecycle event", zap.Error(err))
		}
	}()
	return &eventLog{
		producer: producer,
		topic:    topic,
	}
}

func (l *eventLog) Log(ev kafka.LifecycleEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(ev.EquipmentID, 10)),
		Value: sarama.ByteEncoder(data),
	}
	// never block a committed transition on a stalled broker
	select {
	case l.producer.Input() <- msg:
		return nil
	default:
		return errors.Wrapf(ErrEventDropped, "event %s", ev.EventID)
	}
}

type nopEventLog struct{}

func (nopEventLog) Log(kafka.LifecycleEvent) error { return nil }
