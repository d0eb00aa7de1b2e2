package handler_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/stats/internal/handler"
	"github.com/Astemirdum/equipment-lending/stats/internal/service"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func lifecycleMessage(t *testing.T, offset int64, ev kafka.LifecycleEvent) *sarama.ConsumerMessage {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Offset: offset, Value: data}
}

func TestConsumer_ConsumeClaim(t *testing.T) {
	t.Parallel()
	good := kafka.NewLifecycleEvent(lifecycle.ActionIssue, lifecycle.StatusApproved, lifecycle.StatusIssued)
	good.RequestID, good.EquipmentID, good.Quantity = 1, 2, 3

	var saved []kafka.LifecycleEvent
	save := func(_ context.Context, ev kafka.LifecycleEvent) error {
		if ev.RequestID == 0 {
			return service.ErrMalformedEvent
		}
		saved = append(saved, ev)
		return nil
	}

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	claim.messages <- lifecycleMessage(t, 1, good)
	claim.messages <- &sarama.ConsumerMessage{Offset: 2, Value: []byte("{not json")}
	claim.messages <- &sarama.ConsumerMessage{Offset: 3, Value: []byte(`{"eventId":"x"}`)}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	consumer := handler.NewConsumer(save, zap.NewNop())
	require.NoError(t, consumer.Setup(session))
	require.NoError(t, consumer.Setup(session))
	<-consumer.Ready()

	require.NoError(t, consumer.ConsumeClaim(session, claim))
	require.Len(t, saved, 1)
	require.Equal(t, good.EventID, saved[0].EventID)
	require.Equal(t, []int64{1, 2, 3}, session.marked)
}

// A storage failure must not let a later offset be committed past it.
func TestConsumer_ConsumeClaim_StorageFailure(t *testing.T) {
	t.Parallel()
	first := kafka.NewLifecycleEvent(lifecycle.ActionReturn, lifecycle.StatusIssued, lifecycle.StatusReturned)
	first.RequestID, first.EquipmentID = 1, 2
	second := kafka.NewLifecycleEvent(lifecycle.ActionCreate, "", lifecycle.StatusPending)
	second.RequestID, second.EquipmentID = 2, 2

	down := true
	var saved []string
	save := func(_ context.Context, ev kafka.LifecycleEvent) error {
		if down {
			return errors.New("db down")
		}
		saved = append(saved, ev.EventID)
		return nil
	}
	consumer := handler.NewConsumer(save, zap.NewNop(), handler.WithRetryDelay(0))

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- lifecycleMessage(t, 1, first)
	claim.messages <- lifecycleMessage(t, 2, second)
	session := &fakeSession{ctx: context.Background()}

	err := consumer.ConsumeClaim(session, claim)
	require.Error(t, err)
	require.Empty(t, session.marked)
	require.Empty(t, saved)

	// the group resumes from the last committed offset
	down = false
	redelivered := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 2)}
	redelivered.messages <- lifecycleMessage(t, 1, first)
	redelivered.messages <- lifecycleMessage(t, 2, second)
	close(redelivered.messages)
	session = &fakeSession{ctx: context.Background()}

	require.NoError(t, consumer.ConsumeClaim(session, redelivered))
	require.Equal(t, []int64{1, 2}, session.marked)
	require.Equal(t, []string{first.EventID, second.EventID}, saved)
}
