package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/stats/internal/model"
	statsRepo "github.com/Astemirdum/equipment-lending/stats/internal/repository"
)

var ErrMalformedEvent = errors.New("malformed lifecycle event")

type Service struct {
	log  *zap.Logger
	repo statsRepo.Repository
}

func NewService(repo statsRepo.Repository, log *zap.Logger) *Service {
	return &Service{
		log:  log,
		repo: repo,
	}
}

// GetStats returns the per-equipment report.
func (s *Service) GetStats(ctx context.Context) (model.StatsInfo, error) {
	return s.repo.GetStats(ctx)
}

// SaveEvent is used by the kafka consumer.
func (s *Service) SaveEvent(ctx context.Context, event kafka.LifecycleEvent) error {
	if event.EventID == "" || event.RequestID == 0 || event.EquipmentID == 0 || event.Action == "" {
		return errors.Wrapf(ErrMalformedEvent, "event %q", event.EventID)
	}
	return s.repo.SaveEvent(ctx, event)
}
