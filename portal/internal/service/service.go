package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/auth"
	portalRepo "github.com/Astemirdum/equipment-lending/portal/internal/repository"
)

type Service struct {
	log     *zap.Logger
	repo    portalRepo.Repository
	events  EventLog
	authCfg auth.Config
	now     func() time.Time
}

type Option func(*Service)

func WithEventLog(events EventLog) Option {
	return func(s *Service) {
		s.events = events
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo portalRepo.Repository, authCfg auth.Config, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:     log.Named("service"),
		repo:    repo,
		authCfg: authCfg,
		events:  nopEventLog{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
