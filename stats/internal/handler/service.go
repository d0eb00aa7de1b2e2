package handler

import (
	"context"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	statsModel "github.com/Astemirdum/equipment-lending/stats/internal/model"
	"github.com/Astemirdum/equipment-lending/stats/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type StatsService interface {
	GetStats(ctx context.Context) (statsModel.StatsInfo, error)
	SaveEvent(ctx context.Context, event kafka.LifecycleEvent) error
}

var _ StatsService = (*service.Service)(nil)
