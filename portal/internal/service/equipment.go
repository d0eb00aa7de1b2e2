package service

import (
	"context"
	"strings"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/portal/internal/errs"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

func (s *Service) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	return s.repo.ListEquipment(ctx)
}

func (s *Service) GetEquipment(ctx context.Context, id int64) (model.Equipment, error) {
	return s.repo.GetEquipment(ctx, id)
}

// CreateEquipment starts the catalog item with every unit available.
func (s *Service) CreateEquipment(ctx context.Context, in model.EquipmentInput) (model.Equipment, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.Equipment{}, errs.ErrNameRequired
	}
	if in.TotalQuantity < 0 {
		return model.Equipment{}, lifecycle.ErrStockInvariant
	}
	return s.repo.CreateEquipment(ctx, in)
}

// UpdateEquipment keeps the number of issued units constant while the total changes.
func (s *Service) UpdateEquipment(ctx context.Context, id int64, in model.EquipmentInput) (model.Equipment, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.Equipment{}, errs.ErrNameRequired
	}
	return s.repo.UpdateEquipment(ctx, id, in, func(cur lifecycle.Stock) (lifecycle.Stock, error) {
		return cur.Resize(in.TotalQuantity)
	})
}

func (s *Service) DeleteEquipment(ctx context.Context, id int64) error {
	return s.repo.DeleteEquipment(ctx, id, lifecycle.CheckDeletable)
}
