package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
	portalRepo "github.com/Astemirdum/equipment-lending/portal/internal/repository"
)

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) CreateBorrowRequest(ctx context.Context, actor auth.Profile, req model.CreateBorrowRequest) (model.BorrowRequest, error) {
	if !lifecycle.Allowed(actor.Role, lifecycle.ActionCreate) {
		return model.BorrowRequest{}, lifecycle.ErrForbidden
	}
	req.StartDate, req.EndDate = truncateDay(req.StartDate), truncateDay(req.EndDate)
	if err := lifecycle.ValidateDraft(req.EquipmentID, req.Quantity, req.StartDate, req.EndDate); err != nil {
		return model.BorrowRequest{}, err
	}
	created, err := s.repo.CreateBorrowRequest(ctx, actor.UserID, req)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	s.publish(actor, lifecycle.ActionCreate, "", created)
	return created, nil
}

// ListPending returns the approval and issue work queue.
func (s *Service) ListPending(ctx context.Context) ([]model.BorrowRequest, error) {
	return s.repo.ListBorrowRequests(ctx, portalRepo.BorrowFilter{
		Statuses: []lifecycle.Status{lifecycle.StatusPending, lifecycle.StatusApproved},
	})
}

func (s *Service) ListIssued(ctx context.Context) ([]model.BorrowRequest, error) {
	return s.repo.ListBorrowRequests(ctx, portalRepo.BorrowFilter{
		Statuses: []lifecycle.Status{lifecycle.StatusIssued},
	})
}

func (s *Service) ListMine(ctx context.Context, actor auth.Profile) ([]model.BorrowRequest, error) {
	return s.repo.ListBorrowRequests(ctx, portalRepo.BorrowFilter{UserID: actor.UserID})
}

func (s *Service) Approve(ctx context.Context, actor auth.Profile, id int64, comment string) (model.BorrowRequest, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionApprove, comment)
}

func (s *Service) Reject(ctx context.Context, actor auth.Profile, id int64, comment string) (model.BorrowRequest, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionReject, comment)
}

func (s *Service) Issue(ctx context.Context, actor auth.Profile, id int64) (model.BorrowRequest, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionIssue, "")
}

func (s *Service) Return(ctx context.Context, actor auth.Profile, id int64) (model.BorrowRequest, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionReturn, "")
}

func (s *Service) transition(ctx context.Context, actor auth.Profile, id int64, action lifecycle.Action, comment string) (model.BorrowRequest, error) {
	if !lifecycle.Allowed(actor.Role, action) {
		return model.BorrowRequest{}, lifecycle.ErrForbidden
	}
	comment = strings.TrimSpace(comment)
	updated, from, err := s.repo.Transition(ctx, id, func(cur model.Transition) (model.Transition, error) {
		to, stock, err := lifecycle.Apply(cur.Request.Status, lifecycle.Step{
			Action:   action,
			Role:     actor.Role,
			Comment:  comment,
			Quantity: cur.Request.QuantityRequested,
			Stock:    cur.Stock,
		})
		if err != nil {
			return cur, err
		}
		next := cur
		next.Request.Status = to
		next.Stock = stock
		if comment != "" && (action == lifecycle.ActionApprove || action == lifecycle.ActionReject) {
			next.Request.AdminComment = comment
		}
		return next, nil
	})
	if err != nil {
		s.log.Debug("transition refused",
			zap.Int64("id", id), zap.String("action", string(action)), zap.Error(err))
		return model.BorrowRequest{}, err
	}
	s.publish(actor, action, from, updated)
	return updated, nil
}

func (s *Service) publish(actor auth.Profile, action lifecycle.Action, from lifecycle.Status, req model.BorrowRequest) {
	ev := kafka.NewLifecycleEvent(action, from, req.Status)
	ev.RequestID = req.ID
	ev.EquipmentID = req.EquipmentID
	ev.UserID = req.UserID
	ev.ActorID = actor.UserID
	ev.Quantity = req.QuantityRequested
	if err := s.events.Log(ev); err != nil {
		s.log.Warn("events.Log", zap.Error(err))
	}
}
