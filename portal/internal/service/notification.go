package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

func overdueMessage(equipmentName string, endDate time.Time) string {
	return fmt.Sprintf("Equipment '%s' is overdue since %s", equipmentName, endDate.Format(time.DateOnly))
}

// CheckOverdue flags issued loans whose end date has passed.
func (s *Service) CheckOverdue(ctx context.Context) ([]model.Notification, error) {
	created, err := s.repo.FlagOverdue(ctx, truncateDay(s.now()), overdueMessage)
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		s.log.Info("overdue loans flagged", zap.Int("count", len(created)))
	}
	return created, nil
}

func (s *Service) ListOverdueNotifications(ctx context.Context) ([]model.Notification, error) {
	return s.repo.ListUnreadNotifications(ctx)
}

// RunOverdueChecker checks once immediately and then on every tick until ctx is done.
// A failed check is logged and retried on the next tick.
func (s *Service) RunOverdueChecker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.CheckOverdue(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("CheckOverdue", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
