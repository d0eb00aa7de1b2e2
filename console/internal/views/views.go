// Package views renders the console screens and runs their actions against
// the portal API. Every view keeps its own lists, fetched on load and fetched
// again in full after each successful mutation.
package views

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Astemirdum/equipment-lending/console/internal/api"
	"github.com/Astemirdum/equipment-lending/console/internal/model"
)

type API interface {
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	CreateEquipment(ctx context.Context, in model.EquipmentInput) (model.Equipment, error)
	UpdateEquipment(ctx context.Context, id int64, in model.EquipmentInput) (model.Equipment, error)
	DeleteEquipment(ctx context.Context, id int64) error

	ListPending(ctx context.Context) ([]model.BorrowRequest, error)
	ListIssued(ctx context.Context) ([]model.BorrowRequest, error)
	ListMine(ctx context.Context) ([]model.BorrowRequest, error)
	CreateBorrowRequest(ctx context.Context, in model.CreateBorrowRequest) (model.BorrowRequest, error)
	Approve(ctx context.Context, id int64, comment string) (model.BorrowRequest, error)
	Reject(ctx context.Context, id int64, comment string) (model.BorrowRequest, error)
	Issue(ctx context.Context, id int64) (model.BorrowRequest, error)
	Return(ctx context.Context, id int64) (model.BorrowRequest, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)

	ListOverdue(ctx context.Context) ([]model.Notification, error)
	CheckOverdue(ctx context.Context) (model.OverdueCheckResult, error)
}

var _ API = (*api.Client)(nil)

// ErrCancelled is returned when the user backs out of a prompt or confirmation.
var ErrCancelled = errors.New("cancelled")

const dateLayout = "2006-01-02"

func accessDenied() error {
	return &api.Error{Kind: api.KindAuthorization, Message: api.MsgAccessDenied}
}

// settle refetches after a successful mutation. A conflict means the lists
// are stale, so they are refreshed too, but the conflict is still reported.
func settle(ctx context.Context, err error, reload func(context.Context) error) error {
	if err == nil {
		return reload(ctx)
	}
	if api.IsKind(err, api.KindConflict) {
		if rerr := reload(ctx); rerr != nil {
			return fmt.Errorf("%w (refresh failed: %s)", err, rerr)
		}
	}
	return err
}
