package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/portal/internal/errs"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
	portalRepo "github.com/Astemirdum/equipment-lending/portal/internal/repository"
)

// memRepo keeps rows in maps and serializes every call on one mutex, which
// stands in for the row locks of the postgres repository.
type memRepo struct {
	mu            sync.Mutex
	seq           int64
	equipment     map[int64]model.Equipment
	requests      map[int64]model.BorrowRequest
	users         map[int64]model.User
	notifications []model.Notification
}

var _ portalRepo.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		equipment: map[int64]model.Equipment{},
		requests:  map[int64]model.BorrowRequest{},
		users:     map[int64]model.User{},
	}
}

func (r *memRepo) id() int64 {
	r.seq++
	return r.seq
}

func (r *memRepo) ListEquipment(context.Context) ([]model.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Equipment, 0, len(r.equipment))
	for _, eq := range r.equipment {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) GetEquipment(_ context.Context, id int64) (model.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eq, ok := r.equipment[id]
	if !ok {
		return model.Equipment{}, errs.ErrNotFound
	}
	return eq, nil
}

func (r *memRepo) CreateEquipment(_ context.Context, in model.EquipmentInput) (model.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eq := model.Equipment{
		ID:                   r.id(),
		Name:                 in.Name,
		Category:             in.Category,
		ConditionDescription: in.ConditionDescription,
		Description:          in.Description,
		TotalQuantity:        in.TotalQuantity,
		AvailableQuantity:    in.TotalQuantity,
		CreatedAt:            time.Now(),
	}
	r.equipment[eq.ID] = eq
	return eq, nil
}

func (r *memRepo) UpdateEquipment(_ context.Context, id int64, in model.EquipmentInput, resize portalRepo.ResizeFunc) (model.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eq, ok := r.equipment[id]
	if !ok {
		return model.Equipment{}, errs.ErrNotFound
	}
	stock, err := resize(eq.Stock())
	if err != nil {
		return model.Equipment{}, err
	}
	eq.Name = in.Name
	eq.TotalQuantity, eq.AvailableQuantity = stock.Total, stock.Available
	r.equipment[id] = eq
	return eq, nil
}

func (r *memRepo) DeleteEquipment(_ context.Context, id int64, check portalRepo.DeleteCheckFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.equipment[id]; !ok {
		return errs.ErrNotFound
	}
	var statuses []lifecycle.Status
	for _, req := range r.requests {
		if req.EquipmentID == id {
			statuses = append(statuses, req.Status)
		}
	}
	if err := check(statuses); err != nil {
		return err
	}
	if len(statuses) > 0 {
		return errs.ErrHasHistory
	}
	delete(r.equipment, id)
	return nil
}

func (r *memRepo) CreateBorrowRequest(_ context.Context, userID int64, req model.CreateBorrowRequest) (model.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eq, ok := r.equipment[req.EquipmentID]
	if !ok {
		return model.BorrowRequest{}, errs.ErrNotFound
	}
	br := model.BorrowRequest{
		ID:                r.id(),
		UserID:            userID,
		EquipmentID:       req.EquipmentID,
		QuantityRequested: req.Quantity,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Status:            lifecycle.StatusPending,
	}
	r.requests[br.ID] = br
	br.Equipment = &eq
	return br, nil
}

func (r *memRepo) GetBorrowRequest(_ context.Context, id int64) (model.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	br, ok := r.requests[id]
	if !ok {
		return model.BorrowRequest{}, errs.ErrNotFound
	}
	return br, nil
}

func (r *memRepo) ListBorrowRequests(_ context.Context, filter portalRepo.BorrowFilter) ([]model.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.BorrowRequest
	for _, br := range r.requests {
		if filter.UserID != 0 && br.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, br.Status) {
			continue
		}
		out = append(out, br)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsStatus(list []lifecycle.Status, s lifecycle.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *memRepo) Transition(_ context.Context, id int64, apply portalRepo.TransitionFunc) (model.BorrowRequest, lifecycle.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	br, ok := r.requests[id]
	if !ok {
		return model.BorrowRequest{}, "", errs.ErrNotFound
	}
	eq := r.equipment[br.EquipmentID]
	next, err := apply(model.Transition{Request: br, Stock: eq.Stock()})
	if err != nil {
		return model.BorrowRequest{}, br.Status, err
	}
	eq.AvailableQuantity = next.Stock.Available
	r.equipment[eq.ID] = eq
	r.requests[id] = next.Request
	out := next.Request
	out.Equipment = &eq
	return out, br.Status, nil
}

func (r *memRepo) CreateUser(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return model.User{}, errs.ErrEmailTaken
		}
	}
	u.ID = r.id()
	r.users[u.ID] = u
	return u, nil
}

func (r *memRepo) GetUser(_ context.Context, id int64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (r *memRepo) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, errs.ErrNotFound
}

func (r *memRepo) ListUsers(context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memRepo) CountUsers(_ context.Context, role lifecycle.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) FlagOverdue(_ context.Context, today time.Time, message portalRepo.OverdueMessageFunc) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var created []model.Notification
	for id, br := range r.requests {
		if br.Status != lifecycle.StatusIssued || br.Overdue || !br.EndDate.Before(today) {
			continue
		}
		br.Overdue = true
		r.requests[id] = br
		n := model.Notification{ID: r.id(), LoanID: id, Message: message(r.equipment[br.EquipmentID].Name, br.EndDate)}
		r.notifications = append(r.notifications, n)
		created = append(created, n)
	}
	return created, nil
}

func (r *memRepo) ListUnreadNotifications(context.Context) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.notifications...), nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []kafka.LifecycleEvent
}

func (e *recordedEvents) Log(ev kafka.LifecycleEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *recordedEvents) actions() []lifecycle.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]lifecycle.Action, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Action)
	}
	return out
}
