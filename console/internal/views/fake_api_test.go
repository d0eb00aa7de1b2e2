package views_test

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/Astemirdum/equipment-lending/console/internal/api"
	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

// fakeAPI is an in-memory portal that runs the same lifecycle rules as the server.
type fakeAPI struct {
	mu        sync.Mutex
	role      lifecycle.Role
	userID    int64
	equipment map[int64]*model.Equipment
	requests  map[int64]*model.BorrowRequest
	users     map[int64]model.User
	overdue   []model.Notification
	nextID    int64
	calls     map[string]int
	fail      map[string]error
}

func newFakeAPI(role lifecycle.Role, userID int64) *fakeAPI {
	return &fakeAPI{
		role:      role,
		userID:    userID,
		equipment: map[int64]*model.Equipment{},
		requests:  map[int64]*model.BorrowRequest{},
		users:     map[int64]model.User{},
		nextID:    100,
		calls:     map[string]int{},
		fail:      map[string]error{},
	}
}

func (f *fakeAPI) as(role lifecycle.Role, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.role, f.userID = role, userID
}

func (f *fakeAPI) addEquipment(name string, total, available int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.equipment[f.nextID] = &model.Equipment{ID: f.nextID, Name: name, TotalQuantity: total, AvailableQuantity: available}
	return f.nextID
}

func (f *fakeAPI) addRequest(userID, equipmentID int64, qty int, status lifecycle.Status) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.requests[f.nextID] = &model.BorrowRequest{ID: f.nextID, UserID: userID, EquipmentID: equipmentID, QuantityRequested: qty, Status: status}
	return f.nextID
}

func (f *fakeAPI) setStatus(id int64, status lifecycle.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[id].Status = status
}

func (f *fakeAPI) failNext(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) stock(id int64) lifecycle.Stock {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.equipment[id]
	return lifecycle.Stock{Total: e.TotalQuantity, Available: e.AvailableQuantity}
}

func (f *fakeAPI) status(id int64) lifecycle.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[id].Status
}

// enter must be called with mu held.
func (f *fakeAPI) enter(method string) error {
	f.calls[method]++
	if err, ok := f.fail[method]; ok {
		delete(f.fail, method)
		return err
	}
	return nil
}

func toAPIError(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrForbidden):
		return &api.Error{Kind: api.KindAuthorization, Status: http.StatusForbidden, Message: api.MsgAccessDenied}
	case errors.Is(err, lifecycle.ErrIllegalTransition), errors.Is(err, lifecycle.ErrUnavailable),
		errors.Is(err, lifecycle.ErrInsufficientStock), errors.Is(err, lifecycle.ErrActiveRequests):
		return &api.Error{Kind: api.KindConflict, Status: http.StatusConflict, Message: err.Error()}
	}
	return &api.Error{Kind: api.KindValidation, Status: http.StatusBadRequest, Message: err.Error()}
}

func (f *fakeAPI) snapshot(r *model.BorrowRequest) model.BorrowRequest {
	out := *r
	if e, ok := f.equipment[r.EquipmentID]; ok {
		eq := *e
		out.Equipment = &eq
	}
	return out
}

func (f *fakeAPI) list(keep func(r *model.BorrowRequest) bool) []model.BorrowRequest {
	var out []model.BorrowRequest
	for _, r := range f.requests {
		if keep(r) {
			out = append(out, f.snapshot(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeAPI) ListEquipment(context.Context) ([]model.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListEquipment"); err != nil {
		return nil, err
	}
	var out []model.Equipment
	for _, e := range f.equipment {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAPI) CreateEquipment(_ context.Context, in model.EquipmentInput) (model.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateEquipment"); err != nil {
		return model.Equipment{}, err
	}
	f.nextID++
	e := &model.Equipment{ID: f.nextID, Name: in.Name, Category: in.Category, TotalQuantity: in.TotalQuantity, AvailableQuantity: in.TotalQuantity}
	f.equipment[e.ID] = e
	return *e, nil
}

func (f *fakeAPI) UpdateEquipment(_ context.Context, id int64, in model.EquipmentInput) (model.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateEquipment"); err != nil {
		return model.Equipment{}, err
	}
	e := f.equipment[id]
	st, err := lifecycle.Stock{Total: e.TotalQuantity, Available: e.AvailableQuantity}.Resize(in.TotalQuantity)
	if err != nil {
		return model.Equipment{}, toAPIError(err)
	}
	e.Name, e.TotalQuantity, e.AvailableQuantity = in.Name, st.Total, st.Available
	return *e, nil
}

func (f *fakeAPI) DeleteEquipment(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteEquipment"); err != nil {
		return err
	}
	for _, r := range f.requests {
		if r.EquipmentID == id {
			return &api.Error{Kind: api.KindConflict, Status: http.StatusConflict, Message: api.MsgDeleteHasHistory}
		}
	}
	delete(f.equipment, id)
	return nil
}

func (f *fakeAPI) ListPending(context.Context) ([]model.BorrowRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListPending"); err != nil {
		return nil, err
	}
	return f.list(func(r *model.BorrowRequest) bool {
		return r.Status == lifecycle.StatusPending || r.Status == lifecycle.StatusApproved
	}), nil
}

func (f *fakeAPI) ListIssued(context.Context) ([]model.BorrowRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListIssued"); err != nil {
		return nil, err
	}
	return f.list(func(r *model.BorrowRequest) bool { return r.Status == lifecycle.StatusIssued }), nil
}

func (f *fakeAPI) ListMine(context.Context) ([]model.BorrowRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMine"); err != nil {
		return nil, err
	}
	return f.list(func(r *model.BorrowRequest) bool { return r.UserID == f.userID }), nil
}

func (f *fakeAPI) CreateBorrowRequest(_ context.Context, in model.CreateBorrowRequest) (model.BorrowRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateBorrowRequest"); err != nil {
		return model.BorrowRequest{}, err
	}
	if err := lifecycle.ValidateDraft(in.EquipmentID, in.Quantity, in.StartDate, in.EndDate); err != nil {
		return model.BorrowRequest{}, toAPIError(err)
	}
	f.nextID++
	r := &model.BorrowRequest{ID: f.nextID, UserID: f.userID, EquipmentID: in.EquipmentID, QuantityRequested: in.Quantity,
		StartDate: in.StartDate, EndDate: in.EndDate, Status: lifecycle.StatusPending}
	f.requests[r.ID] = r
	return f.snapshot(r), nil
}

func (f *fakeAPI) transition(method string, id int64, action lifecycle.Action, comment string) (model.BorrowRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(method); err != nil {
		return model.BorrowRequest{}, err
	}
	r := f.requests[id]
	e := f.equipment[r.EquipmentID]
	to, st, err := lifecycle.Apply(r.Status, lifecycle.Step{
		Action:   action,
		Role:     f.role,
		Comment:  comment,
		Quantity: r.QuantityRequested,
		Stock:    lifecycle.Stock{Total: e.TotalQuantity, Available: e.AvailableQuantity},
	})
	if err != nil {
		return model.BorrowRequest{}, toAPIError(err)
	}
	r.Status, e.AvailableQuantity = to, st.Available
	if strings.TrimSpace(comment) != "" {
		r.AdminComment = comment
	}
	return f.snapshot(r), nil
}

func (f *fakeAPI) Approve(_ context.Context, id int64, comment string) (model.BorrowRequest, error) {
	return f.transition("Approve", id, lifecycle.ActionApprove, comment)
}

func (f *fakeAPI) Reject(_ context.Context, id int64, comment string) (model.BorrowRequest, error) {
	return f.transition("Reject", id, lifecycle.ActionReject, comment)
}

func (f *fakeAPI) Issue(_ context.Context, id int64) (model.BorrowRequest, error) {
	return f.transition("Issue", id, lifecycle.ActionIssue, "")
}

func (f *fakeAPI) Return(_ context.Context, id int64) (model.BorrowRequest, error) {
	return f.transition("Return", id, lifecycle.ActionReturn, "")
}

func (f *fakeAPI) ListUsers(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListUsers"); err != nil {
		return nil, err
	}
	var out []model.User
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAPI) GetUser(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetUser"); err != nil {
		return model.User{}, err
	}
	u, ok := f.users[id]
	if !ok {
		return model.User{}, &api.Error{Kind: api.KindNotFound, Status: http.StatusNotFound, Message: "not found"}
	}
	return u, nil
}

func (f *fakeAPI) ListOverdue(context.Context) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListOverdue"); err != nil {
		return nil, err
	}
	return append([]model.Notification(nil), f.overdue...), nil
}

func (f *fakeAPI) CheckOverdue(context.Context) (model.OverdueCheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CheckOverdue"); err != nil {
		return model.OverdueCheckResult{}, err
	}
	return model.OverdueCheckResult{Flagged: len(f.overdue)}, nil
}

// script is a Prompter fed from a fixed list of answers. Running out of
// answers behaves like a cancel.
type script struct {
	mu       sync.Mutex
	answers  []string
	confirms []bool
	asked    []string
}

func (s *script) Prompt(label, def string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, label)
	if len(s.answers) == 0 {
		return "", false
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	if a == "" {
		a = def
	}
	return a, true
}

func (s *script) Confirm(question string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, question)
	if len(s.confirms) == 0 {
		return false
	}
	c := s.confirms[0]
	s.confirms = s.confirms[1:]
	return c
}
