// Package lifecycle holds the borrow-request state machine shared by the
// portal backend and the console client.
package lifecycle

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusIssued   Status = "ISSUED"
	StatusReturned Status = "RETURNED"
)

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusReturned
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusIssued, StatusReturned:
		return true
	}
	return false
}

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleStaff || r == RoleAdmin
}

type Action string

const (
	ActionCreate  Action = "create"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionIssue   Action = "issue"
	ActionReturn  Action = "return"
)

var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrForbidden         = errors.New("role is not allowed to perform this action")
	ErrCommentRequired   = errors.New("rejection requires a comment")
	ErrUnavailable       = errors.New("equipment is not available at the moment")
	ErrInsufficientStock = errors.New("not enough available items to issue now")
	ErrStockInvariant    = errors.New("available quantity out of range")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidDates      = errors.New("start date must not be after end date")
	ErrEquipmentRequired = errors.New("equipment is required")
	ErrActiveRequests    = errors.New("equipment has pending, approved or issued requests")
)

type edge struct {
	from   Status
	action Action
}

var transitions = map[edge]Status{
	{StatusPending, ActionApprove}: StatusApproved,
	{StatusPending, ActionReject}:  StatusRejected,
	{StatusApproved, ActionIssue}:  StatusIssued,
	{StatusIssued, ActionReturn}:   StatusReturned,
}

// Next returns the status reached by applying action in state from.
func Next(from Status, action Action) (Status, error) {
	to, ok := transitions[edge{from, action}]
	if !ok {
		return from, errors.Wrapf(ErrIllegalTransition, "%s from %s", action, from)
	}
	return to, nil
}

// Enabled is the rendering guard: an action is offered only in its source state.
func Enabled(status Status, action Action) bool {
	_, ok := transitions[edge{status, action}]
	return ok
}

// Allowed reports whether role may perform action at all.
func Allowed(role Role, action Action) bool {
	switch action {
	case ActionCreate:
		return role == RoleStudent || role == RoleStaff
	case ActionApprove, ActionReject, ActionIssue, ActionReturn:
		return role == RoleStaff || role == RoleAdmin
	}
	return false
}

// CanManageCatalog reports whether role may create, update or delete equipment.
func CanManageCatalog(role Role) bool {
	return role == RoleAdmin
}

type Stock struct {
	Total     int `json:"totalQuantity"`
	Available int `json:"availableQuantity"`
}

// Issued is the number of units currently handed out.
func (s Stock) Issued() int {
	return s.Total - s.Available
}

func (s Stock) Validate() error {
	if s.Available < 0 || s.Available > s.Total {
		return errors.Wrapf(ErrStockInvariant, "available=%d total=%d", s.Available, s.Total)
	}
	return nil
}

// Resize changes the total while keeping the issued units constant.
func (s Stock) Resize(total int) (Stock, error) {
	if total < 0 {
		return s, errors.Wrap(ErrStockInvariant, "total quantity must be >= 0")
	}
	if total < s.Issued() {
		return s, errors.Wrapf(ErrStockInvariant, "total quantity %d is below %d issued units", total, s.Issued())
	}
	return Stock{Total: total, Available: total - s.Issued()}, nil
}

type Step struct {
	Action   Action
	Role     Role
	Comment  string
	Quantity int
	Stock    Stock
}

// Apply runs one transition: role gate, state gate, preconditions and the
// stock side effect. On error the returned status and stock are the inputs.
func Apply(from Status, st Step) (Status, Stock, error) {
	if !Allowed(st.Role, st.Action) {
		return from, st.Stock, errors.Wrapf(ErrForbidden, "%s cannot %s", st.Role, st.Action)
	}
	to, err := Next(from, st.Action)
	if err != nil {
		return from, st.Stock, err
	}
	if err := st.Stock.Validate(); err != nil {
		return from, st.Stock, err
	}

	stock := st.Stock
	switch st.Action {
	case ActionApprove:
		if stock.Available <= 0 {
			return from, st.Stock, ErrUnavailable
		}
	case ActionReject:
		if strings.TrimSpace(st.Comment) == "" {
			return from, st.Stock, ErrCommentRequired
		}
	case ActionIssue:
		if st.Quantity < 1 {
			return from, st.Stock, ErrInvalidQuantity
		}
		if stock.Available < st.Quantity {
			return from, st.Stock, errors.Wrapf(ErrInsufficientStock, "available=%d requested=%d", stock.Available, st.Quantity)
		}
		stock.Available -= st.Quantity
	case ActionReturn:
		if st.Quantity < 1 {
			return from, st.Stock, ErrInvalidQuantity
		}
		stock.Available += st.Quantity
		if err := stock.Validate(); err != nil {
			return from, st.Stock, err
		}
	}
	return to, stock, nil
}

// ValidateDraft checks the preconditions of a new request.
func ValidateDraft(equipmentID int64, quantity int, start, end time.Time) error {
	if equipmentID <= 0 {
		return ErrEquipmentRequired
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if start.IsZero() || end.IsZero() || start.After(end) {
		return ErrInvalidDates
	}
	return nil
}

// CheckDeletable refuses deletion while any referencing request is still active.
func CheckDeletable(statuses []Status) error {
	active := 0
	for _, s := range statuses {
		if !s.Terminal() {
			active++
		}
	}
	if active > 0 {
		return errors.Wrapf(ErrActiveRequests, "%d active", active)
	}
	return nil
}
