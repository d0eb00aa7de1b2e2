package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/portal/internal/errs"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

// TransitionFunc computes the next snapshot from the locked one.
type TransitionFunc func(cur model.Transition) (model.Transition, error)

// ResizeFunc computes the new stock of an edited equipment row.
type ResizeFunc func(cur lifecycle.Stock) (lifecycle.Stock, error)

// DeleteCheckFunc inspects the statuses of requests referencing the equipment.
type DeleteCheckFunc func(statuses []lifecycle.Status) error

// OverdueMessageFunc renders the notification text of an overdue loan.
type OverdueMessageFunc func(equipmentName string, endDate time.Time) string

type BorrowFilter struct {
	UserID   int64
	Statuses []lifecycle.Status
}

type Repository interface {
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	GetEquipment(ctx context.Context, id int64) (model.Equipment, error)
	CreateEquipment(ctx context.Context, in model.EquipmentInput) (model.Equipment, error)
	UpdateEquipment(ctx context.Context, id int64, in model.EquipmentInput, resize ResizeFunc) (model.Equipment, error)
	DeleteEquipment(ctx context.Context, id int64, check DeleteCheckFunc) error

	CreateBorrowRequest(ctx context.Context, userID int64, req model.CreateBorrowRequest) (model.BorrowRequest, error)
	GetBorrowRequest(ctx context.Context, id int64) (model.BorrowRequest, error)
	ListBorrowRequests(ctx context.Context, filter BorrowFilter) ([]model.BorrowRequest, error)
	Transition(ctx context.Context, id int64, apply TransitionFunc) (model.BorrowRequest, lifecycle.Status, error)

	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	CountUsers(ctx context.Context, role lifecycle.Role) (int, error)

	FlagOverdue(ctx context.Context, today time.Time, message OverdueMessageFunc) ([]model.Notification, error)
	ListUnreadNotifications(ctx context.Context) ([]model.Notification, error)
}

type repository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	equipmentTableName    = `equipment`
	borrowTableName       = `borrow_request`
	usersTableName        = `users`
	notificationTableName = `notification`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapNoRows turns an empty result into errs.ErrNotFound.
func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

// mapIntegrity turns a constraint violation raised by a concurrent change into errs.ErrConflict.
func mapIntegrity(err error) error {
	switch pgCode(err) {
	case pgerrcode.CheckViolation, pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return errors.Wrap(errs.ErrConflict, err.Error())
	}
	return err
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
