package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/portal/internal/errs"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

var borrowColumns = []string{
	"id", "user_id", "equipment_id", "quantity_requested", "start_date", "end_date",
	"status", "admin_comment", "overdue", "created_at", "updated_at",
}

func (r *repository) CreateBorrowRequest(ctx context.Context, userID int64, req model.CreateBorrowRequest) (model.BorrowRequest, error) {
	var created model.BorrowRequest
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		eq, err := r.getEquipment(ctx, tx, req.EquipmentID, false)
		if err != nil {
			return err
		}
		query, args, err := qb.Insert(borrowTableName).
			Columns("user_id", "equipment_id", "quantity_requested", "start_date", "end_date", "status").
			Values(userID, req.EquipmentID, req.Quantity, req.StartDate, req.EndDate, lifecycle.StatusPending).
			Suffix("returning " + joinColumns(borrowColumns)).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		created, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
		if err != nil {
			r.log.Error("CreateBorrowRequest", zap.String("q", query), zap.Any("args", args), zap.Error(err))
			return err
		}
		created.Equipment = &eq
		return nil
	})
	if pgCode(err) == pgerrcode.ForeignKeyViolation {
		return model.BorrowRequest{}, errors.Wrap(errs.ErrNotFound, "equipment or user")
	}
	if err != nil {
		return model.BorrowRequest{}, mapNoRows(err)
	}
	return created, nil
}

func (r *repository) GetBorrowRequest(ctx context.Context, id int64) (model.BorrowRequest, error) {
	req, err := r.getBorrowRequest(ctx, r.db, id, false)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	eq, err := r.getEquipment(ctx, r.db, req.EquipmentID, false)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	req.Equipment = &eq
	return req, nil
}

func (r *repository) getBorrowRequest(ctx context.Context, q querier, id int64, forUpdate bool) (model.BorrowRequest, error) {
	b := qb.Select(borrowColumns...).
		From(borrowTableName).
		Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("for update")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return model.BorrowRequest{}, err
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	req, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err != nil {
		return model.BorrowRequest{}, mapNoRows(err)
	}
	return req, nil
}

func (r *repository) ListBorrowRequests(ctx context.Context, filter BorrowFilter) ([]model.BorrowRequest, error) {
	b := qb.Select(borrowColumns...).
		From(borrowTableName).
		OrderBy("created_at desc", "id desc")
	if filter.UserID != 0 {
		b = b.Where(sq.Eq{"user_id": filter.UserID})
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBorrowRequests", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.EquipmentID]; !ok {
			seen[it.EquipmentID] = struct{}{}
			ids = append(ids, it.EquipmentID)
		}
	}
	equipment, err := r.equipmentByIDs(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if eq, ok := equipment[items[i].EquipmentID]; ok {
			eq := eq
			items[i].Equipment = &eq
		}
	}
	return items, nil
}

// Transition locks the request row and then its equipment row, hands the
// snapshot to apply and persists whatever apply returns. Concurrent
// transitions on the same equipment serialize on the equipment lock.
func (r *repository) Transition(ctx context.Context, id int64, apply TransitionFunc) (model.BorrowRequest, lifecycle.Status, error) {
	var (
		updated model.BorrowRequest
		from    lifecycle.Status
	)
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		req, err := r.getBorrowRequest(ctx, tx, id, true)
		if err != nil {
			return err
		}
		eq, err := r.getEquipment(ctx, tx, req.EquipmentID, true)
		if err != nil {
			return err
		}
		from = req.Status

		next, err := apply(model.Transition{Request: req, Stock: eq.Stock()})
		if err != nil {
			return err
		}

		if next.Stock != eq.Stock() {
			query, args, err := qb.Update(equipmentTableName).
				Set("available_quantity", next.Stock.Available).
				Where(sq.Eq{"id": eq.ID}).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return err
			}
			eq.AvailableQuantity = next.Stock.Available
		}

		query, args, err := qb.Update(borrowTableName).
			Set("status", next.Request.Status).
			Set("admin_comment", next.Request.AdminComment).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id, "status": from}).
			Suffix("returning " + joinColumns(borrowColumns)).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		updated, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrConflict
		}
		if err != nil {
			return err
		}
		updated.Equipment = &eq
		return nil
	})
	if err != nil {
		return model.BorrowRequest{}, from, mapIntegrity(mapNoRows(err))
	}
	return updated, from, nil
}
