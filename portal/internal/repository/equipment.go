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

var equipmentColumns = []string{
	"id", "name", "category", "condition_description", "description",
	"total_quantity", "available_quantity", "created_at",
}

func (r *repository) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	query, args, err := qb.Select(equipmentColumns...).
		From(equipmentTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Equipment])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return items, nil
}

func (r *repository) GetEquipment(ctx context.Context, id int64) (model.Equipment, error) {
	return r.getEquipment(ctx, r.db, id, false)
}

func (r *repository) getEquipment(ctx context.Context, q querier, id int64, forUpdate bool) (model.Equipment, error) {
	b := qb.Select(equipmentColumns...).
		From(equipmentTableName).
		Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("for update")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return model.Equipment{}, err
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return model.Equipment{}, err
	}
	eq, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Equipment])
	if err != nil {
		return model.Equipment{}, mapNoRows(err)
	}
	return eq, nil
}

func (r *repository) equipmentByIDs(ctx context.Context, q querier, ids []int64) (map[int64]model.Equipment, error) {
	res := make(map[int64]model.Equipment, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	query, args, err := qb.Select(equipmentColumns...).
		From(equipmentTableName).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Equipment])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	for _, eq := range items {
		res[eq.ID] = eq
	}
	return res, nil
}

func (r *repository) CreateEquipment(ctx context.Context, in model.EquipmentInput) (model.Equipment, error) {
	query, args, err := qb.Insert(equipmentTableName).
		Columns("name", "category", "condition_description", "description", "total_quantity", "available_quantity").
		Values(in.Name, in.Category, in.ConditionDescription, in.Description, in.TotalQuantity, in.TotalQuantity).
		Suffix("returning " + joinColumns(equipmentColumns)).
		ToSql()
	if err != nil {
		return model.Equipment{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Equipment{}, err
	}
	eq, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Equipment])
	if err != nil {
		r.log.Error("CreateEquipment", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return model.Equipment{}, mapIntegrity(err)
	}
	return eq, nil
}

// UpdateEquipment locks the row so the resize sees the issued count of committed transitions only.
func (r *repository) UpdateEquipment(ctx context.Context, id int64, in model.EquipmentInput, resize ResizeFunc) (model.Equipment, error) {
	var updated model.Equipment
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		cur, err := r.getEquipment(ctx, tx, id, true)
		if err != nil {
			return err
		}
		stock, err := resize(cur.Stock())
		if err != nil {
			return err
		}
		query, args, err := qb.Update(equipmentTableName).
			SetMap(map[string]any{
				"name":                  in.Name,
				"category":              in.Category,
				"condition_description": in.ConditionDescription,
				"description":           in.Description,
				"total_quantity":        stock.Total,
				"available_quantity":    stock.Available,
			}).
			Where(sq.Eq{"id": id}).
			Suffix("returning " + joinColumns(equipmentColumns)).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		updated, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Equipment])
		return err
	})
	if err != nil {
		return model.Equipment{}, mapIntegrity(mapNoRows(err))
	}
	return updated, nil
}

// DeleteEquipment runs check against every referencing request and deletes the row
// only when check passes. Historical references still block the delete through
// the foreign key, reported as errs.ErrHasHistory.
func (r *repository) DeleteEquipment(ctx context.Context, id int64, check DeleteCheckFunc) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := r.getEquipment(ctx, tx, id, true); err != nil {
			return err
		}
		query, args, err := qb.Select("status").
			From(borrowTableName).
			Where(sq.Eq{"equipment_id": id}).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		statuses, err := pgx.CollectRows(rows, pgx.RowTo[lifecycle.Status])
		if err != nil {
			return fmt.Errorf("pgx.CollectRows: %w", err)
		}
		if err := check(statuses); err != nil {
			return err
		}

		query, args, err = qb.Delete(equipmentTableName).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query, args...)
		return err
	})
	if pgCode(err) == pgerrcode.ForeignKeyViolation {
		return errors.Wrap(errs.ErrHasHistory, "delete equipment")
	}
	return mapNoRows(err)
}
