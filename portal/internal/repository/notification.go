package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

var notificationColumns = []string{"id", "loan_id", "message", "is_read", "created_at"}

type overdueLoan struct {
	ID      int64     `db:"id"`
	Name    string    `db:"name"`
	EndDate time.Time `db:"end_date"`
}

// FlagOverdue marks every issued loan that ended before today and stores one
// notification per newly flagged loan.
func (r *repository) FlagOverdue(ctx context.Context, today time.Time, message OverdueMessageFunc) ([]model.Notification, error) {
	var created []model.Notification
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query, args, err := qb.Select("b.id", "e.name", "b.end_date").
			From(borrowTableName + " b").
			Join(equipmentTableName + " e on e.id = b.equipment_id").
			Where(sq.Eq{"b.status": lifecycle.StatusIssued, "b.overdue": false}).
			Where(sq.Lt{"b.end_date": today}).
			Suffix("for update of b skip locked").
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		loans, err := pgx.CollectRows(rows, pgx.RowToStructByName[overdueLoan])
		if err != nil {
			return fmt.Errorf("pgx.CollectRows: %w", err)
		}

		for _, loan := range loans {
			if _, err := tx.Exec(ctx,
				`update borrow_request set overdue = true, updated_at = now() where id = @id`,
				pgx.NamedArgs{"id": loan.ID}); err != nil {
				return err
			}
			q := `insert into notification (loan_id, message) values (@loan_id, @message)
	returning ` + joinColumns(notificationColumns)
			rows, err := tx.Query(ctx, q, pgx.NamedArgs{
				"loan_id": loan.ID,
				"message": message(loan.Name, loan.EndDate),
			})
			if err != nil {
				return err
			}
			n, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Notification])
			if err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("FlagOverdue", zap.Int("flagged", len(created)))
	return created, nil
}

func (r *repository) ListUnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	query, args, err := qb.Select(notificationColumns...).
		From(notificationTableName).
		Where(sq.Eq{"is_read": false}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Notification])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return items, nil
}
