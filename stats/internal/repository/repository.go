package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/stats/internal/model"
)

type Repository interface {
	GetStats(ctx context.Context) (model.StatsInfo, error)
	SaveEvent(ctx context.Context, event kafka.LifecycleEvent) error
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

// SaveEvent is idempotent on the event id, redelivered messages are ignored.
func (r *repository) SaveEvent(ctx context.Context, event kafka.LifecycleEvent) error {
	q := `insert into events (event_id, timestamp, request_id, equipment_id, user_id, actor_id, action, from_status, to_status, quantity)
	values (@event_id, @timestamp, @request_id, @equipment_id, @user_id, @actor_id, @action, @from_status, @to_status, @quantity)
	on conflict (event_id) do nothing`
	args := pgx.NamedArgs{
		"event_id":     event.EventID,
		"timestamp":    event.Timestamp,
		"request_id":   event.RequestID,
		"equipment_id": event.EquipmentID,
		"user_id":      event.UserID,
		"actor_id":     event.ActorID,
		"action":       string(event.Action),
		"from_status":  string(event.From),
		"to_status":    string(event.To),
		"quantity":     event.Quantity,
	}
	_, err := r.db.Exec(ctx, q, args)
	return err
}

func (r *repository) GetStats(ctx context.Context) (model.StatsInfo, error) {
	const q = `
	select equipment_id,
	       count(*) filter (where action = 'create')  as requested,
	       count(*) filter (where action = 'approve') as approved,
	       count(*) filter (where action = 'reject')  as rejected,
	       count(*) filter (where action = 'issue')   as issued,
	       count(*) filter (where action = 'return')  as returned,
	       (coalesce(sum(quantity) filter (where action = 'issue'), 0) -
	        coalesce(sum(quantity) filter (where action = 'return'), 0))::int as units_out,
	       max(timestamp) as last_event_at
	from events
	group by equipment_id
	order by equipment_id
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return model.StatsInfo{}, err
	}
	defer rows.Close()
	stats, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.EquipmentStats])
	if err != nil {
		return model.StatsInfo{}, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return model.StatsInfo{Data: stats}, nil
}
