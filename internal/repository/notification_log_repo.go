package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationLogRepository is the append-only audit trail of sent
// notifications, kept alongside the capped in-kv history.
type NotificationLogRepository struct {
	db *pgxpool.Pool
}

func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Insert(ctx context.Context, userID int, title, category string) error {
	query := `
        INSERT INTO notifications_log (user_id, title, category, created_at)
        VALUES ($1, $2, $3, NOW())
    `
	_, err := r.db.Exec(ctx, query, userID, title, category)
	return err
}
