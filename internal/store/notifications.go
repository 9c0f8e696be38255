package store

import (
	"context"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// AppendNotification appends an entry to the notification feed.
func AppendNotification(ctx context.Context, q Querier, n *model.Notification) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO notifications (event_type, entity_type, entity_id, actor_id, recipient_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.EventType, n.EntityType, n.EntityID, n.ActorID, n.RecipientID, n.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("appending notification: %w", err)
	}
	return result.LastInsertId()
}

// ListNotifications returns feed entries with ID greater than afterID, oldest
// first. With staff set, entries addressed to the staff feed are included
// alongside the ones addressed to recipientID.
func ListNotifications(ctx context.Context, q Querier, recipientID int64, staff bool, afterID int64, limit int) ([]model.Notification, error) {
	query := `SELECT id, event_type, entity_type, entity_id, actor_id, recipient_id, created_at
	          FROM notifications WHERE id > ? AND (recipient_id = ?`
	if staff {
		query += ` OR recipient_id IS NULL`
	}
	query += `) ORDER BY id LIMIT ?`

	rows, err := q.QueryContext(ctx, query, afterID, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.EventType, &n.EntityType, &n.EntityID, &n.ActorID, &n.RecipientID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
