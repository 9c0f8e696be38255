package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// AppendAction appends an entry to a claim's audit trail. Entries cannot be
// changed afterwards; the table rejects UPDATE and DELETE. A zero CreatedAt
// is stamped with the current time.
func AppendAction(ctx context.Context, q Querier, entry *model.ActionLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO claim_actions (claim_id, actor_id, action, from_status, to_status, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ClaimID, entry.ActorID, entry.Action, nullString(entry.FromStatus), entry.ToStatus, nullString(entry.Reason),
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending claim action: %w", err)
	}
	return nil
}

// ListActions returns a claim's audit trail in the order it was written.
func ListActions(ctx context.Context, q Querier, claimID int64) ([]model.ActionLog, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, claim_id, actor_id, action, COALESCE(from_status, ''), to_status, COALESCE(reason, ''), created_at
		 FROM claim_actions WHERE claim_id = ? ORDER BY id`, claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing claim actions: %w", err)
	}
	defer rows.Close()

	var entries []model.ActionLog
	for rows.Next() {
		var e model.ActionLog
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.ActorID, &e.Action, &e.FromStatus, &e.ToStatus, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning claim action: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
