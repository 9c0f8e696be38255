package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

const matchColumns = `m.id, m.found_item_id, m.lost_item_id, m.score, m.status, m.proposed_by,
	m.created_at, m.updated_at, f.title, l.title`

const matchFrom = ` FROM matches m
	JOIN found_items f ON f.id = m.found_item_id
	JOIN lost_items l ON l.id = m.lost_item_id`

func scanMatch(row interface{ Scan(...any) error }) (*model.Match, error) {
	m := &model.Match{}
	err := row.Scan(&m.ID, &m.FoundItemID, &m.LostItemID, &m.Score, &m.Status, &m.ProposedBy,
		&m.CreatedAt, &m.UpdatedAt, &m.FoundTitle, &m.LostTitle)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateMatch records a proposed match between a found and a lost item.
func CreateMatch(ctx context.Context, q Querier, foundID, lostID int64, score int, proposedBy *int64) (*model.Match, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO matches (found_item_id, lost_item_id, score, status, proposed_by) VALUES (?, ?, ?, ?, ?)`,
		foundID, lostID, score, model.MatchStatusProposed, proposedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating match: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting match id: %w", err)
	}

	return GetMatch(ctx, q, id)
}

// GetMatch returns a match by ID.
func GetMatch(ctx context.Context, q Querier, id int64) (*model.Match, error) {
	m, err := scanMatch(q.QueryRowContext(ctx,
		`SELECT `+matchColumns+matchFrom+` WHERE m.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting match: %w", err)
	}
	return m, nil
}

// GetMatchByPair returns the match linking two items, if any.
func GetMatchByPair(ctx context.Context, q Querier, foundID, lostID int64) (*model.Match, error) {
	m, err := scanMatch(q.QueryRowContext(ctx,
		`SELECT `+matchColumns+matchFrom+` WHERE m.found_item_id = ? AND m.lost_item_id = ?`, foundID, lostID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting match by pair: %w", err)
	}
	return m, nil
}

// ListMatches returns matches, optionally filtered by found item, lost item and status.
func ListMatches(ctx context.Context, q Querier, foundID, lostID int64, status string) ([]model.Match, error) {
	query := `SELECT ` + matchColumns + matchFrom + ` WHERE 1=1`
	var args []any

	if foundID > 0 {
		query += ` AND m.found_item_id = ?`
		args = append(args, foundID)
	}
	if lostID > 0 {
		query += ` AND m.lost_item_id = ?`
		args = append(args, lostID)
	}
	if status != "" {
		query += ` AND m.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY m.score DESC, m.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// SetMatchStatus moves a match from one status to another.
// It returns ErrStatusConflict if the match no longer holds the from status.
func SetMatchStatus(ctx context.Context, q Querier, id int64, from, to string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE matches SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("updating match status: %w", err)
	}
	return casResult(result)
}
