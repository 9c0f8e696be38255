package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

const lostColumns = `id, title, description, category, lost_location, lost_at,
	campus_id, reported_by, status, created_at, updated_at`

func scanLostItem(row interface{ Scan(...any) error }) (*model.LostItem, error) {
	item := &model.LostItem{}
	var description sql.NullString
	err := row.Scan(&item.ID, &item.Title, &description, &item.Category, &item.LostLocation, &item.LostAt,
		&item.CampusID, &item.ReportedBy, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	return item, nil
}

// CreateLostItem inserts a lost item report.
func CreateLostItem(ctx context.Context, q Querier, item *model.LostItem) (*model.LostItem, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO lost_items (title, description, category, lost_location, lost_at, campus_id, reported_by, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title, item.Description, item.Category, item.LostLocation, item.LostAt.UTC(),
		item.CampusID, item.ReportedBy, item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating lost item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting lost item id: %w", err)
	}

	return GetLostItem(ctx, q, id)
}

// GetLostItem returns a lost item by ID.
func GetLostItem(ctx context.Context, q Querier, id int64) (*model.LostItem, error) {
	item, err := scanLostItem(q.QueryRowContext(ctx,
		`SELECT `+lostColumns+` FROM lost_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting lost item: %w", err)
	}
	return item, nil
}

// ListLostItems returns lost items, newest first. A non-zero reporterID limits
// the listing to one student's reports.
func ListLostItems(ctx context.Context, q Querier, filter ItemFilter, reporterID int64) ([]model.LostItem, error) {
	query := `SELECT ` + lostColumns + ` FROM lost_items WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.CampusID > 0 {
		query += ` AND campus_id = ?`
		args = append(args, filter.CampusID)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if reporterID > 0 {
		query += ` AND reported_by = ?`
		args = append(args, reporterID)
	}
	query += ` ORDER BY lost_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing lost items: %w", err)
	}
	defer rows.Close()

	var items []model.LostItem
	for rows.Next() {
		item, err := scanLostItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lost item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// OpenLostItemsRows streams open lost reports on a campus for the match
// proposer. The caller owns the rows and must close them.
func OpenLostItemsRows(ctx context.Context, q Querier, campusID int64) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+lostColumns+` FROM lost_items
		 WHERE campus_id = ? AND status = ? ORDER BY id`,
		campusID, model.LostStatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("listing open lost items: %w", err)
	}
	return rows, nil
}

// ScanLostItem scans one row produced by OpenLostItemsRows.
func ScanLostItem(rows *sql.Rows) (*model.LostItem, error) {
	item, err := scanLostItem(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning lost item: %w", err)
	}
	return item, nil
}

// HasOpenLostReport reports whether a user has an open lost report in the given
// campus and category.
func HasOpenLostReport(ctx context.Context, q Querier, reporterID, campusID int64, category string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lost_items
		 WHERE reported_by = ? AND campus_id = ? AND category = ? AND status = ?`,
		reporterID, campusID, category, model.LostStatusOpen,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking open lost reports: %w", err)
	}
	return count > 0, nil
}

// SetLostItemStatus moves a lost item from one status to another.
// It returns ErrStatusConflict if the item no longer holds the from status.
func SetLostItemStatus(ctx context.Context, q Querier, id int64, from, to string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE lost_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("updating lost item status: %w", err)
	}
	return casResult(result)
}
