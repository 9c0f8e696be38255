package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

const foundColumns = `f.id, f.title, f.description, f.category, f.found_location, f.found_at,
	f.campus_id, f.reported_by, f.image_mime, f.status, f.created_at, f.updated_at, c.name`

func scanFoundItem(row interface{ Scan(...any) error }) (*model.FoundItem, error) {
	item := &model.FoundItem{}
	var description, imageMime, campusName sql.NullString
	err := row.Scan(&item.ID, &item.Title, &description, &item.Category, &item.FoundLocation, &item.FoundAt,
		&item.CampusID, &item.ReportedBy, &imageMime, &item.Status, &item.CreatedAt, &item.UpdatedAt, &campusName)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	item.CampusName = campusName.String
	return item, nil
}

// CreateFoundItem inserts a found item with the given initial status.
func CreateFoundItem(ctx context.Context, q Querier, item *model.FoundItem) (*model.FoundItem, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO found_items (title, description, category, found_location, found_at, campus_id, reported_by, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title, item.Description, item.Category, item.FoundLocation, item.FoundAt.UTC(),
		item.CampusID, item.ReportedBy, item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating found item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting found item id: %w", err)
	}

	return GetFoundItem(ctx, q, id)
}

// GetFoundItem returns a found item by ID.
func GetFoundItem(ctx context.Context, q Querier, id int64) (*model.FoundItem, error) {
	item, err := scanFoundItem(q.QueryRowContext(ctx,
		`SELECT `+foundColumns+`
		 FROM found_items f LEFT JOIN campuses c ON c.id = f.campus_id
		 WHERE f.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting found item: %w", err)
	}
	return item, nil
}

// ItemFilter narrows item listings. Zero values match everything.
type ItemFilter struct {
	Status   string
	CampusID int64
	Category string
}

// ListFoundItems returns found items, newest first.
func ListFoundItems(ctx context.Context, q Querier, filter ItemFilter) ([]model.FoundItem, error) {
	query := `SELECT ` + foundColumns + `
	          FROM found_items f LEFT JOIN campuses c ON c.id = f.campus_id
	          WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND f.status = ?`
		args = append(args, filter.Status)
	}
	if filter.CampusID > 0 {
		query += ` AND f.campus_id = ?`
		args = append(args, filter.CampusID)
	}
	if filter.Category != "" {
		query += ` AND f.category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY f.found_at DESC, f.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing found items: %w", err)
	}
	defer rows.Close()

	var items []model.FoundItem
	for rows.Next() {
		item, err := scanFoundItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning found item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SetFoundItemStatus moves a found item from one status to another.
// It returns ErrStatusConflict if the item no longer holds the from status.
func SetFoundItemStatus(ctx context.Context, q Querier, id int64, from, to string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE found_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("updating found item status: %w", err)
	}
	return casResult(result)
}

// SetFoundItemImage sets a found item's photo.
func SetFoundItemImage(ctx context.Context, q Querier, id int64, image []byte, mime string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE found_items SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, mime, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting found item image: %w", err)
	}
	return nil
}

// GetFoundItemImage returns a found item's photo and MIME type.
func GetFoundItemImage(ctx context.Context, q Querier, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM found_items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting found item image: %w", err)
	}
	return image, mime.String, nil
}
