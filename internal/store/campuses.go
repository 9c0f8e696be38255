package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// CreateCampus creates a new campus.
func CreateCampus(ctx context.Context, q Querier, name, code string) (*model.Campus, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO campuses (name, code) VALUES (?, ?)`,
		name, code,
	)
	if err != nil {
		return nil, fmt.Errorf("creating campus: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting campus id: %w", err)
	}

	return GetCampus(ctx, q, id)
}

// GetCampus returns a campus by ID, including soft-deleted ones.
func GetCampus(ctx context.Context, q Querier, id int64) (*model.Campus, error) {
	c := &model.Campus{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, code, created_at, deleted_at FROM campuses WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting campus: %w", err)
	}
	return c, nil
}

// GetCampusByCode returns an active campus by its short code.
func GetCampusByCode(ctx context.Context, q Querier, code string) (*model.Campus, error) {
	c := &model.Campus{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, code, created_at, deleted_at FROM campuses
		 WHERE code = ? AND deleted_at IS NULL`, code,
	).Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting campus by code: %w", err)
	}
	return c, nil
}

// ListCampuses returns all active campuses.
func ListCampuses(ctx context.Context, q Querier) ([]model.Campus, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, code, created_at, deleted_at FROM campuses
		 WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing campuses: %w", err)
	}
	defer rows.Close()

	var campuses []model.Campus
	for rows.Next() {
		var c model.Campus
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning campus: %w", err)
		}
		campuses = append(campuses, c)
	}
	return campuses, rows.Err()
}

// UpdateCampus renames a campus.
func UpdateCampus(ctx context.Context, q Querier, id int64, name, code string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE campuses SET name = ?, code = ? WHERE id = ? AND deleted_at IS NULL`,
		name, code, id,
	)
	if err != nil {
		return fmt.Errorf("updating campus: %w", err)
	}
	return nil
}

// DeleteCampus soft-deletes a campus. Items keep referencing it for history.
func DeleteCampus(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE campuses SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting campus: %w", err)
	}
	return nil
}
