package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/facilityops/key-custody/internal/model"
)

// SpaceRepo provides CRUD operations for spaces (keys/rooms).  Spaces
// are keyed by the administrator-chosen key number; saving an existing
// number replaces the descriptive fields in place and never creates a
// duplicate.  Rows are soft-deleted only, because ledger entries
// reference them by key number and history must stay reconstructable.
type SpaceRepo struct {
	db *sql.DB
}

// NewSpaceRepo returns a new SpaceRepo bound to the given database.
func NewSpaceRepo(db *sql.DB) *SpaceRepo { return &SpaceRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *SpaceRepo) DB() *sql.DB { return r.db }

// Upsert inserts a space or, when the key number already exists,
// replaces display name, location, category and active flag in place.
func (r *SpaceRepo) Upsert(ctx context.Context, s model.Space) error {
	const q = `INSERT INTO spaces (key_number, display_name, location, category, is_active)
			   VALUES (?, ?, ?, ?, ?)
			   ON DUPLICATE KEY UPDATE
				 display_name = VALUES(display_name),
				 location     = VALUES(location),
				 category     = VALUES(category),
				 is_active    = VALUES(is_active)`
	_, err := r.db.ExecContext(ctx, q, s.KeyNumber, s.DisplayName, s.Location, string(s.Category), s.Active)
	return err
}

// GetByKey returns the space with the given key number, active or not.
// When no such key is registered, ErrSpaceNotFound is returned.
func (r *SpaceRepo) GetByKey(ctx context.Context, keyNumber int64) (model.Space, error) {
	const q = `SELECT key_number, display_name, location, category, is_active, created_at, updated_at
			   FROM spaces WHERE key_number = ?`
	var s model.Space
	var location sql.NullString
	var category string
	err := r.db.QueryRowContext(ctx, q, keyNumber).Scan(
		&s.KeyNumber, &s.DisplayName, &location, &category, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Space{}, ErrSpaceNotFound
		}
		return model.Space{}, err
	}
	if location.Valid {
		loc := location.String
		s.Location = &loc
	}
	s.Category = model.SpaceCategory(category)
	return s, nil
}

// List returns all spaces ordered by key number.  When activeOnly is
// true, deactivated spaces are filtered out.
func (r *SpaceRepo) List(ctx context.Context, activeOnly bool) ([]model.Space, error) {
	q := `SELECT key_number, display_name, location, category, is_active, created_at, updated_at
		  FROM spaces`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY key_number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spaces := make([]model.Space, 0)
	for rows.Next() {
		var s model.Space
		var location sql.NullString
		var category string
		if err := rows.Scan(&s.KeyNumber, &s.DisplayName, &location, &category, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if location.Valid {
			loc := location.String
			s.Location = &loc
		}
		s.Category = model.SpaceCategory(category)
		spaces = append(spaces, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spaces, nil
}
