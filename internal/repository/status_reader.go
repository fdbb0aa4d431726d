package repository

import (
	"context"
	"database/sql"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/model"
)

// StatusReader implements custody.StatusSource: the two reads the
// status projector joins.  Timestamps are selected as raw strings
// (CAST ... AS CHAR) so a malformed value in storage reaches the
// projector instead of failing the scan; the projector decides what to
// do with it.
type StatusReader struct {
	db *sql.DB
}

// NewStatusReader returns a new StatusReader bound to the given
// database.
func NewStatusReader(db *sql.DB) *StatusReader { return &StatusReader{db: db} }

// ActiveSpaces returns all active spaces ordered by key number.
func (r *StatusReader) ActiveSpaces(ctx context.Context) ([]model.Space, error) {
	const q = `SELECT key_number, display_name, location, category, is_active, created_at, updated_at
			   FROM spaces WHERE is_active = 1 ORDER BY key_number`
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

// LatestCheckouts returns, per key, the ledger entry with the maximum
// checkout time.  Keys that never had a checkout are absent from the
// map.
func (r *StatusReader) LatestCheckouts(ctx context.Context) (map[int64]custody.StatusRow, error) {
	const q = `SELECT t.key_number, t.holder_name,
					  CAST(t.checkout_time AS CHAR), CAST(t.due_time AS CHAR), CAST(t.checkin_time AS CHAR)
			   FROM transactions t
			   INNER JOIN (
				 SELECT key_number, MAX(checkout_time) AS max_co
				 FROM transactions GROUP BY key_number
			   ) m ON t.key_number = m.key_number AND t.checkout_time = m.max_co`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	latest := make(map[int64]custody.StatusRow)
	for rows.Next() {
		var row custody.StatusRow
		var due, checkin sql.NullString
		if err := rows.Scan(&row.KeyNumber, &row.HolderName, &row.CheckoutTime, &due, &checkin); err != nil {
			return nil, err
		}
		if due.Valid {
			d := due.String
			row.DueTime = &d
		}
		if checkin.Valid {
			ci := checkin.String
			row.CheckinTime = &ci
		}
		// Two rows can share the maximum checkout time at second
		// resolution; prefer the open one.
		if prev, ok := latest[row.KeyNumber]; ok && prev.CheckinTime == nil && row.CheckinTime != nil {
			continue
		}
		latest[row.KeyNumber] = row
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return latest, nil
}
