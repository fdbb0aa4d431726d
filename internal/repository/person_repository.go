package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/facilityops/key-custody/internal/model"
)

// PersonRepo provides CRUD operations for registered key holders.
// Persons are append-only with soft deactivation: edits mutate the row
// in place and rows are never physically removed, since ledger entries
// capture holder data by value and authorization memberships reference
// the id.
type PersonRepo struct {
	db *sql.DB
}

// NewPersonRepo returns a new PersonRepo bound to the given database.
func NewPersonRepo(db *sql.DB) *PersonRepo { return &PersonRepo{db: db} }

// Create inserts a new active person and populates the generated uuid
// on the provided record.
func (r *PersonRepo) Create(ctx context.Context, p *model.Person) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `INSERT INTO persons (id, name, external_code, phone, is_active) VALUES (?, ?, ?, ?, 1)`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.Name, p.ExternalCode, p.Phone)
	if err != nil {
		return err
	}
	p.Active = true
	return nil
}

// Update replaces name, external code, phone and active flag of an
// existing person.  Returns ErrPersonNotFound when the id is unknown.
func (r *PersonRepo) Update(ctx context.Context, p model.Person) error {
	if _, err := r.GetByID(ctx, p.ID); err != nil {
		return err
	}
	const q = `UPDATE persons SET name = ?, external_code = ?, phone = ?, is_active = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, p.Name, p.ExternalCode, p.Phone, p.Active, p.ID)
	return err
}

// GetByID returns the person with the given id, active or not.
func (r *PersonRepo) GetByID(ctx context.Context, id string) (model.Person, error) {
	const q = `SELECT id, name, external_code, phone, is_active, created_at, updated_at
			   FROM persons WHERE id = ?`
	var p model.Person
	var code, phone sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &code, &phone, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Person{}, ErrPersonNotFound
		}
		return model.Person{}, err
	}
	if code.Valid {
		c := code.String
		p.ExternalCode = &c
	}
	if phone.Valid {
		ph := phone.String
		p.Phone = &ph
	}
	return p, nil
}

// List returns persons ordered by name.  When activeOnly is true,
// deactivated persons are filtered out.
func (r *PersonRepo) List(ctx context.Context, activeOnly bool) ([]model.Person, error) {
	q := `SELECT id, name, external_code, phone, is_active, created_at, updated_at FROM persons`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	people := make([]model.Person, 0)
	for rows.Next() {
		var p model.Person
		var code, phone sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &code, &phone, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if code.Valid {
			c := code.String
			p.ExternalCode = &c
		}
		if phone.Valid {
			ph := phone.String
			p.Phone = &ph
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return people, nil
}
