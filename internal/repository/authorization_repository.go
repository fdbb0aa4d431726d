package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/model"
)

// AuthorizationRepo persists the access-control overlay: time-bounded
// grants per key and the people linked to them.  Grants and links are
// insert-only; there is no revoke or unlink operation.  The revoked_at
// column exists as an extension point and is never written here.
type AuthorizationRepo struct {
	db *sql.DB
}

// NewAuthorizationRepo returns a new AuthorizationRepo bound to the
// given database.
func NewAuthorizationRepo(db *sql.DB) *AuthorizationRepo { return &AuthorizationRepo{db: db} }

// Create inserts a new grant and populates the generated uuid on the
// provided record.  ErrSpaceNotFound is returned when the key number
// is not registered.
func (r *AuthorizationRepo) Create(ctx context.Context, a *model.Authorization) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	const q = `INSERT INTO authorizations (id, key_number, memo_reference, valid_from, valid_to)
			   VALUES (?, ?, ?, ?, ?)`
	var from, to interface{}
	if a.ValidFrom != nil {
		from = a.ValidFrom.UTC().Format(custody.TimeLayout)
	}
	if a.ValidTo != nil {
		to = a.ValidTo.UTC().Format(custody.TimeLayout)
	}
	_, err := r.db.ExecContext(ctx, q, a.ID, a.KeyNumber, a.MemoReference, from, to)
	return mapAuthError(err)
}

// AddPerson links a person to a grant.  Linking the same pair twice
// reports ErrConflict; unknown ids report the matching not-found
// sentinel.
func (r *AuthorizationRepo) AddPerson(ctx context.Context, authorizationID, personID string) error {
	if _, err := r.GetByID(ctx, authorizationID); err != nil {
		return err
	}
	const q = `INSERT INTO authorization_members (authorization_id, person_id) VALUES (?, ?)`
	_, err := r.db.ExecContext(ctx, q, authorizationID, personID)
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDupEntry:
			return ErrConflict
		case mysqlErrNoRefRow:
			return ErrPersonNotFound
		}
	}
	return err
}

// GetByID returns a single grant.
func (r *AuthorizationRepo) GetByID(ctx context.Context, id string) (model.Authorization, error) {
	const q = `SELECT id, key_number, memo_reference, valid_from, valid_to, revoked_at, created_at
			   FROM authorizations WHERE id = ?`
	var a model.Authorization
	var from, to, revoked sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.KeyNumber, &a.MemoReference, &from, &to, &revoked, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Authorization{}, ErrAuthorizationNotFound
		}
		return model.Authorization{}, err
	}
	a.ValidFrom, a.ValidTo, a.RevokedAt = nullTimePtr(from), nullTimePtr(to), nullTimePtr(revoked)
	return a, nil
}

// List returns grants newest first, optionally filtered by key number.
func (r *AuthorizationRepo) List(ctx context.Context, keyNumber *int64) ([]model.Authorization, error) {
	q := `SELECT id, key_number, memo_reference, valid_from, valid_to, revoked_at, created_at
		  FROM authorizations`
	args := make([]interface{}, 0, 1)
	if keyNumber != nil {
		q += ` WHERE key_number = ?`
		args = append(args, *keyNumber)
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants := make([]model.Authorization, 0)
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// GrantsForKey implements custody.GrantSource.  Revoked grants are
// filtered out so the extension point takes effect the day something
// starts writing revoked_at.
func (r *AuthorizationRepo) GrantsForKey(ctx context.Context, keyNumber int64) ([]model.Authorization, error) {
	const q = `SELECT id, key_number, memo_reference, valid_from, valid_to, revoked_at, created_at
			   FROM authorizations WHERE key_number = ? AND revoked_at IS NULL
			   ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, keyNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants := make([]model.Authorization, 0)
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// GrantPeople implements custody.GrantSource: every person linked to
// the grant, active or not.  The resolver applies the active filter;
// admin listings want the full set.
func (r *AuthorizationRepo) GrantPeople(ctx context.Context, authorizationID string) ([]model.Person, error) {
	const q = `SELECT p.id, p.name, p.external_code, p.phone, p.is_active, p.created_at, p.updated_at
			   FROM authorization_members m
			   JOIN persons p ON p.id = m.person_id
			   WHERE m.authorization_id = ?
			   ORDER BY p.name, p.id`
	rows, err := r.db.QueryContext(ctx, q, authorizationID)
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

func scanAuthorization(rows *sql.Rows) (model.Authorization, error) {
	var a model.Authorization
	var from, to, revoked sql.NullTime
	if err := rows.Scan(&a.ID, &a.KeyNumber, &a.MemoReference, &from, &to, &revoked, &a.CreatedAt); err != nil {
		return model.Authorization{}, err
	}
	a.ValidFrom, a.ValidTo, a.RevokedAt = nullTimePtr(from), nullTimePtr(to), nullTimePtr(revoked)
	return a, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func mapAuthError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrNoRefRow {
		return ErrSpaceNotFound
	}
	return err
}
