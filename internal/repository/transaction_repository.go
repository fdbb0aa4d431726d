package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/model"
)

// MySQL error numbers the write paths translate into domain errors.
const (
	mysqlErrDupEntry = 1062 // duplicate entry on a unique index
	mysqlErrNoRefRow = 1452 // insert references a missing parent row
)

// TransactionRepo owns the transactions table and implements
// custody.Store: the engine drives every ledger write through the
// serialized Tx it hands out.  Reads used by reports and the deep-link
// resolver live here too.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo returns a new TransactionRepo.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// Begin opens a storage transaction for one custody operation.
func (r *TransactionRepo) Begin(ctx context.Context) (custody.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ledgerTx{tx: tx}, nil
}

// ledgerTx implements custody.Tx over a *sql.Tx.  LockSpace takes a
// FOR UPDATE row lock on the spaces row, which serializes concurrent
// custody operations on the same key for the life of the transaction.
type ledgerTx struct {
	tx *sql.Tx
}

// LockSpace loads and write-locks the space row.  An unregistered key
// number reports custody.ErrSpaceNotActive; the engine treats missing
// and inactive the same way.
func (t *ledgerTx) LockSpace(ctx context.Context, keyNumber int64) (model.Space, error) {
	const q = `SELECT key_number, display_name, location, category, is_active
	           FROM spaces WHERE key_number = ? FOR UPDATE`
	var s model.Space
	var location sql.NullString
	var category string
	err := t.tx.QueryRowContext(ctx, q, keyNumber).
		Scan(&s.KeyNumber, &s.DisplayName, &location, &category, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Space{}, custody.ErrSpaceNotActive
	}
	if err != nil {
		return model.Space{}, err
	}
	if location.Valid {
		loc := location.String
		s.Location = &loc
	}
	s.Category = model.SpaceCategory(category)
	return s, nil
}

// OpenTransaction returns the key's open ledger entry, preferring the
// latest checkout should more than one somehow exist.  Returns
// custody.ErrNoOpenCheckout when the key is not out.
func (t *ledgerTx) OpenTransaction(ctx context.Context, keyNumber int64) (model.Transaction, error) {
	const q = `SELECT id, key_number, holder_name, holder_code, holder_phone,
	                  checkout_time, due_time, checkin_time, status
	           FROM transactions
	           WHERE key_number = ? AND checkin_time IS NULL
	           ORDER BY checkout_time DESC LIMIT 1`
	e, err := scanTransaction(t.tx.QueryRowContext(ctx, q, keyNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, custody.ErrNoOpenCheckout
	}
	return e, err
}

// InsertTransaction appends a new ledger entry.  Timestamps are
// written as UTC strings at second resolution; a rejection by the
// unique open-row index surfaces as custody.ErrStorageConstraint.
func (t *ledgerTx) InsertTransaction(ctx context.Context, e model.Transaction) error {
	const q = `INSERT INTO transactions
	           (id, key_number, holder_name, holder_code, holder_phone,
	            checkout_time, due_time, status, checkout_signature)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var due interface{}
	if e.DueTime != nil {
		due = e.DueTime.UTC().Format(custody.TimeLayout)
	}
	_, err := t.tx.ExecContext(ctx, q,
		e.ID, e.KeyNumber, e.HolderName, e.HolderCode, e.HolderPhone,
		e.CheckoutTime.UTC().Format(custody.TimeLayout), due, e.Status, e.CheckoutSignature)
	return mapWriteError(err)
}

// CloseTransaction fills checkin_time, the RETURNED label and the
// checkin signature.  The guard on checkin_time keeps a closed entry
// immutable; a second close reports custody.ErrNoOpenCheckout.
func (t *ledgerTx) CloseTransaction(ctx context.Context, id string, checkinTime time.Time, signature []byte) error {
	const q = `UPDATE transactions
	           SET checkin_time = ?, status = ?, checkin_signature = ?
	           WHERE id = ? AND checkin_time IS NULL`
	res, err := t.tx.ExecContext(ctx, q,
		checkinTime.UTC().Format(custody.TimeLayout), model.TxStatusReturned, signature, id)
	if err != nil {
		return mapWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return custody.ErrNoOpenCheckout
	}
	return nil
}

func (t *ledgerTx) Commit() error {
	return mapWriteError(t.tx.Commit())
}

func (t *ledgerTx) Rollback() error {
	return t.tx.Rollback()
}

// mapWriteError translates MySQL errors the custody flow reacts to.
func mapWriteError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDupEntry:
			return custody.ErrStorageConstraint
		case mysqlErrNoRefRow:
			return ErrSpaceNotFound
		}
	}
	return err
}

// List returns ledger entries inside the optional time window, newest
// first.  The upper bound compares against the checkin time when set,
// else the checkout time, so still-open entries stay visible in a
// window that covers their checkout.
func (r *TransactionRepo) List(ctx context.Context, start, end *time.Time) ([]model.Transaction, error) {
	q := `SELECT id, key_number, holder_name, holder_code, holder_phone,
	             checkout_time, due_time, checkin_time, status
	      FROM transactions`
	where := ""
	args := make([]interface{}, 0, 2)
	if start != nil {
		where = ` WHERE checkout_time >= ?`
		args = append(args, start.UTC().Format(custody.TimeLayout))
	}
	if end != nil {
		if where == "" {
			where = ` WHERE`
		} else {
			where += ` AND`
		}
		where += ` COALESCE(checkin_time, checkout_time) <= ?`
		args = append(args, end.UTC().Format(custody.TimeLayout))
	}
	q += where + ` ORDER BY checkout_time DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.Transaction, 0)
	for rows.Next() {
		e, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// OpenByKey returns the key's open ledger entry without locking it.
// Used by read paths such as the deep-link resolver; the engine goes
// through Begin/LockSpace instead.
func (r *TransactionRepo) OpenByKey(ctx context.Context, keyNumber int64) (model.Transaction, error) {
	const q = `SELECT id, key_number, holder_name, holder_code, holder_phone,
	                  checkout_time, due_time, checkin_time, status
	           FROM transactions
	           WHERE key_number = ? AND checkin_time IS NULL
	           ORDER BY checkout_time DESC LIMIT 1`
	e, err := scanTransaction(r.db.QueryRowContext(ctx, q, keyNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, custody.ErrNoOpenCheckout
	}
	return e, err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var e model.Transaction
	var code, phone sql.NullString
	var due, checkin sql.NullTime
	err := row.Scan(&e.ID, &e.KeyNumber, &e.HolderName, &code, &phone,
		&e.CheckoutTime, &due, &checkin, &e.Status)
	if err != nil {
		return model.Transaction{}, err
	}
	if code.Valid {
		v := code.String
		e.HolderCode = &v
	}
	if phone.Valid {
		v := phone.String
		e.HolderPhone = &v
	}
	if due.Valid {
		d := due.Time
		e.DueTime = &d
	}
	if checkin.Valid {
		ci := checkin.Time
		e.CheckinTime = &ci
	}
	return e, nil
}
