package custody

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/facilityops/key-custody/internal/model"
)

// Store opens serialized critical sections against the durable store.
// Each Tx must behave as a single atomic unit: either every write in
// it lands, or none does.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one storage transaction scoped to a custody operation.  The
// engine is the only caller; it always finishes with Commit or
// Rollback.  Implementations must make LockSpace serialize concurrent
// transactions touching the same key number (row lock or equivalent),
// so the read-then-write sequence below is atomic per key.
type Tx interface {
	// LockSpace loads the space row and takes a write lock on it.
	// Returns ErrSpaceNotActive when no such key number is registered.
	LockSpace(ctx context.Context, keyNumber int64) (model.Space, error)
	// OpenTransaction returns the open ledger entry for the key, the
	// one with the latest checkout time should more than one somehow
	// exist.  Returns ErrNoOpenCheckout when there is none.
	OpenTransaction(ctx context.Context, keyNumber int64) (model.Transaction, error)
	// InsertTransaction appends a new ledger entry.  Returns
	// ErrStorageConstraint when the unique open-row index rejects it.
	InsertTransaction(ctx context.Context, t model.Transaction) error
	// CloseTransaction fills checkin_time, status and the checkin
	// signature on the identified entry.  The entry is immutable
	// afterwards.
	CloseTransaction(ctx context.Context, id string, checkinTime time.Time, signature []byte) error
	Commit() error
	Rollback() error
}

// OpenRequest carries the caller-supplied fields of an open checkout.
// Holder data is captured by value; optional fields are nil when not
// provided, never empty-string sentinels.
type OpenRequest struct {
	KeyNumber   int64
	HolderName  string
	HolderCode  *string
	HolderPhone *string
	DueTime     *time.Time
	Signature   []byte
}

// Engine performs the two state transitions of the custody ledger.
// It is the only writer to the ledger.  Time is read once per
// operation from the engine clock at second resolution, matching the
// ledger timestamp precision.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine returns an Engine bound to the given store, using the wall
// clock.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock replaces the engine clock and returns the engine.  Used by
// tests to pin the current time.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// OpenCheckout validates the preconditions in order (first failure
// wins, no partial effects) and appends a new open ledger entry:
//
//  1. the space must exist and be active        -> ErrSpaceNotActive
//  2. holder name must be non-empty after trim  -> ErrMissingHolderName
//  3. the key must have no open transaction     -> ErrAlreadyCheckedOut
//
// The checks and the insert run inside one storage transaction holding
// the space row lock, so two concurrent calls for the same key cannot
// both succeed; a race lost at the unique index is reported as
// ErrAlreadyCheckedOut as well.
func (e *Engine) OpenCheckout(ctx context.Context, req OpenRequest) (model.Transaction, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sp, err := tx.LockSpace(ctx, req.KeyNumber)
	if err != nil {
		return model.Transaction{}, err
	}
	if !sp.Active {
		return model.Transaction{}, ErrSpaceNotActive
	}
	name := strings.TrimSpace(req.HolderName)
	if name == "" {
		return model.Transaction{}, ErrMissingHolderName
	}
	if _, err := tx.OpenTransaction(ctx, req.KeyNumber); err == nil {
		return model.Transaction{}, ErrAlreadyCheckedOut
	} else if !errors.Is(err, ErrNoOpenCheckout) {
		return model.Transaction{}, err
	}

	entry := model.Transaction{
		ID:                uuid.NewString(),
		KeyNumber:         req.KeyNumber,
		HolderName:        name,
		HolderCode:        req.HolderCode,
		HolderPhone:       req.HolderPhone,
		CheckoutTime:      e.now().UTC().Truncate(time.Second),
		DueTime:           req.DueTime,
		Status:            model.TxStatusInUse,
		CheckoutSignature: req.Signature,
	}
	if err := tx.InsertTransaction(ctx, entry); err != nil {
		if errors.Is(err, ErrStorageConstraint) {
			return model.Transaction{}, ErrAlreadyCheckedOut
		}
		return model.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		if errors.Is(err, ErrStorageConstraint) {
			return model.Transaction{}, ErrAlreadyCheckedOut
		}
		return model.Transaction{}, err
	}
	committed = true
	return entry, nil
}

// CloseCheckout closes the open ledger entry for the key, setting
// checkin time, the RETURNED label and the checkin signature.  The
// space must exist and be active (ErrSpaceNotActive); when the key has
// no open entry it fails with ErrNoOpenCheckout, which is also what a
// second concurrent close observes once the first one commits.
func (e *Engine) CloseCheckout(ctx context.Context, keyNumber int64, signature []byte) (model.Transaction, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sp, err := tx.LockSpace(ctx, keyNumber)
	if err != nil {
		return model.Transaction{}, err
	}
	if !sp.Active {
		return model.Transaction{}, ErrSpaceNotActive
	}
	entry, err := tx.OpenTransaction(ctx, keyNumber)
	if err != nil {
		if errors.Is(err, ErrStorageConstraint) {
			return model.Transaction{}, ErrNoOpenCheckout
		}
		return model.Transaction{}, err
	}

	at := e.now().UTC().Truncate(time.Second)
	if err := tx.CloseTransaction(ctx, entry.ID, at, signature); err != nil {
		return model.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Transaction{}, err
	}
	committed = true

	entry.CheckinTime = &at
	entry.Status = model.TxStatusReturned
	entry.CheckinSignature = signature
	return entry, nil
}
