package custody

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilityops/key-custody/internal/model"
)

// fakeStore is an in-memory Store.  A single mutex plays the role of
// the per-key row lock: each Tx holds it from LockSpace until Commit
// or Rollback, which serializes concurrent operations the same way the
// database does.
type fakeStore struct {
	mu      sync.Mutex
	spaces  map[int64]model.Space
	entries []model.Transaction
}

func newFakeStore(spaces ...model.Space) *fakeStore {
	s := &fakeStore{spaces: make(map[int64]model.Space)}
	for _, sp := range spaces {
		s.spaces[sp.KeyNumber] = sp
	}
	return s
}

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) open(keyNumber int64) (model.Transaction, bool) {
	var found model.Transaction
	ok := false
	for _, e := range s.entries {
		if e.KeyNumber != keyNumber || e.CheckinTime != nil {
			continue
		}
		if !ok || e.CheckoutTime.After(found.CheckoutTime) {
			found, ok = e, true
		}
	}
	return found, ok
}

type fakeTx struct {
	store   *fakeStore
	locked  bool
	staged  []model.Transaction
	closes  []fakeClose
	done    bool
	failEnd error // returned from Commit when set
}

type fakeClose struct {
	id  string
	at  time.Time
	sig []byte
}

func (t *fakeTx) LockSpace(ctx context.Context, keyNumber int64) (model.Space, error) {
	t.store.mu.Lock()
	t.locked = true
	sp, ok := t.store.spaces[keyNumber]
	if !ok {
		return model.Space{}, ErrSpaceNotActive
	}
	return sp, nil
}

func (t *fakeTx) OpenTransaction(ctx context.Context, keyNumber int64) (model.Transaction, error) {
	if e, ok := t.store.open(keyNumber); ok {
		return e, nil
	}
	return model.Transaction{}, ErrNoOpenCheckout
}

func (t *fakeTx) InsertTransaction(ctx context.Context, e model.Transaction) error {
	if _, ok := t.store.open(e.KeyNumber); ok {
		return ErrStorageConstraint
	}
	t.staged = append(t.staged, e)
	return nil
}

func (t *fakeTx) CloseTransaction(ctx context.Context, id string, at time.Time, sig []byte) error {
	t.closes = append(t.closes, fakeClose{id: id, at: at, sig: sig})
	return nil
}

func (t *fakeTx) Commit() error {
	defer t.release()
	if t.failEnd != nil {
		return t.failEnd
	}
	t.store.entries = append(t.store.entries, t.staged...)
	for _, c := range t.closes {
		for i := range t.store.entries {
			if t.store.entries[i].ID == c.id && t.store.entries[i].CheckinTime == nil {
				at := c.at
				t.store.entries[i].CheckinTime = &at
				t.store.entries[i].Status = model.TxStatusReturned
				t.store.entries[i].CheckinSignature = c.sig
			}
		}
	}
	return nil
}

func (t *fakeTx) Rollback() error {
	t.release()
	return nil
}

func (t *fakeTx) release() {
	if t.locked && !t.done {
		t.done = true
		t.store.mu.Unlock()
	}
}

func activeSpace(key int64) model.Space {
	return model.Space{KeyNumber: key, DisplayName: "Room", Active: true}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

func TestOpenCheckoutRoundTrip(t *testing.T) {
	store := newFakeStore(activeSpace(7))
	at := time.Date(2026, 3, 10, 14, 0, 0, 500_000_000, time.UTC)
	eng := NewEngine(store).WithClock(fixedClock(at))

	due := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	entry, err := eng.OpenCheckout(context.Background(), OpenRequest{
		KeyNumber:   7,
		HolderName:  "  Ana Souza  ",
		HolderCode:  strPtr("12345"),
		DueTime:     &due,
		Signature:   []byte{0x01},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, int64(7), entry.KeyNumber)
	assert.Equal(t, "Ana Souza", entry.HolderName, "holder name is trimmed")
	assert.Equal(t, model.TxStatusInUse, entry.Status)
	assert.True(t, entry.CheckoutTime.Equal(at.Truncate(time.Second)), "checkout time is second resolution")
	assert.Nil(t, entry.CheckinTime)

	closed, err := eng.CloseCheckout(context.Background(), 7, []byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, closed.ID)
	assert.Equal(t, model.TxStatusReturned, closed.Status)
	require.NotNil(t, closed.CheckinTime)
	assert.Equal(t, []byte{0x02}, closed.CheckinSignature)

	// The key is free again.
	reopened, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 7, HolderName: "Bruno"})
	require.NoError(t, err)
	assert.NotEqual(t, entry.ID, reopened.ID)
}

func TestOpenCheckoutUnregisteredKey(t *testing.T) {
	eng := NewEngine(newFakeStore())
	_, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 1, HolderName: "Ana"})
	assert.ErrorIs(t, err, ErrSpaceNotActive)
}

func TestOpenCheckoutInactiveSpace(t *testing.T) {
	store := newFakeStore(model.Space{KeyNumber: 3, DisplayName: "Old lab", Active: false})
	eng := NewEngine(store)
	_, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 3, HolderName: "Ana"})
	assert.ErrorIs(t, err, ErrSpaceNotActive)
}

func TestOpenCheckoutMissingHolderName(t *testing.T) {
	store := newFakeStore(activeSpace(3))
	eng := NewEngine(store)
	_, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 3, HolderName: "   "})
	assert.ErrorIs(t, err, ErrMissingHolderName)
	assert.Empty(t, store.entries, "a failed precondition leaves no trace")
}

func TestOpenCheckoutPreconditionOrder(t *testing.T) {
	// An inactive space with a blank holder name reports the space
	// error: the first failing check wins.
	store := newFakeStore(model.Space{KeyNumber: 9, Active: false})
	eng := NewEngine(store)
	_, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 9, HolderName: ""})
	assert.ErrorIs(t, err, ErrSpaceNotActive)
}

func TestOpenCheckoutAlreadyOut(t *testing.T) {
	store := newFakeStore(activeSpace(5))
	eng := NewEngine(store)
	_, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 5, HolderName: "Ana"})
	require.NoError(t, err)

	_, err = eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 5, HolderName: "Bruno"})
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
	assert.Len(t, store.entries, 1)
}

func TestCloseCheckoutNoOpenEntry(t *testing.T) {
	store := newFakeStore(activeSpace(5))
	eng := NewEngine(store)
	_, err := eng.CloseCheckout(context.Background(), 5, nil)
	assert.ErrorIs(t, err, ErrNoOpenCheckout)
}

func TestCloseCheckoutTwice(t *testing.T) {
	store := newFakeStore(activeSpace(5))
	eng := NewEngine(store)
	_, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 5, HolderName: "Ana"})
	require.NoError(t, err)

	_, err = eng.CloseCheckout(context.Background(), 5, nil)
	require.NoError(t, err)
	_, err = eng.CloseCheckout(context.Background(), 5, nil)
	assert.ErrorIs(t, err, ErrNoOpenCheckout)
}

func TestOpenCheckoutConstraintRace(t *testing.T) {
	// A commit rejected by the unique open-row index reads the same as
	// an ordinary lost race.
	store := newFakeStore(activeSpace(2))
	raced := &racedStore{fakeStore: store}
	eng := NewEngine(raced)
	_, err := eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 2, HolderName: "Ana"})
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

// racedStore hands out transactions whose Commit fails with the
// storage constraint, simulating an index rejection at commit time.
type racedStore struct {
	*fakeStore
}

func (s *racedStore) Begin(ctx context.Context) (Tx, error) {
	return &fakeTx{store: s.fakeStore, failEnd: ErrStorageConstraint}, nil
}

func TestConcurrentOpensSingleWinner(t *testing.T) {
	store := newFakeStore(activeSpace(11))
	eng := NewEngine(store)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.OpenCheckout(context.Background(), OpenRequest{KeyNumber: 11, HolderName: "Racer"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent open succeeds")
	assert.Len(t, store.entries, 1)
}
