package custody

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/facilityops/key-custody/internal/model"
)

// TimeLayout is the storage representation of ledger timestamps:
// DATETIME at second resolution, read back as strings by the status
// path so one malformed row cannot abort the whole projection.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultCutoffHour is the end-of-day hour used to judge overdue
// status for checkouts with no explicit due time.
const DefaultCutoffHour = 23

// StatusRow is the latest ledger entry for one key, with timestamps in
// raw storage form.  DueTime/CheckinTime are nil when the columns are
// null.
type StatusRow struct {
	KeyNumber    int64
	HolderName   string
	CheckoutTime string
	DueTime      *string
	CheckinTime  *string
}

// StatusSource provides the two reads the projector joins: the active
// spaces and each key's most recent checkout.
type StatusSource interface {
	ActiveSpaces(ctx context.Context) ([]model.Space, error)
	LatestCheckouts(ctx context.Context) (map[int64]StatusRow, error)
}

// Projector derives the point-in-time state of every active key.  It
// holds no state of its own; status is recomputed from the ledger
// timestamps on every call and never persisted.
type Projector struct {
	src        StatusSource
	cutoffHour int
	warnf      func(format string, args ...interface{})
}

// NewProjector returns a Projector using the given cutoff hour.
// Out-of-range hours fall back to DefaultCutoffHour.
func NewProjector(src StatusSource, cutoffHour int) *Projector {
	if cutoffHour < 0 || cutoffHour > 23 {
		cutoffHour = DefaultCutoffHour
	}
	return &Projector{src: src, cutoffHour: cutoffHour, warnf: log.Printf}
}

// WithWarnf replaces the data-quality warning sink.  Used by tests.
func (p *Projector) WithWarnf(f func(format string, args ...interface{})) *Projector {
	p.warnf = f
	return p
}

// Board computes the status of all active spaces at the given instant,
// ordered by key number.  A space with no ledger entry, or whose
// latest entry is closed, is AVAILABLE.  An open entry is judged
// against its due time when set, otherwise against the daily cutoff
// derived from its checkout day.
func (p *Projector) Board(ctx context.Context, now time.Time) ([]model.KeyStatus, error) {
	spaces, err := p.src.ActiveSpaces(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := p.src.LatestCheckouts(ctx)
	if err != nil {
		return nil, err
	}

	board := make([]model.KeyStatus, 0, len(spaces))
	for _, sp := range spaces {
		st := model.KeyStatus{
			KeyNumber:   sp.KeyNumber,
			DisplayName: sp.DisplayName,
			Location:    sp.Location,
			State:       model.KeyAvailable,
		}
		if row, ok := latest[sp.KeyNumber]; ok {
			holder := row.HolderName
			co := row.CheckoutTime
			st.HolderName = &holder
			st.CheckoutTime = &co
			st.DueTime = row.DueTime
			st.CheckinTime = row.CheckinTime
			st.State = p.stateOf(row, now)
		}
		board = append(board, st)
	}
	sort.Slice(board, func(i, j int) bool { return board[i].KeyNumber < board[j].KeyNumber })
	return board, nil
}

// stateOf judges a single latest ledger entry.  Parse failures on
// stored timestamps fail open: the row counts as IN_USE and the bad
// value is reported as a data-quality warning, never as an error.
func (p *Projector) stateOf(row StatusRow, now time.Time) model.KeyState {
	if row.CheckinTime != nil {
		return model.KeyAvailable
	}
	if row.DueTime != nil {
		due, err := time.Parse(TimeLayout, *row.DueTime)
		if err != nil {
			p.warnf("status: key %d has malformed due_time %q: %v", row.KeyNumber, *row.DueTime, err)
			return model.KeyInUse
		}
		if p.Overdue(time.Time{}, &due, now) {
			return model.KeyOverdue
		}
		return model.KeyInUse
	}
	checkout, err := time.Parse(TimeLayout, row.CheckoutTime)
	if err != nil {
		p.warnf("status: key %d has malformed checkout_time %q: %v", row.KeyNumber, row.CheckoutTime, err)
		return model.KeyInUse
	}
	if p.Overdue(checkout, nil, now) {
		return model.KeyOverdue
	}
	return model.KeyInUse
}

// Overdue judges one open checkout at the given instant: against its
// due time when set, otherwise against the daily cutoff derived from
// the checkout day.  Shared by the board and the report metrics so
// both apply the same policy.
func (p *Projector) Overdue(checkout time.Time, due *time.Time, now time.Time) bool {
	if due != nil {
		return now.After(*due)
	}
	return now.After(cutoffInstant(checkout, p.cutoffHour))
}

// cutoffInstant returns the implicit deadline for a checkout with no
// due time: the cutoff hour on the checkout's own day, rolled to the
// same hour the next day when the checkout happened past it.
func cutoffInstant(checkout time.Time, hour int) time.Time {
	c := time.Date(checkout.Year(), checkout.Month(), checkout.Day(), hour, 0, 0, 0, checkout.Location())
	if checkout.After(c) {
		c = c.Add(24 * time.Hour)
	}
	return c
}
