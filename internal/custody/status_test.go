package custody

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilityops/key-custody/internal/model"
)

// fakeStatusSource serves canned rows to the projector.
type fakeStatusSource struct {
	spaces []model.Space
	latest map[int64]StatusRow
}

func (f *fakeStatusSource) ActiveSpaces(ctx context.Context) ([]model.Space, error) {
	return f.spaces, nil
}

func (f *fakeStatusSource) LatestCheckouts(ctx context.Context) (map[int64]StatusRow, error) {
	return f.latest, nil
}

func boardOf(t *testing.T, src *fakeStatusSource, cutoffHour int, now time.Time) map[int64]model.KeyState {
	t.Helper()
	p := NewProjector(src, cutoffHour).WithWarnf(func(string, ...interface{}) {})
	board, err := p.Board(context.Background(), now)
	require.NoError(t, err)
	states := make(map[int64]model.KeyState, len(board))
	for _, row := range board {
		states[row.KeyNumber] = row.State
	}
	return states
}

func ts(t time.Time) string { return t.Format(TimeLayout) }

func TestBoardNoHistoryIsAvailable(t *testing.T) {
	src := &fakeStatusSource{
		spaces: []model.Space{{KeyNumber: 1, DisplayName: "Room 1", Active: true}},
		latest: map[int64]StatusRow{},
	}
	states := boardOf(t, src, DefaultCutoffHour, time.Now().UTC())
	assert.Equal(t, model.KeyAvailable, states[1])
}

func TestBoardClosedEntryIsAvailable(t *testing.T) {
	co := "2026-03-10 08:00:00"
	ci := "2026-03-10 09:00:00"
	src := &fakeStatusSource{
		spaces: []model.Space{{KeyNumber: 1, Active: true}},
		latest: map[int64]StatusRow{1: {KeyNumber: 1, HolderName: "Ana", CheckoutTime: co, CheckinTime: &ci}},
	}
	states := boardOf(t, src, DefaultCutoffHour, time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, model.KeyAvailable, states[1])
}

func TestBoardDueTimeBoundary(t *testing.T) {
	due := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	dueStr := ts(due)
	src := &fakeStatusSource{
		spaces: []model.Space{{KeyNumber: 1, Active: true}},
		latest: map[int64]StatusRow{1: {
			KeyNumber:    1,
			HolderName:   "Ana",
			CheckoutTime: "2026-03-10 08:00:00",
			DueTime:      &dueStr,
		}},
	}

	// At the due instant the key is still IN_USE; one second past it
	// turns OVERDUE.
	assert.Equal(t, model.KeyInUse, boardOf(t, src, DefaultCutoffHour, due)[1])
	assert.Equal(t, model.KeyInUse, boardOf(t, src, DefaultCutoffHour, due.Add(-time.Second))[1])
	assert.Equal(t, model.KeyOverdue, boardOf(t, src, DefaultCutoffHour, due.Add(time.Second))[1])
}

func TestBoardCutoffFallback(t *testing.T) {
	src := &fakeStatusSource{
		spaces: []model.Space{{KeyNumber: 1, Active: true}},
		latest: map[int64]StatusRow{1: {
			KeyNumber:    1,
			HolderName:   "Ana",
			CheckoutTime: "2026-03-10 08:00:00",
		}},
	}

	// No due time: the 23:00 cutoff of the checkout day applies.
	assert.Equal(t, model.KeyInUse, boardOf(t, src, 23, time.Date(2026, 3, 10, 22, 59, 0, 0, time.UTC))[1])
	assert.Equal(t, model.KeyOverdue, boardOf(t, src, 23, time.Date(2026, 3, 10, 23, 0, 1, 0, time.UTC))[1])
}

func TestBoardCutoffRollsPastMidnight(t *testing.T) {
	// Checked out at 23:30, past the cutoff: the deadline is 23:00 the
	// next day, so the key is not overdue at 10:00 the following
	// morning.
	src := &fakeStatusSource{
		spaces: []model.Space{{KeyNumber: 1, Active: true}},
		latest: map[int64]StatusRow{1: {
			KeyNumber:    1,
			HolderName:   "Ana",
			CheckoutTime: "2026-03-10 23:30:00",
		}},
	}
	assert.Equal(t, model.KeyInUse, boardOf(t, src, 23, time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC))[1])
	assert.Equal(t, model.KeyOverdue, boardOf(t, src, 23, time.Date(2026, 3, 11, 23, 0, 1, 0, time.UTC))[1])
}

func TestBoardMalformedTimestampFailsOpen(t *testing.T) {
	bad := "not-a-timestamp"
	src := &fakeStatusSource{
		spaces: []model.Space{
			{KeyNumber: 1, Active: true},
			{KeyNumber: 2, Active: true},
		},
		latest: map[int64]StatusRow{
			1: {KeyNumber: 1, HolderName: "Ana", CheckoutTime: bad},
			2: {KeyNumber: 2, HolderName: "Bia", CheckoutTime: "2026-03-10 08:00:00", DueTime: &bad},
		},
	}

	var warned int
	p := NewProjector(src, DefaultCutoffHour).WithWarnf(func(string, ...interface{}) { warned++ })
	board, err := p.Board(context.Background(), time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err, "bad data is a warning, not an error")
	require.Len(t, board, 2)
	for _, row := range board {
		assert.Equal(t, model.KeyInUse, row.State)
	}
	assert.Equal(t, 2, warned)
}

func TestBoardSortedByKeyNumber(t *testing.T) {
	src := &fakeStatusSource{
		spaces: []model.Space{
			{KeyNumber: 30, Active: true},
			{KeyNumber: 2, Active: true},
			{KeyNumber: 14, Active: true},
		},
		latest: map[int64]StatusRow{},
	}
	p := NewProjector(src, DefaultCutoffHour)
	board, err := p.Board(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, int64(2), board[0].KeyNumber)
	assert.Equal(t, int64(14), board[1].KeyNumber)
	assert.Equal(t, int64(30), board[2].KeyNumber)
}

func TestNewProjectorRejectsBadCutoff(t *testing.T) {
	p := NewProjector(&fakeStatusSource{}, 99)
	assert.Equal(t, DefaultCutoffHour, p.cutoffHour)
}
