package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/model"
)

type fakeTransactionSource struct {
	entries []model.Transaction
	start   *time.Time
	end     *time.Time
}

func (f *fakeTransactionSource) List(_ context.Context, start, end *time.Time) ([]model.Transaction, error) {
	f.start, f.end = start, end
	return f.entries, nil
}

func metricsGet(t *testing.T, h *AdminReportHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Metrics(e.NewContext(req, rec)))
	return rec
}

func TestMetricsForwardsWindow(t *testing.T) {
	src := &fakeTransactionSource{}
	h := NewAdminReportHandler(src, custody.NewProjector(nil, 18))

	rec := metricsGet(t, h, "/v1/admin/metrics?start=2026-03-01T00:00:00Z&end=2026-03-31T23:59:59Z")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, src.start)
	require.NotNil(t, src.end)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *src.start)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), *src.end)
}

func TestMetricsRejectsBadWindow(t *testing.T) {
	h := NewAdminReportHandler(&fakeTransactionSource{}, custody.NewProjector(nil, 18))
	rec := metricsGet(t, h, "/v1/admin/metrics?start=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummarizeCountsOverdueOpenOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pastDue := now.Add(-time.Hour)
	futureDue := now.Add(time.Hour)
	closed := now.Add(-30 * time.Minute)

	entries := []model.Transaction{
		// Closed, past due: never overdue once returned.
		{ID: "a", CheckoutTime: now.Add(-3 * time.Hour), DueTime: &pastDue, CheckinTime: &closed, Status: "RETURNED"},
		// Open, not yet due.
		{ID: "b", CheckoutTime: now.Add(-time.Hour), DueTime: &futureDue, Status: "OPEN"},
		// Open, past due.
		{ID: "c", CheckoutTime: now.Add(-3 * time.Hour), DueTime: &pastDue, Status: "OPEN"},
		// Open without due time, checked out two days ago: past the
		// rolling cutoff.
		{ID: "d", CheckoutTime: now.Add(-48 * time.Hour), Status: "OPEN"},
	}

	h := NewAdminReportHandler(&fakeTransactionSource{}, custody.NewProjector(nil, 18))
	got := h.summarize(entries, now)

	assert.Equal(t, 4, got["total_transactions"])
	assert.Equal(t, 3, got["open_transactions"])
	assert.Equal(t, 2, got["overdue_open"])
}

func TestMetricsDerivesCountersFromWindowEntries(t *testing.T) {
	due := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	src := &fakeTransactionSource{entries: []model.Transaction{
		{ID: "x", CheckoutTime: due.Add(-2 * time.Hour), DueTime: &due, Status: "OPEN"},
	}}
	h := NewAdminReportHandler(src, custody.NewProjector(nil, 18))

	rec := metricsGet(t, h, "/v1/admin/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total   int `json:"total_transactions"`
		Open    int `json:"open_transactions"`
		Overdue int `json:"overdue_open"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.Open)
	assert.Equal(t, 1, resp.Overdue)
}
