package handler

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/export"
	"github.com/facilityops/key-custody/internal/model"
)

// transactionSource is the slice of the transaction repository the
// report handlers read.
type transactionSource interface {
	List(ctx context.Context, start, end *time.Time) ([]model.Transaction, error)
}

// AdminReportHandler serves the ledger history, summary metrics and
// the CSV export behind the admin gate.
type AdminReportHandler struct {
	TxRepo    transactionSource
	Projector *custody.Projector
}

// NewAdminReportHandler constructs an AdminReportHandler.
func NewAdminReportHandler(txRepo transactionSource, projector *custody.Projector) *AdminReportHandler {
	if txRepo == nil || projector == nil {
		panic("nil dependency passed to NewAdminReportHandler")
	}
	return &AdminReportHandler{TxRepo: txRepo, Projector: projector}
}

// Transactions handles GET /v1/admin/transactions.  Optional start and
// end query parameters bound the window; both accept RFC3339 or the
// ledger layout.
func (h *AdminReportHandler) Transactions(c echo.Context) error {
	start, end, err := reportWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time window"})
	}
	entries, err := h.TxRepo.List(c.Request().Context(), start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":   entries,
		"summary": h.summarize(entries, time.Now().UTC()),
	})
}

// ExportCSV handles GET /v1/admin/transactions/export.csv.  Same
// window semantics as Transactions, rendered as a file download.
func (h *AdminReportHandler) ExportCSV(c echo.Context) error {
	start, end, err := reportWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time window"})
	}
	entries, err := h.TxRepo.List(c.Request().Context(), start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list transactions"})
	}
	var buf bytes.Buffer
	if err := export.WriteTransactionsCSV(&buf, entries); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render export"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Metrics handles GET /v1/admin/metrics.  The counters cover the same
// optional start/end window as Transactions; overdue counts only open
// entries, judged by the same policy the status board applies.
func (h *AdminReportHandler) Metrics(c echo.Context) error {
	start, end, err := reportWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time window"})
	}
	entries, err := h.TxRepo.List(c.Request().Context(), start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list transactions"})
	}
	return c.JSON(http.StatusOK, h.summarize(entries, time.Now().UTC()))
}

// summarize folds a transaction list into the report counters.
func (h *AdminReportHandler) summarize(entries []model.Transaction, now time.Time) echo.Map {
	var open, overdue int
	for _, e := range entries {
		if e.CheckinTime != nil {
			continue
		}
		open++
		if h.Projector.Overdue(e.CheckoutTime, e.DueTime, now) {
			overdue++
		}
	}
	return echo.Map{
		"total_transactions": len(entries),
		"open_transactions":  open,
		"overdue_open":       overdue,
	}
}

// reportWindow parses the optional start and end query parameters.
func reportWindow(c echo.Context) (start, end *time.Time, err error) {
	if raw := c.QueryParam("start"); raw != "" {
		t, perr := parseWhen(raw)
		if perr != nil {
			return nil, nil, perr
		}
		start = &t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, perr := parseWhen(raw)
		if perr != nil {
			return nil, nil, perr
		}
		end = &t
	}
	return start, end, nil
}
