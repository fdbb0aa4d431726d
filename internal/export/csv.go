// Package export renders the transaction ledger in flat tabular form
// for offline reporting.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/model"
)

// Header is the export contract: these fields, in this order.
// Downstream spreadsheets key on the positions, so the order is part
// of the interface and must not change.
var Header = []string{
	"id",
	"key_number",
	"holder_name",
	"holder_code",
	"holder_phone",
	"checkout_time",
	"due_time",
	"checkin_time",
	"status",
}

// WriteTransactionsCSV writes the entries as CSV, header first.
// Optional fields render as empty cells; timestamps use the ledger's
// second-resolution layout.
func WriteTransactionsCSV(w io.Writer, entries []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.ID,
			strconv.FormatInt(e.KeyNumber, 10),
			e.HolderName,
			strOrEmpty(e.HolderCode),
			strOrEmpty(e.HolderPhone),
			e.CheckoutTime.UTC().Format(custody.TimeLayout),
			timeOrEmpty(e.DueTime),
			timeOrEmpty(e.CheckinTime),
			e.Status,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(custody.TimeLayout)
}
