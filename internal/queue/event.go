// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published on the custody stream.
const (
	KindCheckout = "key.checkout"
	KindCheckin  = "key.checkin"
)

// CustodyEvent is published after a successful checkout or checkin.
// It carries enough information for downstream consumers to log or
// feed an audit trail without querying the primary database.  It is an
// audit stream, not a notification channel: nothing here watches for
// overdue keys.
type CustodyEvent struct {
	Kind          string  `json:"kind"`
	TransactionID string  `json:"transaction_id"`
	KeyNumber     int64   `json:"key_number"`
	DisplayName   string  `json:"display_name"`
	HolderName    string  `json:"holder_name"`
	OccurredAt    string  `json:"occurred_at"`
	DueTime       *string `json:"due_time,omitempty"`
}
