package model

// KeyState is the derived point-in-time state of a key, computed from
// the latest ledger entry and the wall clock.  It is never stored.
type KeyState string

const (
	KeyAvailable KeyState = "AVAILABLE"
	KeyInUse     KeyState = "IN_USE"
	KeyOverdue   KeyState = "OVERDUE"
)

// KeyStatus is one row of the status board: an active space joined
// with its latest checkout, if any.  The timestamp fields are echoed
// back as stored (second resolution) so the board mirrors the ledger.
type KeyStatus struct {
	KeyNumber    int64    `json:"key_number"`
	DisplayName  string   `json:"display_name"`
	Location     *string  `json:"location,omitempty"`
	State        KeyState `json:"state"`
	HolderName   *string  `json:"holder_name,omitempty"`
	CheckoutTime *string  `json:"checkout_time,omitempty"`
	DueTime      *string  `json:"due_time,omitempty"`
	CheckinTime  *string  `json:"checkin_time,omitempty"`
}
