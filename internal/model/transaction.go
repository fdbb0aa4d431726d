package model

import "time"

// Transaction status labels stored on the ledger row.  The label is an
// audit annotation written by the engine; current key status is always
// recomputed from the timestamps, never read back from this field.
const (
	TxStatusInUse    = "IN_USE"
	TxStatusReturned = "RETURNED"
)

// Transaction is one entry of the custody ledger: a single checkout
// and, once closed, its matching checkin.  Holder data is captured as
// free text at checkout time, deliberately decoupled from Person.
// Rows are created by open_checkout, mutated exactly once by
// close_checkout, and never deleted.  For a given key number at most
// one row may have a null CheckinTime at any time.
//
// Fields:
//  ID                – opaque unique identifier (uuid).
//  KeyNumber         – references the space whose key was taken.
//  HolderName        – name of the person who took the key.
//  HolderCode        – institutional ID captured at checkout (nullable).
//  HolderPhone       – phone captured at checkout (nullable).
//  CheckoutTime      – set at creation, immutable.
//  DueTime           – optional explicit deadline, immutable (nullable).
//  CheckinTime       – null until the key is returned.
//  Status            – stored label (IN_USE / RETURNED), audit only.
//  CheckoutSignature – opaque signature blob captured at checkout (nullable).
//  CheckinSignature  – opaque signature blob captured at checkin (nullable).
type Transaction struct {
	ID                string     `json:"id"`                     // transactions.id
	KeyNumber         int64      `json:"key_number"`             // transactions.key_number
	HolderName        string     `json:"holder_name"`            // transactions.holder_name
	HolderCode        *string    `json:"holder_code,omitempty"`  // transactions.holder_code (nullable)
	HolderPhone       *string    `json:"holder_phone,omitempty"` // transactions.holder_phone (nullable)
	CheckoutTime      time.Time  `json:"checkout_time"`          // transactions.checkout_time
	DueTime           *time.Time `json:"due_time,omitempty"`     // transactions.due_time (nullable)
	CheckinTime       *time.Time `json:"checkin_time,omitempty"` // transactions.checkin_time (nullable)
	Status            string     `json:"status"`                 // transactions.status
	CheckoutSignature []byte     `json:"-"`                      // transactions.checkout_signature (nullable)
	CheckinSignature  []byte     `json:"-"`                      // transactions.checkin_signature (nullable)
}
