package model

import "time"

// SpaceCategory classifies what kind of space a key opens.  The set is
// open to extension; unknown values read from storage are kept as-is.
type SpaceCategory string

const (
	CategoryRoom        SpaceCategory = "ROOM"
	CategoryLaboratory  SpaceCategory = "LABORATORY"
	CategorySecretariat SpaceCategory = "SECRETARIAT"
)

// Space is a physical room or lab identified by its key number.  The
// key number is chosen by the administrator, never generated, and is
// immutable once created: saving the same number again replaces the
// descriptive fields in place.  Spaces are soft-deleted only, because
// the transaction ledger references them by key number.
//
// Fields:
//  KeyNumber   – stable identifier chosen by the administrator.
//  DisplayName – human-readable room/lab name.
//  Location    – optional free-text location (nullable).
//  Category    – ROOM, LABORATORY or SECRETARIAT.
//  Active      – soft-delete flag; inactive spaces reject operations.
//  CreatedAt   – timestamp when the record was created.
//  UpdatedAt   – timestamp when the record was last updated.
type Space struct {
	KeyNumber   int64         `json:"key_number"`         // spaces.key_number
	DisplayName string        `json:"display_name"`       // spaces.display_name
	Location    *string       `json:"location,omitempty"` // spaces.location (nullable)
	Category    SpaceCategory `json:"category"`           // spaces.category
	Active      bool          `json:"active"`             // spaces.is_active
	CreatedAt   time.Time     `json:"created_at"`         // spaces.created_at
	UpdatedAt   time.Time     `json:"updated_at"`         // spaces.updated_at
}
