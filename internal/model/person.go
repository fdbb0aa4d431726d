package model

import "time"

// Person is a registered key holder.  Person records exist only to
// pre-fill checkout forms and to anchor authorization memberships;
// the ledger captures holder data by value, so editing or
// deactivating a person never rewrites history.
//
// Fields:
//  ID           – opaque unique identifier (uuid), generated at creation.
//  Name         – full name.
//  ExternalCode – institutional ID such as SIAPE or enrollment (nullable).
//  Phone        – contact phone (nullable).
//  Active       – soft-delete flag; inactive persons are excluded from
//                 authorization resolution and pickers.
//  CreatedAt    – timestamp when the record was created.
//  UpdatedAt    – timestamp when the record was last updated.
type Person struct {
	ID           string    `json:"id"`                      // persons.id
	Name         string    `json:"name"`                    // persons.name
	ExternalCode *string   `json:"external_code,omitempty"` // persons.external_code (nullable)
	Phone        *string   `json:"phone,omitempty"`         // persons.phone (nullable)
	Active       bool      `json:"active"`                  // persons.is_active
	CreatedAt    time.Time `json:"created_at"`              // persons.created_at
	UpdatedAt    time.Time `json:"updated_at"`              // persons.updated_at
}
