package model

import "time"

// Authorization is a time-bounded grant permitting a set of people to
// operate one key.  Either interval bound may be null, meaning
// unbounded past/future.  Grants are insert-only: there is no revoke
// operation.  RevokedAt exists in the schema as a future extension
// point and is never written by this service.
//
// Fields:
//  ID            – opaque unique identifier (uuid).
//  KeyNumber     – key the grant applies to.
//  MemoReference – free text, e.g. an administrative order number.
//  ValidFrom     – inclusive lower bound (nullable).
//  ValidTo       – inclusive upper bound (nullable).
//  RevokedAt     – reserved, always null (nullable).
//  CreatedAt     – timestamp when the grant was created.
type Authorization struct {
	ID            string     `json:"id"`                   // authorizations.id
	KeyNumber     int64      `json:"key_number"`           // authorizations.key_number
	MemoReference string     `json:"memo_reference"`       // authorizations.memo_reference
	ValidFrom     *time.Time `json:"valid_from,omitempty"` // authorizations.valid_from (nullable)
	ValidTo       *time.Time `json:"valid_to,omitempty"`   // authorizations.valid_to (nullable)
	RevokedAt     *time.Time `json:"-"`                    // authorizations.revoked_at (reserved)
	CreatedAt     time.Time  `json:"created_at"`           // authorizations.created_at
}

// AuthorizationMember links one authorization to one person.  Join
// records are insert-only, mirroring the grant itself.
//
// Fields:
//  AuthorizationID – the grant.
//  PersonID        – the person covered by the grant.
//  CreatedAt       – timestamp when the link was created.
type AuthorizationMember struct {
	AuthorizationID string    `json:"authorization_id"` // authorization_members.authorization_id
	PersonID        string    `json:"person_id"`        // authorization_members.person_id
	CreatedAt       time.Time `json:"created_at"`       // authorization_members.created_at
}
