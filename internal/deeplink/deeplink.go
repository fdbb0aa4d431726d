// Package deeplink encodes and parses the stable addressing tuple a
// printed QR code carries: key number, action and an optional person
// pre-fill.  A phone scanning the code lands on the collaborator UI
// with these query parameters, which resolve into a pre-filled
// checkout or checkin request.
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Action selects what the scanned code should open.
type Action string

const (
	ActionInfo     Action = "info"
	ActionCheckout Action = "checkout"
	ActionCheckin  Action = "checkin"
)

// ErrInvalid is returned when the tuple cannot be parsed.
var ErrInvalid = errors.New("invalid deep link")

// Link is the decoded addressing tuple.
type Link struct {
	KeyNumber int64
	Action    Action
	PersonID  string // optional pre-fill, empty when absent
}

// Parse decodes the tuple from query parameters.  The key must be a
// positive integer; an absent or unknown action defaults to info, as
// the original codes did.
func Parse(values url.Values) (Link, error) {
	rawKey := strings.TrimSpace(values.Get("key"))
	key, err := strconv.ParseInt(rawKey, 10, 64)
	if err != nil || key <= 0 {
		return Link{}, fmt.Errorf("%w: key %q", ErrInvalid, rawKey)
	}
	action := Action(strings.TrimSpace(values.Get("action")))
	switch action {
	case ActionInfo, ActionCheckout, ActionCheckin:
	case "":
		action = ActionInfo
	default:
		return Link{}, fmt.Errorf("%w: action %q", ErrInvalid, values.Get("action"))
	}
	return Link{
		KeyNumber: key,
		Action:    action,
		PersonID:  strings.TrimSpace(values.Get("person_id")),
	}, nil
}

// URL renders the tuple as the absolute URL a QR code encodes.
func (l Link) URL(base string) string {
	q := url.Values{}
	q.Set("key", strconv.FormatInt(l.KeyNumber, 10))
	q.Set("action", string(l.Action))
	if l.PersonID != "" {
		q.Set("person_id", l.PersonID)
	}
	return strings.TrimRight(base, "/") + "/?" + q.Encode()
}
