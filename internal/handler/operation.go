package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/deeplink"
	"github.com/facilityops/key-custody/internal/model"
	"github.com/facilityops/key-custody/internal/queue"
	"github.com/facilityops/key-custody/internal/repository"
	queue_publisher "github.com/facilityops/key-custody/internal/service"
	"github.com/facilityops/key-custody/internal/statuscache"
)

// spaceLookup, personLookup and openLedger are the slices of the
// repositories the operation handler reads.  The concrete repos
// satisfy them; tests substitute fakes.
type spaceLookup interface {
	GetByKey(ctx context.Context, keyNumber int64) (model.Space, error)
}

type personLookup interface {
	GetByID(ctx context.Context, id string) (model.Person, error)
	List(ctx context.Context, activeOnly bool) ([]model.Person, error)
}

type openLedger interface {
	OpenByKey(ctx context.Context, keyNumber int64) (model.Transaction, error)
}

// OperationHandler serves the guardhouse surface: the status board and
// the two custody operations, plus the authorization picker behind
// them.  The custody engine owns all ledger writes; the handler only
// translates HTTP in and out, invalidates the board cache and emits
// the audit event after a successful write.
type OperationHandler struct {
	Engine     *custody.Engine
	Projector  *custody.Projector
	Resolver   *custody.Resolver
	SpaceRepo  spaceLookup
	PersonRepo personLookup
	TxRepo     openLedger
	Cache      *statuscache.Cache
}

// NewOperationHandler constructs an OperationHandler.  All
// dependencies must be non-nil.
func NewOperationHandler(engine *custody.Engine, projector *custody.Projector, resolver *custody.Resolver, spaceRepo spaceLookup, personRepo personLookup, txRepo openLedger, cache *statuscache.Cache) *OperationHandler {
	if engine == nil || projector == nil || resolver == nil || spaceRepo == nil || personRepo == nil || txRepo == nil || cache == nil {
		panic("nil dependency passed to NewOperationHandler")
	}
	return &OperationHandler{
		Engine:     engine,
		Projector:  projector,
		Resolver:   resolver,
		SpaceRepo:  spaceRepo,
		PersonRepo: personRepo,
		TxRepo:     txRepo,
		Cache:      cache,
	}
}

// Status handles GET /v1/status.  It returns the derived state of
// every active key at the current instant, served from the Redis cache
// between custody writes.
func (h *OperationHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	if bs, ok := h.Cache.Get(ctx); ok {
		return c.JSONBlob(http.StatusOK, bs)
	}
	board, err := h.Projector.Board(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute status"})
	}
	payload, err := json.Marshal(echo.Map{"items": board})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render status"})
	}
	h.Cache.Set(ctx, payload)
	return c.JSONBlob(http.StatusOK, payload)
}

// checkoutRequest is the body of POST /v1/keys/:key/checkout.  Holder
// data is captured by value at checkout time; optional fields stay nil
// when omitted.  The signature travels base64-encoded.
type checkoutRequest struct {
	HolderName  string  `json:"holder_name"`
	HolderCode  *string `json:"holder_code"`
	HolderPhone *string `json:"holder_phone"`
	DueTime     *string `json:"due_time"`
	Signature   *string `json:"signature"`
}

// Checkout handles POST /v1/keys/:key/checkout.  It opens a checkout
// through the engine and returns the new transaction id.  Precondition
// failures map to typed messages; a lost race reads the same as an
// ordinary "already checked out".
func (h *OperationHandler) Checkout(c echo.Context) error {
	keyNumber, err := keyParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key number"})
	}
	var body checkoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	due, err := parseWhenPtr(body.DueTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid due_time"})
	}
	sig, err := parseSignature(body.Signature)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature encoding"})
	}

	ctx := c.Request().Context()
	entry, err := h.Engine.OpenCheckout(ctx, custody.OpenRequest{
		KeyNumber:   keyNumber,
		HolderName:  body.HolderName,
		HolderCode:  body.HolderCode,
		HolderPhone: body.HolderPhone,
		DueTime:     due,
		Signature:   sig,
	})
	if err != nil {
		return custodyError(c, err)
	}

	h.Cache.Invalidate(ctx)
	h.publish(ctx, queue.KindCheckout, entry)
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction_id": entry.ID,
		"checkout_time":  entry.CheckoutTime.Format(time.RFC3339),
	})
}

// checkinRequest is the body of POST /v1/keys/:key/checkin.
type checkinRequest struct {
	Signature *string `json:"signature"`
}

// Checkin handles POST /v1/keys/:key/checkin.  It closes the open
// checkout for the key and returns the closed transaction id.
func (h *OperationHandler) Checkin(c echo.Context) error {
	keyNumber, err := keyParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key number"})
	}
	var body checkinRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	sig, err := parseSignature(body.Signature)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature encoding"})
	}

	ctx := c.Request().Context()
	entry, err := h.Engine.CloseCheckout(ctx, keyNumber, sig)
	if err != nil {
		return custodyError(c, err)
	}

	h.Cache.Invalidate(ctx)
	h.publish(ctx, queue.KindCheckin, entry)
	return c.JSON(http.StatusOK, echo.Map{
		"transaction_id": entry.ID,
		"checkin_time":   entry.CheckinTime.Format(time.RFC3339),
	})
}

// AuthorizedPeople handles GET /v1/keys/:key/authorized.  It evaluates
// the authorization windows at the requested instant (default: now).
// An empty result is not an error; per the operating policy the pool
// widens to every active person and the response carries a warning so
// the UI can surface it.
func (h *OperationHandler) AuthorizedPeople(c echo.Context) error {
	keyNumber, err := keyParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key number"})
	}
	at := time.Now().UTC()
	if raw := c.QueryParam("at"); raw != "" {
		parsed, err := parseWhen(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid at timestamp"})
		}
		at = parsed
	}
	ctx := c.Request().Context()
	if _, err := h.SpaceRepo.GetByKey(ctx, keyNumber); err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	people, err := h.Resolver.AuthorizedPeople(ctx, keyNumber, at)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve authorizations"})
	}
	if len(people) > 0 {
		return c.JSON(http.StatusOK, echo.Map{"people": people, "widened": false})
	}
	pool, err := h.PersonRepo.List(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list persons"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"people":  pool,
		"widened": true,
		"warning": "no one is currently authorized for this key",
	})
}

// Deeplink handles GET /v1/deeplink.  It resolves the parameters a
// scanned QR code carries into the target space, the person record to
// prefill and, when the key is out, its open transaction, so the
// client can jump straight to the right screen in one round trip.
func (h *OperationHandler) Deeplink(c echo.Context) error {
	link, err := deeplink.Parse(c.QueryParams())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deep link"})
	}
	ctx := c.Request().Context()
	space, err := h.SpaceRepo.GetByKey(ctx, link.KeyNumber)
	if err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp := echo.Map{
		"key_number": link.KeyNumber,
		"action":     string(link.Action),
		"space":      space,
	}
	if link.PersonID != "" {
		resp["person_id"] = link.PersonID
		// A stale or mistyped id just skips the prefill; the link
		// still resolves.
		if person, err := h.PersonRepo.GetByID(ctx, link.PersonID); err == nil {
			resp["person"] = person
		} else if !errors.Is(err, repository.ErrPersonNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if open, err := h.TxRepo.OpenByKey(ctx, link.KeyNumber); err == nil {
		resp["open_transaction"] = open
	} else if !errors.Is(err, custody.ErrNoOpenCheckout) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, resp)
}

// publish emits the audit event for a committed ledger write.  Best
// effort: the write has already committed, so broker failures are
// logged inside the publisher and otherwise ignored here.
func (h *OperationHandler) publish(ctx context.Context, kind string, entry model.Transaction) {
	ev := queue.CustodyEvent{
		Kind:          kind,
		TransactionID: entry.ID,
		KeyNumber:     entry.KeyNumber,
		HolderName:    entry.HolderName,
		OccurredAt:    entry.CheckoutTime.Format(custody.TimeLayout),
	}
	if space, err := h.SpaceRepo.GetByKey(ctx, entry.KeyNumber); err == nil {
		ev.DisplayName = space.DisplayName
	}
	if entry.CheckinTime != nil {
		ev.OccurredAt = entry.CheckinTime.Format(custody.TimeLayout)
	}
	if entry.DueTime != nil {
		due := entry.DueTime.Format(custody.TimeLayout)
		ev.DueTime = &due
	}
	_ = queue_publisher.PublishCustodyEvent(ctx, ev)
}

// custodyError maps engine outcomes onto HTTP responses.
func custodyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, custody.ErrSpaceNotActive):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "space not registered or not active"})
	case errors.Is(err, custody.ErrMissingHolderName):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "holder name is required"})
	case errors.Is(err, custody.ErrAlreadyCheckedOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "key already checked out"})
	case errors.Is(err, custody.ErrNoOpenCheckout):
		return c.JSON(http.StatusConflict, echo.Map{"error": "no open checkout for this key"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// keyParam parses the :key path parameter as a positive key number.
func keyParam(c echo.Context) (int64, error) {
	n, err := strconv.ParseInt(c.Param("key"), 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid key number")
	}
	return n, nil
}

// parseWhen accepts RFC3339 or the ledger's second-resolution layout.
func parseWhen(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(custody.TimeLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseWhenPtr(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseWhen(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseSignature decodes the optional base64 signature blob.
func parseSignature(raw *string) ([]byte, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*raw)
}
