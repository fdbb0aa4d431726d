package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/model"
	"github.com/facilityops/key-custody/internal/repository"
)

// AdminAuthorizationHandler manages authorization grants and their
// member lists.  Grants are insert only; a mistake is corrected by
// revoking the grant and issuing a new one, never by editing history.
type AdminAuthorizationHandler struct {
	AuthRepo *repository.AuthorizationRepo
}

// NewAdminAuthorizationHandler constructs an AdminAuthorizationHandler.
func NewAdminAuthorizationHandler(authRepo *repository.AuthorizationRepo) *AdminAuthorizationHandler {
	if authRepo == nil {
		panic("nil repository passed to NewAdminAuthorizationHandler")
	}
	return &AdminAuthorizationHandler{AuthRepo: authRepo}
}

// authorizationRequest is the body of POST /v1/admin/authorizations.
// Either bound may be omitted for an open-ended window.
type authorizationRequest struct {
	KeyNumber     int64    `json:"key_number"`
	MemoReference string   `json:"memo_reference"`
	ValidFrom     *string  `json:"valid_from"`
	ValidTo       *string  `json:"valid_to"`
	PersonIDs     []string `json:"person_ids"`
}

// Create handles POST /v1/admin/authorizations.  The grant and its
// initial member list are written in one call; more people can be
// attached later through AddPerson.
func (h *AdminAuthorizationHandler) Create(c echo.Context) error {
	var body authorizationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.KeyNumber <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "key_number is required"})
	}
	memo := strings.TrimSpace(body.MemoReference)
	if memo == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "memo_reference is required"})
	}
	validFrom, err := parseWhenPtr(body.ValidFrom)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid valid_from"})
	}
	validTo, err := parseWhenPtr(body.ValidTo)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid valid_to"})
	}
	if validFrom != nil && validTo != nil && validTo.Before(*validFrom) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_to precedes valid_from"})
	}

	auth := model.Authorization{
		KeyNumber:     body.KeyNumber,
		MemoReference: memo,
		ValidFrom:     validFrom,
		ValidTo:       validTo,
	}
	ctx := c.Request().Context()
	if err := h.AuthRepo.Create(ctx, &auth); err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create authorization"})
	}
	attached := make([]string, 0, len(body.PersonIDs))
	for _, pid := range body.PersonIDs {
		if err := h.AuthRepo.AddPerson(ctx, auth.ID, pid); err != nil {
			if errors.Is(err, repository.ErrPersonNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found: " + pid})
			}
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to attach person"})
		}
		attached = append(attached, pid)
	}
	return c.JSON(http.StatusCreated, echo.Map{"authorization": auth, "person_ids": attached})
}

// List handles GET /v1/admin/authorizations.  Pass key=N to narrow to
// one key's grants.
func (h *AdminAuthorizationHandler) List(c echo.Context) error {
	var keyNumber *int64
	if raw := c.QueryParam("key"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key number"})
		}
		keyNumber = &n
	}
	grants, err := h.AuthRepo.List(c.Request().Context(), keyNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list authorizations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": grants})
}

// People handles GET /v1/admin/authorizations/:id/people.  The member
// list includes inactive people so past grants remain legible.
func (h *AdminAuthorizationHandler) People(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()
	if _, err := h.AuthRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAuthorizationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "authorization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	people, err := h.AuthRepo.GrantPeople(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list members"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": people})
}

// addPersonRequest is the body of POST /v1/admin/authorizations/:id/people.
type addPersonRequest struct {
	PersonID string `json:"person_id"`
}

// AddPerson handles POST /v1/admin/authorizations/:id/people.
func (h *AdminAuthorizationHandler) AddPerson(c echo.Context) error {
	id := c.Param("id")
	var body addPersonRequest
	if err := c.Bind(&body); err != nil || body.PersonID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "person_id is required"})
	}
	ctx := c.Request().Context()
	if _, err := h.AuthRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAuthorizationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "authorization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.AuthRepo.AddPerson(ctx, id, body.PersonID); err != nil {
		switch {
		case errors.Is(err, repository.ErrPersonNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "person already attached"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to attach person"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"authorization_id": id, "person_id": body.PersonID})
}
