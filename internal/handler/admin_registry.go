package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/model"
	"github.com/facilityops/key-custody/internal/repository"
	"github.com/facilityops/key-custody/internal/statuscache"
)

// maxSeedCount bounds one bulk registration call.
const maxSeedCount = 500

// AdminRegistryHandler owns the administrative writes to the space and
// person registries.  All routes sit behind the admin gate.
type AdminRegistryHandler struct {
	SpaceRepo  *repository.SpaceRepo
	PersonRepo *repository.PersonRepo
	Cache      *statuscache.Cache
}

// NewAdminRegistryHandler constructs an AdminRegistryHandler.
func NewAdminRegistryHandler(spaceRepo *repository.SpaceRepo, personRepo *repository.PersonRepo, cache *statuscache.Cache) *AdminRegistryHandler {
	if spaceRepo == nil || personRepo == nil || cache == nil {
		panic("nil dependency passed to NewAdminRegistryHandler")
	}
	return &AdminRegistryHandler{SpaceRepo: spaceRepo, PersonRepo: personRepo, Cache: cache}
}

// spaceRequest is the body of PUT /v1/admin/spaces/:key.
type spaceRequest struct {
	DisplayName string  `json:"display_name"`
	Location    *string `json:"location"`
	Category    *string `json:"category"`
	Active      *bool   `json:"active"`
}

// UpsertSpace handles PUT /v1/admin/spaces/:key.  The key number is
// the identity; repeating the call updates the record in place.
func (h *AdminRegistryHandler) UpsertSpace(c echo.Context) error {
	keyNumber, err := keyParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key number"})
	}
	var body spaceRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.DisplayName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "display_name is required"})
	}
	space := model.Space{
		KeyNumber:   keyNumber,
		DisplayName: name,
		Location:    body.Location,
		Category:    model.CategoryRoom,
		Active:      true,
	}
	if body.Category != nil {
		cat, ok := parseCategory(*body.Category)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
		}
		space.Category = cat
	}
	if body.Active != nil {
		space.Active = *body.Active
	}

	ctx := c.Request().Context()
	if err := h.SpaceRepo.Upsert(ctx, space); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save space"})
	}
	h.Cache.Invalidate(ctx)
	saved, err := h.SpaceRepo.GetByKey(ctx, keyNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, saved)
}

// SeedSpaces handles POST /v1/admin/spaces/seed?count=N.  It registers
// keys 1..N with placeholder names so a fresh board is usable before
// anyone has named the rooms.  Existing records are left untouched.
func (h *AdminRegistryHandler) SeedSpaces(c echo.Context) error {
	count, err := strconv.Atoi(c.QueryParam("count"))
	if err != nil || count <= 0 || count > maxSeedCount {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("count must be between 1 and %d", maxSeedCount)})
	}
	ctx := c.Request().Context()
	created := 0
	for n := int64(1); n <= int64(count); n++ {
		if _, err := h.SpaceRepo.GetByKey(ctx, n); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrSpaceNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		space := model.Space{
			KeyNumber:   n,
			DisplayName: fmt.Sprintf("Key %d", n),
			Category:    model.CategoryRoom,
			Active:      true,
		}
		if err := h.SpaceRepo.Upsert(ctx, space); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to seed spaces"})
		}
		created++
	}
	h.Cache.Invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"requested": count, "created": created})
}

// personRequest is the body of person create and update calls.
type personRequest struct {
	Name         string  `json:"name"`
	ExternalCode *string `json:"external_code"`
	Phone        *string `json:"phone"`
	Active       *bool   `json:"active"`
}

// CreatePerson handles POST /v1/admin/persons.
func (h *AdminRegistryHandler) CreatePerson(c echo.Context) error {
	var body personRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	person := model.Person{
		Name:         name,
		ExternalCode: body.ExternalCode,
		Phone:        body.Phone,
		Active:       true,
	}
	if body.Active != nil {
		person.Active = *body.Active
	}
	if err := h.PersonRepo.Create(c.Request().Context(), &person); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create person"})
	}
	return c.JSON(http.StatusCreated, person)
}

// UpdatePerson handles PUT /v1/admin/persons/:id.  Deactivation is the
// supported removal path so history keeps resolving.
func (h *AdminRegistryHandler) UpdatePerson(c echo.Context) error {
	id := c.Param("id")
	var body personRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	person, err := h.PersonRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPersonNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if name := strings.TrimSpace(body.Name); name != "" {
		person.Name = name
	}
	if body.ExternalCode != nil {
		person.ExternalCode = body.ExternalCode
	}
	if body.Phone != nil {
		person.Phone = body.Phone
	}
	if body.Active != nil {
		person.Active = *body.Active
	}
	if err := h.PersonRepo.Update(ctx, person); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update person"})
	}
	return c.JSON(http.StatusOK, person)
}

func parseCategory(raw string) (model.SpaceCategory, bool) {
	switch model.SpaceCategory(strings.ToUpper(strings.TrimSpace(raw))) {
	case model.CategoryRoom:
		return model.CategoryRoom, true
	case model.CategoryLaboratory:
		return model.CategoryLaboratory, true
	case model.CategorySecretariat:
		return model.CategorySecretariat, true
	default:
		return "", false
	}
}
