package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/repository"
)

// DirectoryHandler serves the read-only registry endpoints the
// guardhouse UI uses to populate its lists.
type DirectoryHandler struct {
	SpaceRepo  *repository.SpaceRepo
	PersonRepo *repository.PersonRepo
}

// NewDirectoryHandler constructs a DirectoryHandler.
func NewDirectoryHandler(spaceRepo *repository.SpaceRepo, personRepo *repository.PersonRepo) *DirectoryHandler {
	if spaceRepo == nil || personRepo == nil {
		panic("nil repository passed to NewDirectoryHandler")
	}
	return &DirectoryHandler{SpaceRepo: spaceRepo, PersonRepo: personRepo}
}

// ListSpaces handles GET /v1/spaces.  Pass active=true to hide
// retired keys.
func (h *DirectoryHandler) ListSpaces(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	spaces, err := h.SpaceRepo.List(c.Request().Context(), activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list spaces"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": spaces})
}

// GetSpace handles GET /v1/spaces/:key.
func (h *DirectoryHandler) GetSpace(c echo.Context) error {
	keyNumber, err := keyParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key number"})
	}
	space, err := h.SpaceRepo.GetByKey(c.Request().Context(), keyNumber)
	if err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, space)
}

// ListPersons handles GET /v1/persons.  Pass active=true to restrict
// the list to people who may currently hold keys.
func (h *DirectoryHandler) ListPersons(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	people, err := h.PersonRepo.List(c.Request().Context(), activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list persons"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": people})
}
