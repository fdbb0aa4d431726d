package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/config"
	"github.com/facilityops/key-custody/internal/utils"
)

// GateHandler implements the admin gate: a single shared-secret
// compare.  A successful compare issues a short-lived token so the
// secret is not re-sent on every admin call.  This is not a user
// account system; the only role the token carries is ADMIN.
type GateHandler struct {
	Config config.Config
}

// NewGateHandler constructs a GateHandler over the loaded config.
func NewGateHandler(cfg config.Config) *GateHandler { return &GateHandler{Config: cfg} }

// Login handles POST /v1/admin/login.  The body carries the typed
// secret; a match returns the gate token and its expiry, a mismatch
// 401.  Failed compares share one message so the response does not
// reveal whether a gate is configured at all.
func (h *GateHandler) Login(c echo.Context) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !utils.VerifyAdminSecret(h.Config.AdminPass, h.Config.AdminPassHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewGateToken(h.Config.TokenSecret, h.Config.AdminTokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token":      tok.Token,
		"expires_at": tok.Exp.Format(time.RFC3339),
	})
}
