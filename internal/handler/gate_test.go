package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilityops/key-custody/internal/config"
	"github.com/facilityops/key-custody/internal/utils"
)

func gateLogin(t *testing.T, cfg config.Config, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, NewGateHandler(cfg).Login(e.NewContext(req, rec)))
	return rec
}

func TestGateLoginIssuesToken(t *testing.T) {
	cfg := config.Config{AdminPass: "hunter2", TokenSecret: "secret", AdminTokenTTL: time.Hour}
	rec := gateLogin(t, cfg, `{"password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NoError(t, utils.VerifyGateToken("secret", resp.Token))
}

func TestGateLoginRejectsWrongSecret(t *testing.T) {
	cfg := config.Config{AdminPass: "hunter2", TokenSecret: "secret", AdminTokenTTL: time.Hour}
	rec := gateLogin(t, cfg, `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateLoginUnconfiguredGateLocks(t *testing.T) {
	cfg := config.Config{TokenSecret: "secret", AdminTokenTTL: time.Hour}
	rec := gateLogin(t, cfg, `{"password":""}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
