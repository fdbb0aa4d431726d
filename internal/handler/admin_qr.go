package handler

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/facilityops/key-custody/internal/deeplink"
	"github.com/facilityops/key-custody/internal/repository"
)

// qrSizePx is the rendered edge length of one code.  256 px scans
// reliably from an A6 label.
const qrSizePx = 256

// QRHandler renders the printable QR labels.  Each code encodes the
// deep link for its key so a phone scan lands on that key's screen.
type QRHandler struct {
	SpaceRepo *repository.SpaceRepo
	BaseURL   string
}

// NewQRHandler constructs a QRHandler.  baseURL is the public address
// the encoded links point at.
func NewQRHandler(spaceRepo *repository.SpaceRepo, baseURL string) *QRHandler {
	if spaceRepo == nil {
		panic("nil repository passed to NewQRHandler")
	}
	return &QRHandler{SpaceRepo: spaceRepo, BaseURL: baseURL}
}

// KeyPNG handles GET /v1/admin/qrcodes/:file where file is
// <key>.png.  The bare key number is accepted too.
func (h *QRHandler) KeyPNG(c echo.Context) error {
	raw := strings.TrimSuffix(c.Param("file"), ".png")
	keyNumber, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || keyNumber <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key number"})
	}
	if _, err := h.SpaceRepo.GetByKey(c.Request().Context(), keyNumber); err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	png, err := h.renderPNG(keyNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render qr code"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Bundle handles GET /v1/admin/qrcodes.zip.  One PNG per active key,
// named key-<number>.png, for batch label printing.
func (h *QRHandler) Bundle(c echo.Context) error {
	spaces, err := h.SpaceRepo.List(c.Request().Context(), true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list spaces"})
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, s := range spaces {
		png, err := h.renderPNG(s.KeyNumber)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render qr code"})
		}
		f, err := zw.Create(fmt.Sprintf("key-%d.png", s.KeyNumber))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build archive"})
		}
		if _, err := f.Write(png); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build archive"})
		}
	}
	if err := zw.Close(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build archive"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="qrcodes.zip"`)
	return c.Blob(http.StatusOK, "application/zip", buf.Bytes())
}

func (h *QRHandler) renderPNG(keyNumber int64) ([]byte, error) {
	link := deeplink.Link{KeyNumber: keyNumber, Action: deeplink.ActionInfo}
	return qrcode.Encode(link.URL(h.BaseURL), qrcode.Medium, qrSizePx)
}
