package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pich-app/pich-core/internal/core/ports"
)

type QRCodeHandler struct {
	remote ports.QRRemote
}

func NewQRCodeHandler(remote ports.QRRemote) *QRCodeHandler {
	return &QRCodeHandler{remote: remote}
}

type qrCodeResponse struct {
	QRCode string `json:"qrCode"`
}

// Get handles GET /qrcode.
//
// @Summary      Get the caller's QR code as a PNG data URL
// @Tags         qrcode
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  qrCodeResponse
// @Failure      401  {object}  map[string]string
// @Router       /qrcode [get]
func (h *QRCodeHandler) Get(c echo.Context) error {
	url, err := h.remote.FetchQRCode(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, qrCodeResponse{QRCode: url})
}

// Refresh handles POST /qrcode/refresh.
//
// @Summary      Rotate the caller's QR code
// @Tags         qrcode
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  qrCodeResponse
// @Failure      401  {object}  map[string]string
// @Router       /qrcode/refresh [post]
func (h *QRCodeHandler) Refresh(c echo.Context) error {
	url, err := h.remote.RefreshQRCode(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, qrCodeResponse{QRCode: url})
}
