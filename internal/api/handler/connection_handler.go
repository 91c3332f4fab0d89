package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pich-app/pich-core/internal/core/ports"
)

// ConnectionHandler handles HTTP requests for the caller's connections.
type ConnectionHandler struct {
	remote ports.ConnectionRemote
}

func NewConnectionHandler(remote ports.ConnectionRemote) *ConnectionHandler {
	return &ConnectionHandler{remote: remote}
}

// List handles GET /connections.
//
// @Summary      List the caller's connections
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Connection
// @Failure      401  {object}  map[string]string
// @Router       /connections [get]
func (h *ConnectionHandler) List(c echo.Context) error {
	conns, err := h.remote.ListConnections(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conns)
}

// Create handles POST /connections with the id read from a QR code.
//
// @Summary      Connect with a scanned user
// @Tags         connections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.ScanInput  true  "Scanned user"
// @Success      201   {object}  domain.Connection
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /connections [post]
func (h *ConnectionHandler) Create(c echo.Context) error {
	var req ports.ScanInput
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.ScannedUserID == userID(c) {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot connect with yourself")
	}

	conn, err := h.remote.CreateConnection(c.Request().Context(), req.ScannedUserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, conn)
}

// ToggleFavorite handles POST /connections/:id/favorite.
//
// @Summary      Toggle the caller's favorite flag
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Connection id"
// @Success      200  {object}  domain.Connection
// @Failure      404  {object}  map[string]string
// @Router       /connections/{id}/favorite [post]
func (h *ConnectionHandler) ToggleFavorite(c echo.Context) error {
	conn, err := h.remote.ToggleFavorite(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conn)
}

// UpdateNotes handles PUT /connections/:id/notes.
//
// @Summary      Set the caller's notes on a connection
// @Tags         connections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Connection id"
// @Param        body  body      ports.NotesInput  true  "Notes, at most 500 characters"
// @Success      200   {object}  domain.Connection
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /connections/{id}/notes [put]
func (h *ConnectionHandler) UpdateNotes(c echo.Context) error {
	var req ports.NotesInput
	if err := bind(c, &req); err != nil {
		return err
	}

	conn, err := h.remote.UpdateNotes(c.Request().Context(), c.Param("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conn)
}

// Delete handles DELETE /connections/:id.
//
// @Summary      Remove a connection
// @Tags         connections
// @Security     BearerAuth
// @Param        id   path  string  true  "Connection id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /connections/{id} [delete]
func (h *ConnectionHandler) Delete(c echo.Context) error {
	if err := h.remote.DeleteConnection(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
