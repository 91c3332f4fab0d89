package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pich-app/pich-core/internal/core/ports"
)

type ProfileHandler struct {
	remote ports.ProfileRemote
}

func NewProfileHandler(remote ports.ProfileRemote) *ProfileHandler {
	return &ProfileHandler{remote: remote}
}

// Get handles GET /profile.
//
// @Summary      Get the caller's profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserProfile
// @Failure      401  {object}  map[string]string
// @Router       /profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	p, err := h.remote.FetchProfile(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Update handles PATCH /profile/:id. Absent fields are left untouched.
//
// @Summary      Update the caller's profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "User id"
// @Param        body  body      ports.ProfilePatch  true  "Fields to change"
// @Success      200   {object}  domain.UserProfile
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /profile/{id} [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	var req ports.ProfilePatch
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.remote.UpdateProfile(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
