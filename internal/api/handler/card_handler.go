package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pich-app/pich-core/internal/core/ports"
)

// CardHandler handles HTTP requests for the caller's cards.
type CardHandler struct {
	remote ports.CardRemote
}

func NewCardHandler(remote ports.CardRemote) *CardHandler {
	return &CardHandler{remote: remote}
}

// List handles GET /cards.
//
// @Summary      List the caller's cards
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Card
// @Failure      401  {object}  map[string]string
// @Router       /cards [get]
func (h *CardHandler) List(c echo.Context) error {
	cards, err := h.remote.ListCards(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cards)
}

// Create handles POST /cards.
//
// @Summary      Create a card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.CreateCardInput  true  "Card details"
// @Success      201   {object}  domain.Card
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /cards [post]
func (h *CardHandler) Create(c echo.Context) error {
	var req ports.CreateCardInput
	if err := bind(c, &req); err != nil {
		return err
	}

	card, err := h.remote.CreateCard(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, card)
}

// Update handles PATCH /cards/:id.
//
// @Summary      Update a card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Card id"
// @Param        body  body      ports.CardPatch  true  "Fields to change"
// @Success      200   {object}  domain.Card
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /cards/{id} [patch]
func (h *CardHandler) Update(c echo.Context) error {
	var req ports.CardPatch
	if err := bind(c, &req); err != nil {
		return err
	}

	card, err := h.remote.UpdateCard(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, card)
}

// Delete handles DELETE /cards/:id.
//
// @Summary      Delete a card
// @Tags         cards
// @Security     BearerAuth
// @Param        id   path  string  true  "Card id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /cards/{id} [delete]
func (h *CardHandler) Delete(c echo.Context) error {
	if err := h.remote.DeleteCard(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleMain handles POST /cards/:id/main.
//
// @Summary      Mark a card as the main card
// @Description  Only the target card is updated; other cards keep their flag.
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Card id"
// @Success      200  {object}  domain.Card
// @Failure      404  {object}  map[string]string
// @Router       /cards/{id}/main [post]
func (h *CardHandler) ToggleMain(c echo.Context) error {
	card, err := h.remote.ToggleMainCard(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, card)
}
