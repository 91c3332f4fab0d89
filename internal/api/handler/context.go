package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// bind decodes the request body into req and runs the router's validator.
// Malformed bodies are reported as "invalid payload"; validation failures are
// returned as-is for the error handler to render.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// userID returns the subject set by the Auth middleware.
func userID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}
