package handlers

import (
	"net/http"

	"kovan/internal/authz"

	"github.com/labstack/echo/v4"
)

// httpError maps the authorization error taxonomy onto HTTP statuses. Unknown
// errors stay 500 so storage failures never leak policy details.
func httpError(c echo.Context, err error) error {
	var status int
	switch authz.KindOf(err) {
	case authz.KindDenied:
		status = http.StatusForbidden
	case authz.KindNotFound:
		status = http.StatusNotFound
	case authz.KindPolicy:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
