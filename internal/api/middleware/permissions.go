package middleware

import (
	"net/http"

	"kovan/internal/authz"

	"github.com/labstack/echo/v4"
)

// RequirePermission gates a route on one cell of the caller's permission
// matrix. Unknown resource or action names deny.
func RequirePermission(resource authz.Resource, action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := GetAuthContext(c)
			if !auth.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !auth.Matrix.Allows(resource, action) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

// RequireApproved blocks users whose membership is still pending or rejected.
func RequireApproved() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := GetAuthContext(c)
			if !auth.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !auth.Approved {
				return echo.NewHTTPError(http.StatusForbidden, "membership not approved")
			}
			return next(c)
		}
	}
}

// ActionForMethod maps an HTTP method to the matrix action it implies; used by
// the generic CRUD registry where routes are registered per model, not per
// handler.
func ActionForMethod(method string) (authz.Action, bool) {
	switch method {
	case http.MethodGet:
		return authz.ActionRead, true
	case http.MethodPost:
		return authz.ActionCreate, true
	case http.MethodPut, http.MethodPatch:
		return authz.ActionUpdate, true
	case http.MethodDelete:
		return authz.ActionDelete, true
	}
	return "", false
}

// RequireResource gates a route on the matrix row for a resource, deriving
// the action from the request method.
func RequireResource(resource authz.Resource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := GetAuthContext(c)
			if !auth.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			action, ok := ActionForMethod(c.Request().Method)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "invalid request method")
			}
			if !auth.Matrix.Allows(resource, action) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
