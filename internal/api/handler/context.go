package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sdca/hris-portal/internal/api/middleware"
	"github.com/sdca/hris-portal/internal/core/domain"
)

// currentUser returns the user the guard attached to the request. A missing
// user means the route was mounted without a guard; fail closed.
func currentUser(c echo.Context) (*domain.User, error) {
	u, _ := c.Get(middleware.ContextKeyUser).(*domain.User)
	if u == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return u, nil
}
