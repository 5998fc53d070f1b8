package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sdca/hris-portal/internal/core/domain"
)

// screen is the descriptor rendered for a portal screen. The screens
// themselves live in the front end; the portal only says which one to show
// and for whom.
type screen struct {
	Screen string       `json:"screen"`
	User   *domain.User `json:"user,omitempty"`
	IsHR   bool         `json:"isHR"`
	From   string       `json:"from,omitempty"`
	Data   any          `json:"data,omitempty"`
}

type ScreenHandler struct{}

func NewScreenHandler() *ScreenHandler {
	return &ScreenHandler{}
}

// Screen returns a handler rendering the named feature screen for the
// guarded user.
func (h *ScreenHandler) Screen(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := currentUser(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, screen{Screen: name, User: u, IsHR: u.IsHR()})
	}
}
