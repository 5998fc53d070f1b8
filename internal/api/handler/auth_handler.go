package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/core/service"
)

type AuthHandler struct {
	sessions ports.SessionService
}

func NewAuthHandler(sessions ports.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type loginForm struct {
	Email    string `json:"email"    form:"email"    validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
	From     string `json:"from"     form:"from"`
}

// Department and position are normally left for the profile form.
type registerForm struct {
	Email      string `json:"email"      form:"email"      validate:"required,email"`
	Password   string `json:"password"   form:"password"`
	FirstName  string `json:"firstName"  form:"firstName"`
	LastName   string `json:"lastName"   form:"lastName"`
	Department string `json:"department" form:"department"`
	Position   string `json:"position"   form:"position"`
}

// formError is returned when a submission fails; the submitted email is
// echoed so the form keeps its value.
type formError struct {
	Error string `json:"error"`
	Email string `json:"email,omitempty"`
}

// LoginPage describes the login screen.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, screen{Screen: "login", From: c.QueryParam("from")})
}

// Login authenticates and redirects to the landing page.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginForm
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, formError{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, formError{Error: err.Error(), Email: req.Email})
	}

	if !h.sessions.Login(c.Request().Context(), req.Email, req.Password) {
		return c.JSON(http.StatusUnauthorized, formError{Error: "invalid email or password", Email: req.Email})
	}
	// The form posts back to /login?from=..., so the query is the usual source.
	from := req.From
	if from == "" {
		from = c.QueryParam("from")
	}
	return h.land(c, from)
}

// RegisterPage describes the registration screen.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	return c.JSON(http.StatusOK, screen{Screen: "register"})
}

// Register creates the account; the new session lands on the profile form.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerForm
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, formError{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, formError{Error: err.Error(), Email: req.Email})
	}

	ok := h.sessions.Register(c.Request().Context(), ports.RegisterRequest{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		Position:   req.Position,
	})
	if !ok {
		return c.JSON(http.StatusUnprocessableEntity, formError{Error: "registration failed, please try again", Email: req.Email})
	}
	return h.land(c, "")
}

// Logout always succeeds and returns to the login screen.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, domain.PathLogin)
}

func (h *AuthHandler) land(c echo.Context, from string) error {
	st := h.sessions.Snapshot()
	if st.User == nil {
		// Logged out again before we got here.
		return c.Redirect(http.StatusSeeOther, domain.PathLogin)
	}
	return c.Redirect(http.StatusSeeOther, service.LandingPath(st.User, from))
}
