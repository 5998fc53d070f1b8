package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/service"
	"github.com/sdca/hris-portal/internal/pkg/metrics"
)

// ContextKeyUser is where Guard stores the *domain.User of the request.
const ContextKeyUser = "user"

// StateReader exposes the current session snapshot.
type StateReader interface {
	Snapshot() domain.SessionState
}

// Decider turns a snapshot into a routing decision for one request.
type Decider func(st domain.SessionState, c echo.Context) service.Decision

// loadingResponse is the placeholder served while the session settles.
type loadingResponse struct {
	Status string `json:"status"`
	Screen string `json:"screen"`
}

// Guard evaluates decide against a fresh snapshot on every request. Loading
// answers with a placeholder and Retry-After, redirects use 303, and a render
// passes through with the user (if any) stored under ContextKeyUser.
func Guard(reader StateReader, route string, decide Decider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := reader.Snapshot()
			d := decide(st, c)
			metrics.RouteDecisionsTotal.WithLabelValues(route, d.Kind.String()).Inc()

			switch d.Kind {
			case service.DecisionLoading:
				c.Response().Header().Set("Retry-After", "1")
				c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
				return c.JSON(http.StatusOK, loadingResponse{Status: "loading", Screen: route})
			case service.DecisionRedirect:
				c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
				return c.Redirect(http.StatusSeeOther, d.Location)
			}

			if st.User != nil {
				c.Set(ContextKeyUser, st.User)
			}
			return next(c)
		}
	}
}

// Protect gates a screen behind authentication, profile completion and role.
func Protect(reader StateReader, rule service.RouteRule) echo.MiddlewareFunc {
	return Guard(reader, rule.Path, func(st domain.SessionState, c echo.Context) service.Decision {
		return service.Authorize(st, rule, c.Request().RequestURI)
	})
}

// LoginGate sends signed-in users from the login screen to their landing page.
func LoginGate(reader StateReader) echo.MiddlewareFunc {
	return Guard(reader, domain.PathLogin, func(st domain.SessionState, c echo.Context) service.Decision {
		d := service.AuthorizeLogin(st)
		if d.Kind == service.DecisionRedirect && st.User != nil {
			d.Location = service.LandingPath(st.User, c.QueryParam("from"))
		}
		return d
	})
}

// Public only holds the screen back while the session is loading.
func Public(reader StateReader, route string) echo.MiddlewareFunc {
	return Guard(reader, route, func(st domain.SessionState, _ echo.Context) service.Decision {
		return service.AuthorizePublic(st)
	})
}
