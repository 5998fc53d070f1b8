package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/sdca/hris-portal/internal/api/handler"
	"github.com/sdca/hris-portal/internal/api/middleware"
	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/core/service"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Sessions ports.SessionService
	// Checks feed the readiness probe, keyed by dependency name.
	Checks map[string]handler.Check
	Logger zerolog.Logger
	// Registry receives the HTTP metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry
}

// featureScreens are the protected screens open to any signed-in user with a
// completed profile.
var featureScreens = []struct {
	path, name string
}{
	{domain.PathDashboard, "dashboard"},
	{domain.PathChangeSchedule, "change-schedule"},
	{domain.PathOfficialBusiness, "official-business"},
	{domain.PathTimeKeeping, "time-keeping"},
	{domain.PathLeaves, "leaves"},
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: reg,
	}))

	sessions := deps.Sessions
	authHandler := handler.NewAuthHandler(sessions)
	profileHandler := handler.NewProfileHandler(sessions)
	screenHandler := handler.NewScreenHandler()
	sessionHandler := handler.NewSessionHandler(sessions)

	// --- Public screens ---
	e.GET(domain.PathLogin, authHandler.LoginPage, middleware.LoginGate(sessions))
	e.POST(domain.PathLogin, authHandler.Login)
	e.GET(domain.PathRegister, authHandler.RegisterPage, middleware.Public(sessions, domain.PathRegister))
	e.POST(domain.PathRegister, authHandler.Register)
	e.POST(domain.PathLogout, authHandler.Logout)

	// --- Root: redirect only ---
	e.GET(domain.PathRoot, echo.NotFoundHandler, middleware.Guard(sessions, domain.PathRoot, func(st domain.SessionState, _ echo.Context) service.Decision {
		return service.AuthorizeRoot(st)
	}))

	// --- Protected screens ---
	for _, s := range featureScreens {
		e.GET(s.path, screenHandler.Screen(s.name), middleware.Protect(sessions, service.RouteRule{Path: s.path}))
	}
	e.GET(domain.PathHR, screenHandler.Screen("hr"),
		middleware.Protect(sessions, service.RouteRule{Path: domain.PathHR, Role: domain.RoleHR}))

	personalInfo := middleware.Protect(sessions, service.RouteRule{Path: domain.PathPersonalInfo, AllowIncompleteProfile: true})
	e.GET(domain.PathPersonalInfo, profileHandler.Page, personalInfo)
	e.POST(domain.PathPersonalInfo, profileHandler.Submit, personalInfo)

	// --- Session state for the front end ---
	e.GET("/api/session", sessionHandler.State)
	e.GET("/api/session/stream", sessionHandler.Stream)

	// --- Health probes and metrics ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)          // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
