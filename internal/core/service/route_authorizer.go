package service

import (
	"net/url"
	"strings"

	"github.com/sdca/hris-portal/internal/core/domain"
)

// DecisionKind is the outcome class of a route authorization.
type DecisionKind int

const (
	DecisionRender DecisionKind = iota
	DecisionLoading
	DecisionRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionRender:
		return "render"
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision tells the HTTP layer what to do with a request.
type Decision struct {
	Kind     DecisionKind
	Location string // set for DecisionRedirect
}

// RouteRule describes the requirements of a protected route.
type RouteRule struct {
	Path string
	// Role restricts the route to one role; empty allows any authenticated user.
	Role domain.Role
	// AllowIncompleteProfile lets users who have not finished their profile in.
	AllowIncompleteProfile bool
}

// Authorize decides whether a protected route may render. While the session
// is loading it never redirects.
func Authorize(st domain.SessionState, rule RouteRule, requested string) Decision {
	if st.IsLoading {
		return Decision{Kind: DecisionLoading}
	}
	if !st.IsAuthenticated || st.User == nil {
		return redirect(LoginLocation(requested))
	}
	if !st.User.ProfileCompleted && !rule.AllowIncompleteProfile {
		return redirect(domain.PathPersonalInfo)
	}
	if rule.Role != "" && st.User.Role != rule.Role {
		return redirect(domain.PathDashboard)
	}
	return Decision{Kind: DecisionRender}
}

// AuthorizeRoot resolves the redirect-only root route.
func AuthorizeRoot(st domain.SessionState) Decision {
	if st.IsLoading {
		return Decision{Kind: DecisionLoading}
	}
	if st.IsAuthenticated {
		return redirect(domain.PathDashboard)
	}
	return redirect(domain.PathLogin)
}

// AuthorizeLogin resolves the login screen: signed-in users skip it.
func AuthorizeLogin(st domain.SessionState) Decision {
	if st.IsLoading {
		return Decision{Kind: DecisionLoading}
	}
	if st.IsAuthenticated && st.User != nil {
		return redirect(LandingPath(st.User, ""))
	}
	return Decision{Kind: DecisionRender}
}

// AuthorizePublic resolves public screens such as registration, which render
// for everyone once the session has settled.
func AuthorizePublic(st domain.SessionState) Decision {
	if st.IsLoading {
		return Decision{Kind: DecisionLoading}
	}
	return Decision{Kind: DecisionRender}
}

// LandingPath is where a user goes after signing in. An incomplete profile
// always wins; then a safe return path; then the role's home screen.
func LandingPath(u *domain.User, from string) string {
	if u == nil {
		return domain.PathLogin
	}
	if !u.ProfileCompleted {
		return domain.PathPersonalInfo
	}
	if p, ok := SafeReturnPath(from); ok {
		return p
	}
	return HomePath(u)
}

// HomePath is the role's default screen.
func HomePath(u *domain.User) string {
	if u.IsHR() {
		return domain.PathHR
	}
	return domain.PathDashboard
}

// LoginLocation builds the login URL carrying the originally requested path.
func LoginLocation(requested string) string {
	p, ok := SafeReturnPath(requested)
	if !ok {
		return domain.PathLogin
	}
	return domain.PathLogin + "?from=" + url.QueryEscape(p)
}

// SafeReturnPath accepts only local absolute paths that are not the auth
// screens themselves.
func SafeReturnPath(p string) (string, bool) {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return "", false
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	switch u.Path {
	case domain.PathRoot, domain.PathLogin, domain.PathRegister, domain.PathLogout:
		return "", false
	}
	return u.RequestURI(), true
}

func redirect(to string) Decision {
	return Decision{Kind: DecisionRedirect, Location: to}
}
