// Package guard gates navigation into role-scoped portal areas. It is
// pure: decisions are computed from the session value and never mutate it.
package guard

import (
	"bloodlink.org/internal/session"
)

// Decision is the outcome of an access check. When Allow is false,
// RedirectTo names the route the caller must navigate to instead.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Route table. Every role has its own login door; a mismatch sends the
// user to the *required* role's login page, never to a generic
// forbidden page.
var (
	loginRoutes = map[session.Role]string{
		session.RoleDonor:    "/donor-login",
		session.RoleStaff:    "/staff-login",
		session.RoleReceiver: "/receiver-login",
		session.RoleAccepter: "/accepter-login",
		session.RoleAdmin:    "/admin-login",
	}
	dashboardRoutes = map[session.Role]string{
		session.RoleDonor:    "/donor-dashboard",
		session.RoleStaff:    "/staff-dashboard",
		session.RoleReceiver: "/receiver-dashboard",
		session.RoleAccepter: "/accepter-dashboard",
		session.RoleAdmin:    "/admin-dashboard",
	}
)

// PublicLanding is the unauthenticated homepage route.
const PublicLanding = "/"

// LoginRoute returns the login page for a role.
func LoginRoute(r session.Role) string {
	if route, ok := loginRoutes[r]; ok {
		return route
	}
	return PublicLanding
}

// DashboardRoute returns the post-login landing page for a role.
func DashboardRoute(r session.Role) string {
	if route, ok := dashboardRoutes[r]; ok {
		return route
	}
	return PublicLanding
}

// CanAccess decides whether the session may enter an area requiring the
// given role. Equality match only; no role inherits another's access.
func CanAccess(required session.Role, s session.Session) Decision {
	if s.Authenticated() && s.Role == required {
		return Decision{Allow: true}
	}
	return Decision{Allow: false, RedirectTo: LoginRoute(required)}
}
