package guard

import (
	"testing"

	"bloodlink.org/internal/session"
)

func TestCanAccess(t *testing.T) {
	donor := session.Session{Role: session.RoleDonor, Token: "t", State: session.StateConfirmed}
	restored := session.Session{Role: session.RoleReceiver, Token: "t", State: session.StateRestored}

	cases := []struct {
		name     string
		required session.Role
		s        session.Session
		allow    bool
		redirect string
	}{
		{"matching role", session.RoleDonor, donor, true, ""},
		{"restored session allowed", session.RoleReceiver, restored, true, ""},
		{"role mismatch goes to required login", session.RoleAdmin, donor, false, "/admin-login"},
		{"reverse mismatch", session.RoleDonor, restored, false, "/donor-login"},
		{"anonymous", session.RoleStaff, session.Anonymous(), false, "/staff-login"},
		{"token without auth state", session.RoleDonor, session.Session{Role: session.RoleDonor, Token: "t"}, false, "/donor-login"},
	}
	for _, tc := range cases {
		d := CanAccess(tc.required, tc.s)
		if d.Allow != tc.allow {
			t.Errorf("%s: Allow = %v, want %v", tc.name, d.Allow, tc.allow)
		}
		if d.RedirectTo != tc.redirect {
			t.Errorf("%s: RedirectTo = %q, want %q", tc.name, d.RedirectTo, tc.redirect)
		}
	}
}

func TestRouteTableCoversEveryRole(t *testing.T) {
	for _, role := range session.Roles {
		if LoginRoute(role) == PublicLanding {
			t.Errorf("role %s has no login route", role)
		}
		if DashboardRoute(role) == PublicLanding {
			t.Errorf("role %s has no dashboard route", role)
		}
	}
	if LoginRoute("root") != PublicLanding {
		t.Error("unknown role must fall back to the landing page")
	}
}
