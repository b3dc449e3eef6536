package session

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"donor", RoleDonor, true},
		{" Admin ", RoleAdmin, true},
		{"RECEIVER", RoleReceiver, true},
		{"accepter", RoleAccepter, true},
		{"staff", RoleStaff, true},
		{"superuser", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseRole(%q) = %q,%v; want %q,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAuthenticatedInvariant(t *testing.T) {
	cases := []struct {
		name string
		s    Session
		want bool
	}{
		{"anonymous", Anonymous(), false},
		{"restored with token", Session{Role: RoleDonor, Token: "t", State: StateRestored}, true},
		{"confirmed with token", Session{Role: RoleAdmin, Token: "t", State: StateConfirmed}, true},
		{"confirmed empty token", Session{Role: RoleAdmin, State: StateConfirmed}, false},
		{"confirmed bogus role", Session{Role: "root", Token: "t", State: StateConfirmed}, false},
		{"token without state", Session{Role: RoleDonor, Token: "t"}, false},
	}
	for _, tc := range cases {
		if got := tc.s.Authenticated(); got != tc.want {
			t.Errorf("%s: Authenticated() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHasPermission(t *testing.T) {
	s := Session{Permissions: []string{"manage-donors", "view-reports"}}
	if !s.HasPermission("manage-donors") {
		t.Fatal("expected manage-donors grant")
	}
	if s.HasPermission("delete-everything") {
		t.Fatal("unexpected grant")
	}
	if s.HasPermission("") {
		t.Fatal("empty permission must never match")
	}
}
