package session

import (
	"strings"
	"time"
)

// Role identifies which portal area an account belongs to.
type Role string

const (
	RoleDonor    Role = "donor"
	RoleStaff    Role = "staff"
	RoleReceiver Role = "receiver"
	RoleAccepter Role = "accepter"
	RoleAdmin    Role = "admin"
)

// Roles lists every portal role in a stable order.
var Roles = []Role{RoleDonor, RoleStaff, RoleReceiver, RoleAccepter, RoleAdmin}

// ParseRole normalizes a raw role string. Unknown values are rejected.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range Roles {
		if r == known {
			return known, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }

// State distinguishes how much trust the current session carries.
// A restored session was rebuilt from local storage without asking the
// backend; a confirmed one has survived a profile fetch or an explicit
// validity check.
type State string

const (
	StateAnonymous State = "anonymous"
	StateRestored  State = "restored"
	StateConfirmed State = "confirmed"
)

// User carries the profile fields the portal keeps locally.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}

// Session is the single source of truth for "who is logged in, as what
// role, with what token".
type Session struct {
	User        User
	Role        Role
	Token       string
	Permissions []string
	IssuedAt    time.Time
	State       State
}

// Authenticated reports whether the session may access role-scoped areas.
// It holds only when the token is present and the role is a known one.
func (s Session) Authenticated() bool {
	if s.State != StateRestored && s.State != StateConfirmed {
		return false
	}
	return strings.TrimSpace(s.Token) != "" && s.Role.Valid()
}

// HasPermission checks an admin-style permission grant.
func (s Session) HasPermission(perm string) bool {
	perm = strings.TrimSpace(perm)
	if perm == "" {
		return false
	}
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Anonymous is the unauthenticated default every cleared store returns to.
func Anonymous() Session {
	return Session{State: StateAnonymous}
}

func normalizePermissions(perms []string) []string {
	if len(perms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(perms))
	var out []string
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
