package session

import (
	"encoding/json"
	"strings"
)

// Storage is the durable key/value store the portal persists identity
// into. Values are strings; absence is reported with ok=false, never an
// error. Implementations live under internal/store.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// Persisted storage keys. KeyToken holds the generic token for the active
// role; every role additionally gets its own token key so a login on one
// portal never clobbers a remembered login on another.
const (
	KeyToken             = "token"
	KeyUserRole          = "userRole"
	KeyUserData          = "userData"
	KeyAdminPermissions  = "adminPermissions"
	KeyLoginMethod       = "loginMethod"
	KeyRememberedLogin   = "rememberedLogin"
	KeyRegistrationDraft = "registrationDraft"
)

// RoleTokenKey returns the per-role token key, e.g. "donorToken".
func RoleTokenKey(r Role) string { return string(r) + "Token" }

// allKeys enumerates every key Logout must clear, for every role, so no
// stale cross-role token survives even if bookkeeping elsewhere drifted.
func allKeys() []string {
	keys := []string{
		KeyToken, KeyUserRole, KeyUserData, KeyAdminPermissions,
		KeyLoginMethod, KeyRememberedLogin, KeyRegistrationDraft,
	}
	for _, r := range Roles {
		keys = append(keys, RoleTokenKey(r))
	}
	return keys
}

// getJSON reads and decodes a JSON value defensively: missing keys and
// the literal junk some writers leave behind ("undefined", "null", "")
// are treated as absent, not as decode errors.
func getJSON(st Storage, key string, dst any) bool {
	raw, ok := st.Get(key)
	if !ok {
		return false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" || raw == "null" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false
	}
	return true
}

func setJSON(st Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return st.Set(key, string(data))
}
