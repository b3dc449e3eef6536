package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bloodlink.org/internal/audit"
	"bloodlink.org/internal/obs"
)

const defaultLogoutTimeout = 3 * time.Second

// Backend is the slice of the portal API the store needs. The remote
// client satisfies it; tests substitute fakes.
type Backend interface {
	// Logout invalidates the token server-side. Best effort only.
	Logout(ctx context.Context, role Role, token string) error
	// CheckToken returns ErrInvalidToken when the backend explicitly
	// rejects the token, any other error on transport trouble.
	CheckToken(ctx context.Context, role Role, token string) error
	// Profile fetches the account profile for the given token.
	Profile(ctx context.Context, role Role, token string) (User, []string, error)
}

// Store owns the current session and funnels every read and write of the
// persisted identity keys. All other packages consume derived state from
// here instead of touching Storage directly.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	backend Backend
	now     func() time.Time

	logoutTimeout time.Duration
	cur           Session
}

// StoreOption configures Store behavior.
type StoreOption func(*Store)

// WithBackend wires the portal API used for logout, token checks and
// profile confirmation. Without one the store operates purely locally.
func WithBackend(b Backend) StoreOption {
	return func(s *Store) { s.backend = b }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogoutTimeout bounds the best-effort backend notify during Logout.
func WithLogoutTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// NewStore constructs a Store over the given durable storage.
func NewStore(storage Storage, opts ...StoreOption) (*Store, error) {
	if storage == nil {
		return nil, errors.New("session: storage is required")
	}
	s := &Store{
		storage:       storage,
		now:           time.Now,
		logoutTimeout: defaultLogoutTimeout,
		cur:           Anonymous(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Current returns a copy of the active session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.cur
	cur.Permissions = append([]string(nil), s.cur.Permissions...)
	return cur
}

// Login records a backend-confirmed login. Storage is updated before the
// in-memory session becomes observable, so a crash between the two never
// leaves dependents seeing a session that would not survive a restart.
func (s *Store) Login(role Role, token string, user User, perms []string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous(), fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if !role.Valid() {
		return Anonymous(), fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	perms = normalizePermissions(perms)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(KeyToken, token); err != nil {
		return Anonymous(), fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.Set(RoleTokenKey(role), token); err != nil {
		return Anonymous(), fmt.Errorf("persist role token: %w", err)
	}
	if err := s.storage.Set(KeyUserRole, role.String()); err != nil {
		return Anonymous(), fmt.Errorf("persist role: %w", err)
	}
	if err := setJSON(s.storage, KeyUserData, user); err != nil {
		return Anonymous(), fmt.Errorf("persist user: %w", err)
	}
	if role == RoleAdmin && len(perms) > 0 {
		if err := setJSON(s.storage, KeyAdminPermissions, perms); err != nil {
			return Anonymous(), fmt.Errorf("persist permissions: %w", err)
		}
	}

	s.cur = Session{
		User:        user,
		Role:        role,
		Token:       token,
		Permissions: perms,
		IssuedAt:    s.now().UTC(),
		State:       StateConfirmed,
	}
	_ = audit.LogEvent(audit.WithActor(context.Background(), user.ID), "login", map[string]any{"role": role.String()})
	return s.cur, nil
}

// Logout notifies the backend best-effort, then unconditionally clears
// every persisted key for every role. A dead backend never blocks a
// local logout.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	backend := s.backend
	cur := s.cur
	s.mu.Unlock()

	if backend != nil && cur.Token != "" {
		notifyCtx, cancel := context.WithTimeout(ctx, s.logoutTimeout)
		if err := backend.Logout(notifyCtx, cur.Role, cur.Token); err != nil {
			obs.LogEvent("logout_notify_failed", map[string]any{"error": err.Error()})
		}
		cancel()
	}

	_ = audit.LogEvent(audit.WithActor(ctx, cur.User.ID), "logout", map[string]any{"role": cur.Role.String()})
	s.Invalidate()
}

// Invalidate clears the session locally without contacting the backend.
// The remote client calls this on any 401.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range allKeys() {
		if err := s.storage.Delete(key); err != nil {
			obs.LogEvent("storage_clear_failed", map[string]any{"key": key, "error": err.Error()})
		}
	}
	s.cur = Anonymous()
}

// Restore optimistically rebuilds the session from persisted state on
// startup, without a backend round trip. Tokens that decode as JWTs and
// are already expired are cleared instead of restored; opaque tokens are
// accepted as-is.
func (s *Store) Restore() Session {
	s.mu.Lock()

	token, ok := s.storage.Get(KeyToken)
	token = strings.TrimSpace(token)
	rawRole, roleOK := s.storage.Get(KeyUserRole)
	role, roleValid := ParseRole(rawRole)
	if !ok || token == "" || !roleOK || !roleValid {
		s.cur = Anonymous()
		s.mu.Unlock()
		return s.cur
	}
	if expired, known := tokenExpired(token, s.now()); known && expired {
		s.mu.Unlock()
		s.Invalidate()
		return s.Current()
	}

	var user User
	getJSON(s.storage, KeyUserData, &user)
	var perms []string
	if role == RoleAdmin {
		getJSON(s.storage, KeyAdminPermissions, &perms)
	}

	s.cur = Session{
		User:        user,
		Role:        role,
		Token:       token,
		Permissions: normalizePermissions(perms),
		IssuedAt:    s.now().UTC(),
		State:       StateRestored,
	}
	s.mu.Unlock()
	return s.Current()
}

// Confirm runs the background profile fetch that upgrades a restored
// session to confirmed. Transport failures leave the optimistic session
// untouched; an explicit token rejection clears it.
func (s *Store) Confirm(ctx context.Context) (Session, error) {
	s.mu.RLock()
	backend := s.backend
	cur := s.cur
	s.mu.RUnlock()

	if backend == nil || !cur.Authenticated() {
		return cur, nil
	}

	user, perms, err := backend.Profile(ctx, cur.Role, cur.Token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.Invalidate()
			return s.Current(), err
		}
		obs.LogEvent("profile_confirm_failed", map[string]any{"error": err.Error()})
		return cur, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.Token != cur.Token {
		// Session changed underneath us; drop the stale result.
		return s.cur, nil
	}
	s.cur.User = user
	if s.cur.Role == RoleAdmin {
		s.cur.Permissions = normalizePermissions(perms)
		_ = setJSON(s.storage, KeyAdminPermissions, s.cur.Permissions)
	}
	s.cur.State = StateConfirmed
	_ = setJSON(s.storage, KeyUserData, user)
	return s.cur, nil
}

// Check asks the backend whether the current token is still valid. An
// explicit rejection clears the session; a transport failure changes
// nothing (fail-open for availability).
func (s *Store) Check(ctx context.Context) error {
	s.mu.RLock()
	backend := s.backend
	cur := s.cur
	s.mu.RUnlock()

	if backend == nil || !cur.Authenticated() {
		return nil
	}
	err := backend.CheckToken(ctx, cur.Role, cur.Token)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidToken):
		s.Invalidate()
		return ErrInvalidToken
	default:
		obs.LogEvent("session_check_failed", map[string]any{"error": err.Error()})
		return nil
	}
}

// RememberLogin persists the identifier/method pair used on the login
// form so the next visit can prefill it.
func (s *Store) RememberLogin(identifier, method string) error {
	identifier = strings.TrimSpace(identifier)
	method = strings.TrimSpace(method)
	if identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(KeyRememberedLogin, identifier); err != nil {
		return err
	}
	if method != "" {
		return s.storage.Set(KeyLoginMethod, method)
	}
	return nil
}

// RememberedLogin returns the last remembered identifier/method pair.
func (s *Store) RememberedLogin() (identifier, method string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identifier, ok = s.storage.Get(KeyRememberedLogin)
	if !ok || strings.TrimSpace(identifier) == "" {
		return "", "", false
	}
	method, _ = s.storage.Get(KeyLoginMethod)
	return identifier, method, true
}

// tokenExpired inspects a bearer token without verifying its signature.
// known=false means the token is opaque and nothing can be said offline.
func tokenExpired(token string, now time.Time) (expired, known bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, false
	}
	return now.After(exp.Time), true
}
