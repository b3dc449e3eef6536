package remote

import (
	"context"
	"fmt"
	"net/http"

	"bloodlink.org/internal/session"
)

// LoginRequest carries the credentials for a role login. Method is the
// identifier kind the user chose (email or mobile).
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Method     string `json:"method,omitempty"`
}

// LoginResponse is what a role login endpoint returns.
type LoginResponse struct {
	Token       string       `json:"token"`
	User        session.User `json:"user"`
	Permissions []string     `json:"permissions,omitempty"`
}

// Login posts to the role's dedicated login endpoint.
func (c *Client) Login(ctx context.Context, role session.Role, req LoginRequest) (LoginResponse, error) {
	if !role.Valid() {
		return LoginResponse{}, fmt.Errorf("%w: unknown role %q", session.ErrInvalidInput, role)
	}
	var resp LoginResponse
	if err := c.call(ctx, http.MethodPost, "/"+role.String()+"-login", "", req, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Logout invalidates the token server-side. Satisfies session.Backend;
// the store treats failures as best-effort.
func (c *Client) Logout(ctx context.Context, role session.Role, token string) error {
	return c.call(ctx, http.MethodPost, "/logout", token, nil, nil)
}

// profileEnvelope is the shared profile payload shape.
type profileEnvelope struct {
	User         session.User `json:"user"`
	Permissions  []string     `json:"permissions,omitempty"`
	Verification struct {
		MobileVerified   bool `json:"mobile_verified"`
		EmailVerified    bool `json:"email_verified"`
		HospitalVerified bool `json:"hospital_verified"`
		IdentityVerified bool `json:"identity_verified"`
	} `json:"verification"`
}

// Profile fetches the account profile for an explicit role and token.
// Satisfies session.Backend.
func (c *Client) Profile(ctx context.Context, role session.Role, token string) (session.User, []string, error) {
	env, err := c.profile(ctx, role, token)
	if err != nil {
		return session.User{}, nil, err
	}
	return env.User, env.Permissions, nil
}

// CheckToken asks the backend whether the token is still accepted.
// A 401 surfaces as session.ErrInvalidToken; transport failures keep
// their own error so the store can fail open. Satisfies session.Backend.
func (c *Client) CheckToken(ctx context.Context, role session.Role, token string) error {
	_, err := c.profile(ctx, role, token)
	return err
}

func (c *Client) profile(ctx context.Context, role session.Role, token string) (profileEnvelope, error) {
	var env profileEnvelope
	if !role.Valid() {
		return env, fmt.Errorf("%w: unknown role %q", session.ErrInvalidInput, role)
	}
	if err := c.call(ctx, http.MethodGet, "/"+role.String()+"/profile", token, nil, &env); err != nil {
		return profileEnvelope{}, err
	}
	return env, nil
}

// UpdateProfile writes profile edits for the active session's role.
func (c *Client) UpdateProfile(ctx context.Context, user session.User) error {
	role, _ := c.tokenPair()
	if !role.Valid() {
		return session.ErrNotAuthenticated
	}
	return c.authedCall(ctx, http.MethodPut, "/"+role.String()+"/profile", user, nil)
}

func (c *Client) tokenPair() (session.Role, string) {
	if c.tokens == nil {
		return "", ""
	}
	return c.tokens()
}
