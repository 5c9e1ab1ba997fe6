package client

import (
	"context"

	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/session"
)

// Credentials is a login request
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is a sign-up request. AdminKey is only sent for admin
// registration.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	AdminKey string `json:"key,omitempty"`
}

// AuthAPI is the client of the remote Auth API
type AuthAPI struct {
	*Client
}

// NewAuthAPI creates an Auth API client
func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{Client: c}
}

func authPath(role models.Role, action string) string {
	if role == models.RoleAdmin {
		return "/api/auth/admin/" + action
	}
	return "/api/auth/" + action
}

func (a *AuthAPI) authenticate(ctx context.Context, path string, body any, role models.Role) (*session.Session, error) {
	raw, err := a.post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return session.NormalizeAuthResponse(raw, role)
}

// Login signs a user in with the given role
func (a *AuthAPI) Login(ctx context.Context, role models.Role, in Credentials) (*session.Session, error) {
	return a.authenticate(ctx, authPath(role, "login"), in, role)
}

// Register creates an account with the given role and signs it in
func (a *AuthAPI) Register(ctx context.Context, role models.Role, in Registration) (*session.Session, error) {
	if role != models.RoleAdmin {
		in.AdminKey = ""
	}
	return a.authenticate(ctx, authPath(role, "register"), in, role)
}

// Logout ends the session carried by ctx
func (a *AuthAPI) Logout(ctx context.Context, role models.Role) error {
	_, err := a.post(ctx, authPath(role, "logout"), nil)
	return err
}
