// Package session carries the signed-in user's token, identity and role
// through a request.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coursemuster/portal/internal/models"
)

// ErrMissingToken is returned when an auth response carries no token
var ErrMissingToken = errors.New("auth response carries no token")

// Session is the authenticated state of one browser session
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
	Role  models.Role `json:"role"`
}

// IsAdmin reports whether the session belongs to an admin
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == models.RoleAdmin
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext retrieves the session from context
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// TokenFromContext returns the bearer token of the session in ctx, if any
func TokenFromContext(ctx context.Context) string {
	if s, ok := FromContext(ctx); ok {
		return s.Token
	}
	return ""
}

// NormalizeAuthResponse builds a session from an auth API response.
// The API has answered with {user, token}, {data: {user, token}} and
// {accessToken} at different times; all three are accepted. role is
// applied when the user record carries none.
func NormalizeAuthResponse(raw []byte, role models.Role) (*Session, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	data := root
	if nested, ok := root["data"]; ok && isObject(nested) {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			data = inner
		}
	}

	token := firstString(data, "token")
	if token == "" {
		token = firstString(root, "token")
	}
	if token == "" {
		token = firstString(data, "accessToken")
	}
	if token == "" {
		token = firstString(root, "accessToken")
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	var user models.User
	switch {
	case isObject(data["user"]):
		_ = json.Unmarshal(data["user"], &user)
	case isObject(root["user"]):
		_ = json.Unmarshal(root["user"], &user)
	default:
		// the data object itself is the user record
		if b, err := json.Marshal(data); err == nil {
			_ = json.Unmarshal(b, &user)
		}
	}
	if user.Role == "" {
		user.Role = role
	}

	return &Session{Token: token, User: user, Role: user.Role}, nil
}

func firstString(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
