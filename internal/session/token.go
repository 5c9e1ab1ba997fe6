package session

import (
	"fmt"
	"time"

	"github.com/coursemuster/portal/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenInspector reads the identity claims of tokens issued by the auth API.
// With a secret the signature is verified; without one the token is only
// decoded and checked for expiry, and the course API remains the authority.
type TokenInspector struct {
	secret string
	now    func() time.Time
}

// NewTokenInspector creates a new token inspector
func NewTokenInspector(secret string) *TokenInspector {
	return &TokenInspector{
		secret: secret,
		now:    time.Now,
	}
}

// Verifies reports whether signatures are checked
func (ti *TokenInspector) Verifies() bool {
	return ti.secret != ""
}

// Inspect validates a token and returns the session it describes
func (ti *TokenInspector) Inspect(tokenString string) (*Session, error) {
	claims := jwt.MapClaims{}

	if ti.Verifies() {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(ti.secret), nil
		}, jwt.WithTimeFunc(ti.now))
		if err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		if !token.Valid {
			return nil, fmt.Errorf("token is invalid")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, fmt.Errorf("invalid exp claim: %w", err)
		}
		if exp != nil && !ti.now().Before(exp.Time) {
			return nil, fmt.Errorf("token is expired")
		}
	}

	user := models.User{
		ID:    claimString(claims, "id", "_id", "userId", "user_id", "sub"),
		Name:  claimString(claims, "name"),
		Email: claimString(claims, "email"),
		Role:  models.Role(claimString(claims, "role")),
	}
	if user.ID == "" {
		return nil, fmt.Errorf("user id not found in token")
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	return &Session{Token: tokenString, User: user, Role: user.Role}, nil
}

// claimString returns the first claim among keys that holds a string or a
// number (JWT claims decode numbers as float64)
func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
