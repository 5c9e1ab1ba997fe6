package middleware

import (
	"net/http"
	"strings"

	"github.com/coursemuster/portal/internal/session"
)

// AccessTokenCookie is the cookie the portal stores the session token in
const AccessTokenCookie = "access_token"

// TokenInspector validates a session token
type TokenInspector interface {
	// Inspect validates a token and returns the session it describes.
	// "token" is the raw bearer token.
	// Returns an error if the token is malformed, badly signed or expired.
	Inspect(token string) (*session.Session, error)
}

// ExtractToken returns the bearer token from the Authorization header, or
// from the access_token cookie when the header is absent
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Session attaches the caller's session to the request context when a token
// is present. A token that fails inspection leaves the request anonymous and
// a stale access_token cookie is expired; protected routes still answer 401
// through RequireSession.
func Session(inspector TokenInspector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := inspector.Inspect(token)
			if err != nil {
				reportRejectedToken(r.Context())
				if fromCookie(r, token) {
					ExpireSessionCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			reportSession(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
		})
	}
}

func fromCookie(r *http.Request, token string) bool {
	cookie, err := r.Cookie(AccessTokenCookie)
	return err == nil && cookie.Value == token
}

// SetSessionCookie stores token in the access_token cookie, replacing any
// access_token cookie already set on this response
func SetSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	setSessionCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ExpireSessionCookie tells the browser to drop the access_token cookie
func ExpireSessionCookie(w http.ResponseWriter) {
	SetSessionCookie(w, "", -1)
}

func setSessionCookie(w http.ResponseWriter, c *http.Cookie) {
	prefix := AccessTokenCookie + "="
	kept := make([]string, 0, len(w.Header().Values("Set-Cookie")))
	for _, v := range w.Header().Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	w.Header()["Set-Cookie"] = append(kept, c.String())
}

// RequireSession rejects requests without a session
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose session is not an admin's
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !s.IsAdmin() {
			writeJSONError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}
