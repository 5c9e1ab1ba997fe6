package handlers

import (
	"context"
	"net/http"

	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/services"
	"github.com/coursemuster/portal/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// sessionMaxAge is the lifetime of the access token cookie in seconds
const sessionMaxAge = 3600

// AuthService is the interface that wraps methods for sign-in business logic.
type AuthService interface {
	// Method Login validates credentials and signs the user in with the Auth API.
	//
	// "role" selects the student or the admin sign-in.
	// Returns a validation error for missing fields, or an error matching client.ErrUnauthorized for rejected credentials.
	Login(ctx context.Context, role models.Role, req services.LoginRequest) (*session.Session, error)
	// Method Register validates and creates an account, returning its session.
	//
	// Please reference Login method for more information about the role. Admin registration requires a key.
	Register(ctx context.Context, role models.Role, req services.RegisterRequest) (*session.Session, error)
	// Method Logout ends the session carried by "ctx". Without a session it does nothing.
	Logout(ctx context.Context) error
}

// AuthHandler handles sign-in related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		authService: authService,
	}
}

// RegisterRoutes registers all auth handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/{role}/login", h.Login)
		r.Post("/{role}/register", h.Register)
		r.Post("/logout", h.Logout)
		r.With(middleware.RequireSession).Get("/me", h.Me)
	})
}

// parseRole reads the {role} path parameter
func parseRole(r *http.Request) (models.Role, bool) {
	switch role := models.Role(chi.URLParam(r, "role")); role {
	case models.RoleStudent, models.RoleAdmin:
		return role, true
	}
	return "", false
}

// Login handles POST /api/v1/auth/{role}/login
// @Summary Sign in
// @Description Sign a student or an admin in. The access token is returned in the body and as an HTTP-only cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param role path string true "student or admin"
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} session.Session
// @Failure 400 {object} map[string]string "Missing fields"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /api/v1/auth/{role}/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	role, ok := parseRole(r)
	if !ok {
		h.RespondError(w, http.StatusNotFound, "unknown role")
		return
	}

	var req services.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.authService.Login(r.Context(), role, req)
	if err != nil {
		h.RespondServiceError(w, r, err, "Login failed")
		return
	}

	h.setSessionCookie(w, sess.Token)
	h.RespondJSON(w, http.StatusOK, sess)
}

// Register handles POST /api/v1/auth/{role}/register
// @Summary Register an account
// @Description Create a student or an admin account and sign it in. Admin registration needs the admin key.
// @Tags auth
// @Accept json
// @Produce json
// @Param role path string true "student or admin"
// @Param request body services.RegisterRequest true "Account"
// @Success 201 {object} session.Session
// @Failure 400 {object} map[string]string "Invalid fields"
// @Router /api/v1/auth/{role}/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	role, ok := parseRole(r)
	if !ok {
		h.RespondError(w, http.StatusNotFound, "unknown role")
		return
	}

	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.authService.Register(r.Context(), role, req)
	if err != nil {
		h.RespondServiceError(w, r, err, "Registration failed")
		return
	}

	h.setSessionCookie(w, sess.Token)
	h.RespondJSON(w, http.StatusCreated, sess)
}

// Logout handles POST /api/v1/auth/logout
// @Summary Sign out
// @Description End the current session and clear the access token cookie
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context()); err != nil {
		// the local session ends either way
		h.Logger.Warn("remote logout failed", zap.Error(err))
	}

	h.clearSessionCookie(w)
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /api/v1/auth/me
// @Summary Current session
// @Description Return the signed-in user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} session.Session
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	h.RespondJSON(w, http.StatusOK, sess)
}

// setSessionCookie stores the access token as an HTTP-only cookie
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	middleware.SetSessionCookie(w, token, sessionMaxAge)
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	middleware.ExpireSessionCookie(w)
}
