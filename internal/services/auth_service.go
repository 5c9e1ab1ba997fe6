package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/session"
	"github.com/coursemuster/portal/internal/validation"
	"go.uber.org/zap"
)

// AuthAPI is the interface that wraps the remote Auth API
type AuthAPI interface {
	// Method Login signs a user in with the given role and returns the new session.
	//
	// "role" selects the student or the admin endpoints.
	// The response is normalized; please reference session.NormalizeAuthResponse for the accepted shapes.
	Login(ctx context.Context, role models.Role, in client.Credentials) (*session.Session, error)
	// Method Register creates an account and returns its session.
	//
	// Please reference Login method for more information about the role and the response.
	Register(ctx context.Context, role models.Role, in client.Registration) (*session.Session, error)
	// Method Logout ends the session carried by "ctx".
	Logout(ctx context.Context, role models.Role) error
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"notblank" message:"Please fill both fields"`
	Password string `json:"password" validate:"notblank" message:"Please fill both fields"`
}

// RegisterRequest represents a registration request. Key is the admin
// registration key and is ignored for students.
type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank" message:"Name is required"`
	Email    string `json:"email" validate:"email" message:"Please enter a valid email"`
	Password string `json:"password" validate:"min=6" message:"Password must be at least 6 characters"`
	Confirm  string `json:"confirm" validate:"omitempty,eqfield=Password" message:"Passwords do not match"`
	Key      string `json:"key"`
}

type authService struct {
	api       AuthAPI
	validator *validation.Validator
	logger    *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(api AuthAPI, validator *validation.Validator, logger *zap.Logger) *authService {
	return &authService{
		api:       api,
		validator: validator,
		logger:    logger,
	}
}

// Login signs a user in
func (s *authService) Login(ctx context.Context, role models.Role, req LoginRequest) (*session.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	sess, err := s.api.Login(ctx, role, client.Credentials{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		s.logger.Warn("login failed", zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", sess.User.ID), zap.String("role", string(sess.Role)))
	return sess, nil
}

// Register creates an account and signs it in
func (s *authService) Register(ctx context.Context, role models.Role, req RegisterRequest) (*session.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if role == models.RoleAdmin && strings.TrimSpace(req.Key) == "" {
		return nil, validation.Errorf("Admin key is required")
	}

	sess, err := s.api.Register(ctx, role, client.Registration{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		AdminKey: strings.TrimSpace(req.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", sess.User.ID), zap.String("role", string(sess.Role)))
	return sess, nil
}

// Logout ends the session of ctx. Without a session there is nothing to end
// remotely and the call succeeds.
func (s *authService) Logout(ctx context.Context) error {
	sess, ok := currentSession(ctx)
	if !ok {
		return nil
	}
	if err := s.api.Logout(ctx, sess.Role); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}
