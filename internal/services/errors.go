package services

import (
	"context"
	"errors"

	"github.com/coursemuster/portal/internal/session"
)

var (
	// ErrSignInRequired is returned when an operation needs a signed-in user
	ErrSignInRequired = errors.New("sign in required")
	// ErrUserIDUnavailable is returned when the session carries no user id
	ErrUserIDUnavailable = errors.New("user id not available")
	// ErrLessonNotFound is returned when a lesson is not part of the course
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrEnrollmentNotFound is returned when the student has no such enrollment
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// currentUser returns the signed-in session of ctx and its user id
func currentUser(ctx context.Context) (*session.Session, string, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return nil, "", ErrSignInRequired
	}
	if s.User.ID == "" {
		return s, "", ErrUserIDUnavailable
	}
	return s, s.User.ID, nil
}

// currentSession returns the signed-in session of ctx, if any
func currentSession(ctx context.Context) (*session.Session, bool) {
	return session.FromContext(ctx)
}
