package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/progress"
	"github.com/coursemuster/portal/internal/quiz"
	"github.com/coursemuster/portal/internal/services"
	"github.com/coursemuster/portal/internal/validation"
	"go.uber.org/zap"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError maps a service error onto a status code. "fallback" is
// the message of unexpected errors, which are logged.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var apiErr *client.APIError

	switch {
	case errors.Is(err, client.ErrAborted):
		// caller went away, nobody reads the answer
		h.Logger.Debug("request aborted", zap.String("path", r.URL.Path))
	case validation.IsValidationError(err):
		h.RespondError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, services.ErrSignInRequired):
		h.RespondError(w, http.StatusUnauthorized, "Please sign in to continue")
	case errors.Is(err, services.ErrUserIDUnavailable):
		h.RespondError(w, http.StatusBadRequest, "User id not available.")
	case errors.Is(err, services.ErrLessonNotFound):
		h.RespondError(w, http.StatusNotFound, "Lesson not found")
	case errors.Is(err, services.ErrEnrollmentNotFound):
		h.RespondError(w, http.StatusNotFound, "Enrollment not found")
	case errors.Is(err, progress.ErrAlreadySubmitted):
		h.RespondError(w, http.StatusConflict, "You have already submitted this lesson")
	case errors.Is(err, quiz.ErrUnrecognizedShape):
		h.Logger.Warn("unrecognized quiz result", zap.Error(err))
		h.RespondError(w, http.StatusBadGateway, "Unexpected quiz result from the course service")
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
			h.Logger.Error(fallback, zap.Int("upstream_status", apiErr.StatusCode), zap.Error(err))
			status = http.StatusBadGateway
		}
		h.RespondError(w, status, apiErr.Message)
	default:
		h.Logger.Error(fallback, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

// validationMessage unwraps the user facing message of a validation error
func validationMessage(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

// decodeJSON decodes the request body into v
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt returns a positive integer query parameter, 0 when it is absent
// or malformed
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
