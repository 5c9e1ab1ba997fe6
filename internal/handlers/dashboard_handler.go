package handlers

import (
	"context"
	"net/http"

	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DashboardService is the interface that wraps methods for the student dashboard.
type DashboardService interface {
	// Method Progress returns the signed-in student's progress dashboard.
	Progress(ctx context.Context) (*services.Dashboard, error)
	// Method Enrollments lists the signed-in student's enrollments.
	//
	// Returns services.ErrUserIDUnavailable when the session has no user id.
	Enrollments(ctx context.Context) (*services.EnrollmentList, error)
	// Method Enrollment returns one enrollment with its course and resolved batch.
	//
	// Returns services.ErrEnrollmentNotFound if the student has no such enrollment.
	Enrollment(ctx context.Context, enrollmentID string) (*services.EnrollmentDetail, error)
}

// DashboardHandler handles the student dashboard HTTP requests
type DashboardHandler struct {
	BaseHandler
	dashboard DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: BaseHandler{Logger: logger},
		dashboard:   dashboard,
	}
}

// RegisterRoutes registers all dashboard handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/student", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Get("/dashboard", h.Progress)
		r.Get("/enrollments", h.Enrollments)
		r.Get("/enrollments/{id}", h.Enrollment)
	})
}

// Progress handles GET /api/v1/student/dashboard
// @Summary Student dashboard
// @Description Overall progress, recent courses and chart series
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Dashboard
// @Failure 401 {object} map[string]string
// @Router /api/v1/student/dashboard [get]
func (h *DashboardHandler) Progress(w http.ResponseWriter, r *http.Request) {
	dash, err := h.dashboard.Progress(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load progress")
		return
	}
	h.RespondJSON(w, http.StatusOK, dash)
}

// Enrollments handles GET /api/v1/student/enrollments
// @Summary My enrollments
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.EnrollmentList
// @Failure 400 {object} map[string]string "User id not available"
// @Router /api/v1/student/enrollments [get]
func (h *DashboardHandler) Enrollments(w http.ResponseWriter, r *http.Request) {
	list, err := h.dashboard.Enrollments(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to fetch enrollments")
		return
	}
	h.RespondJSON(w, http.StatusOK, list)
}

// Enrollment handles GET /api/v1/student/enrollments/{id}
// @Summary One enrollment
// @Description The enrolled course with the batch the enrollment resolves to
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} services.EnrollmentDetail
// @Failure 404 {object} map[string]string
// @Router /api/v1/student/enrollments/{id} [get]
func (h *DashboardHandler) Enrollment(w http.ResponseWriter, r *http.Request) {
	detail, err := h.dashboard.Enrollment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load course data")
		return
	}
	h.RespondJSON(w, http.StatusOK, detail)
}
