package handlers

import (
	"context"
	"net/http"

	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutService is the interface that wraps methods for course enrollment.
type CheckoutService interface {
	// Method Preview returns the order summary of a course and the chosen batch.
	//
	// "selection" is a batch key or name; empty means open enrollment.
	Preview(ctx context.Context, courseID, selection string) (*services.CheckoutPreview, error)
	// Method Checkout validates the dummy payment and enrolls the signed-in student.
	//
	// Returns services.ErrSignInRequired without a session and a validation error for bad payment details.
	Checkout(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutResult, error)
}

// CheckoutHandler handles enrollment HTTP requests
type CheckoutHandler struct {
	BaseHandler
	checkoutService CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler:     BaseHandler{Logger: logger},
		checkoutService: checkoutService,
	}
}

// RegisterRoutes registers all checkout handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Get("/{courseId}", h.Preview)
		r.Post("/", h.Checkout)
	})
}

// Preview handles GET /api/v1/checkout/{courseId}
// @Summary Checkout summary
// @Description The course card and the chosen batch before payment
// @Tags checkout
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param batch query string false "Batch key or name"
// @Success 200 {object} services.CheckoutPreview
// @Failure 404 {object} map[string]string
// @Router /api/v1/checkout/{courseId} [get]
func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.checkoutService.Preview(r.Context(), chi.URLParam(r, "courseId"), r.URL.Query().Get("batch"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load course")
		return
	}
	h.RespondJSON(w, http.StatusOK, preview)
}

// Checkout handles POST /api/v1/checkout
// @Summary Enroll into a course
// @Description Record a dummy card or bKash payment and enroll the signed-in student
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CheckoutRequest true "Payment"
// @Success 201 {object} services.CheckoutResult
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/checkout [post]
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.checkoutService.Checkout(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, r, err, "Enrollment failed")
		return
	}
	h.RespondJSON(w, http.StatusCreated, result)
}
