package handlers

import (
	"context"
	"net/http"

	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LessonViewerService is the interface that wraps methods for the student lesson viewer.
type LessonViewerService interface {
	// Method Lessons returns the lessons of a course batch with the student's status for each.
	Lessons(ctx context.Context, courseID, batchKey string) (*services.LessonList, error)
	// Method Progress returns the status of one lesson, reconciled with the course API.
	Progress(ctx context.Context, courseID, lessonID string) (*services.LessonStatus, error)
	// Method Complete marks a lesson complete.
	Complete(ctx context.Context, courseID, lessonID string) (*services.LessonStatus, error)
	// Method SubmitQuiz grades the student's answers.
	//
	// Returns progress.ErrAlreadySubmitted for a second submission and quiz.ErrIncompleteAnswers when a question is unanswered.
	SubmitQuiz(ctx context.Context, courseID, lessonID string, sub services.QuizSubmission) (*services.QuizOutcome, error)
	// Method SubmitAssignment hands an assignment in.
	//
	// Please reference SubmitQuiz method for more information about repeated submissions.
	SubmitAssignment(ctx context.Context, courseID, lessonID string, sub services.AssignmentSubmission) (*services.AssignmentOutcome, error)
}

// LessonHandler handles the student lesson HTTP requests
type LessonHandler struct {
	BaseHandler
	viewer LessonViewerService
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(viewer LessonViewerService, logger *zap.Logger) *LessonHandler {
	return &LessonHandler{
		BaseHandler: BaseHandler{Logger: logger},
		viewer:      viewer,
	}
}

// RegisterRoutes registers all lesson handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *LessonHandler) RegisterRoutes(r chi.Router) {
	r.Route("/learn/{courseId}/lessons", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Get("/", h.Lessons)
		r.Get("/{lessonId}/progress", h.Progress)
		r.Post("/{lessonId}/complete", h.Complete)
		r.Post("/{lessonId}/quiz", h.SubmitQuiz)
		r.Post("/{lessonId}/assignment", h.SubmitAssignment)
	})
}

// Lessons handles GET /api/v1/learn/{courseId}/lessons
// @Summary Course lessons
// @Description The lessons of the student's batch with embed URLs and progress
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param batch query string false "Batch key"
// @Success 200 {object} services.LessonList
// @Failure 401 {object} map[string]string
// @Router /api/v1/learn/{courseId}/lessons [get]
func (h *LessonHandler) Lessons(w http.ResponseWriter, r *http.Request) {
	list, err := h.viewer.Lessons(r.Context(), chi.URLParam(r, "courseId"), r.URL.Query().Get("batch"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load lessons")
		return
	}
	h.RespondJSON(w, http.StatusOK, list)
}

// Progress handles GET /api/v1/learn/{courseId}/lessons/{lessonId}/progress
// @Summary Lesson progress
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} services.LessonStatus
// @Router /api/v1/learn/{courseId}/lessons/{lessonId}/progress [get]
func (h *LessonHandler) Progress(w http.ResponseWriter, r *http.Request) {
	status, err := h.viewer.Progress(r.Context(), chi.URLParam(r, "courseId"), chi.URLParam(r, "lessonId"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load progress")
		return
	}
	h.RespondJSON(w, http.StatusOK, status)
}

// Complete handles POST /api/v1/learn/{courseId}/lessons/{lessonId}/complete
// @Summary Mark a lesson complete
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} services.LessonStatus
// @Router /api/v1/learn/{courseId}/lessons/{lessonId}/complete [post]
func (h *LessonHandler) Complete(w http.ResponseWriter, r *http.Request) {
	status, err := h.viewer.Complete(r.Context(), chi.URLParam(r, "courseId"), chi.URLParam(r, "lessonId"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to complete lesson")
		return
	}
	h.RespondJSON(w, http.StatusOK, status)
}

// SubmitQuiz handles POST /api/v1/learn/{courseId}/lessons/{lessonId}/quiz
// @Summary Submit a quiz
// @Description Grade the answers; a quiz accepts a single submission
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param request body services.QuizSubmission true "Chosen option index per question position"
// @Success 200 {object} services.QuizOutcome
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "Already submitted"
// @Failure 502 {object} map[string]string "Unexpected grading result"
// @Router /api/v1/learn/{courseId}/lessons/{lessonId}/quiz [post]
func (h *LessonHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var sub services.QuizSubmission
	if err := decodeJSON(r, &sub); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.viewer.SubmitQuiz(r.Context(), chi.URLParam(r, "courseId"), chi.URLParam(r, "lessonId"), sub)
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to submit quiz")
		return
	}
	h.RespondJSON(w, http.StatusOK, outcome)
}

// SubmitAssignment handles POST /api/v1/learn/{courseId}/lessons/{lessonId}/assignment
// @Summary Submit an assignment
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param request body services.AssignmentSubmission true "Text or link"
// @Success 200 {object} services.AssignmentOutcome
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "Already submitted"
// @Router /api/v1/learn/{courseId}/lessons/{lessonId}/assignment [post]
func (h *LessonHandler) SubmitAssignment(w http.ResponseWriter, r *http.Request) {
	var sub services.AssignmentSubmission
	if err := decodeJSON(r, &sub); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.viewer.SubmitAssignment(r.Context(), chi.URLParam(r, "courseId"), chi.URLParam(r, "lessonId"), sub)
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to submit assignment")
		return
	}
	h.RespondJSON(w, http.StatusOK, outcome)
}
