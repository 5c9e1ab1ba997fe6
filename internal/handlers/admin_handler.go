package handlers

import (
	"context"
	"net/http"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CourseManagerService is the interface that wraps methods for admin course management.
type CourseManagerService interface {
	// Method Course returns the admin view of a course with a batch selected.
	//
	// "selection" is a batch key or name, or empty or "all" for every batch.
	// Returns an error matching client.ErrNotFound if the course does not exist.
	Course(ctx context.Context, courseID, selection string) (*services.ManagedCourse, error)
	// Method AddBatch appends a batch to a course and returns the course with the new batch selected.
	AddBatch(ctx context.Context, courseID string, req services.AddBatchRequest) (*services.ManagedCourse, error)
	// Method CreateCourse validates and creates a course, uploading its thumbnail first when one is given.
	CreateCourse(ctx context.Context, req services.CreateCourseRequest) (*client.CreatedCourse, error)
}

// LessonAuthoringService is the interface that wraps methods for admin lesson authoring.
type LessonAuthoringService interface {
	// Method Courses lists the courses a lesson can be added to with their batch options.
	Courses(ctx context.Context) ([]services.LessonCourse, error)
	// Method CreateLesson validates a lesson for its type and creates it.
	CreateLesson(ctx context.Context, req services.CreateLessonRequest) (*services.CreatedLesson, error)
}

// StudentDirectoryService is the interface that wraps methods for the admin student directory.
type StudentDirectoryService interface {
	// Method List returns one page of students.
	List(ctx context.Context, q client.StudentQuery) (*services.StudentPage, error)
	// Method Student returns one student.
	//
	// Returns an error matching client.ErrNotFound if the student does not exist.
	Student(ctx context.Context, id string) (*models.Student, error)
}

// AdminHandler handles admin HTTP requests
type AdminHandler struct {
	BaseHandler
	courses  CourseManagerService
	lessons  LessonAuthoringService
	students StudentDirectoryService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	courses CourseManagerService,
	lessons LessonAuthoringService,
	students StudentDirectoryService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler: BaseHandler{Logger: logger},
		courses:     courses,
		lessons:     lessons,
		students:    students,
	}
}

// RegisterRoutes registers all admin handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Route("/courses", func(r chi.Router) {
			r.Post("/", h.CreateCourse)
			r.Get("/{id}", h.Course)
			r.Post("/{id}/batches", h.AddBatch)
		})
		r.Route("/lessons", func(r chi.Router) {
			r.Get("/courses", h.LessonCourses)
			r.Post("/", h.CreateLesson)
		})
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.Students)
			r.Get("/{id}", h.Student)
		})
	})
}

// Course handles GET /api/v1/admin/courses/{id}
// @Summary Manage a course
// @Description A course with its batch selector, lessons and enrollments of the selected batch
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param batch query string false "Batch key or name, or all; every batch by default"
// @Success 200 {object} services.ManagedCourse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/courses/{id} [get]
func (h *AdminHandler) Course(w http.ResponseWriter, r *http.Request) {
	managed, err := h.courses.Course(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("batch"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load course")
		return
	}
	h.RespondJSON(w, http.StatusOK, managed)
}

// AddBatch handles POST /api/v1/admin/courses/{id}/batches
// @Summary Add a batch
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param request body services.AddBatchRequest true "Batch"
// @Success 201 {object} services.ManagedCourse
// @Failure 400 {object} map[string]string
// @Router /api/v1/admin/courses/{id}/batches [post]
func (h *AdminHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req services.AddBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	managed, err := h.courses.AddBatch(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to add batch")
		return
	}
	h.RespondJSON(w, http.StatusCreated, managed)
}

// CreateCourse handles POST /api/v1/admin/courses
// @Summary Create a course
// @Description Create a course with optional batches; a base64 thumbnail is uploaded to the image host first
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateCourseRequest true "Course"
// @Success 201 {object} client.CreatedCourse
// @Failure 400 {object} map[string]string
// @Router /api/v1/admin/courses [post]
func (h *AdminHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.courses.CreateCourse(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to create course")
		return
	}
	h.RespondJSON(w, http.StatusCreated, created)
}

// LessonCourses handles GET /api/v1/admin/lessons/courses
// @Summary Courses for lesson authoring
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} services.LessonCourse
// @Router /api/v1/admin/lessons/courses [get]
func (h *AdminHandler) LessonCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.lessons.Courses(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load courses")
		return
	}
	h.RespondJSON(w, http.StatusOK, courses)
}

// CreateLesson handles POST /api/v1/admin/lessons
// @Summary Create a lesson
// @Description Create a video, quiz, assignment or article lesson for a course or one of its batches
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateLessonRequest true "Lesson"
// @Success 201 {object} services.CreatedLesson
// @Failure 400 {object} map[string]string
// @Router /api/v1/admin/lessons [post]
func (h *AdminHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var req services.CreateLessonRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.lessons.CreateLesson(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to add lesson")
		return
	}
	h.RespondJSON(w, http.StatusCreated, created)
}

// Students handles GET /api/v1/admin/students
// @Summary Student directory
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search name or email"
// @Param role query string false "Role filter"
// @Param sort query string false "createdAt_desc, createdAt_asc, name_asc or name_desc"
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size, default 20"
// @Success 200 {object} services.StudentPage
// @Router /api/v1/admin/students [get]
func (h *AdminHandler) Students(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.students.List(r.Context(), client.StudentQuery{
		Query: q.Get("q"),
		Role:  q.Get("role"),
		Sort:  q.Get("sort"),
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	})
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load students")
		return
	}
	h.RespondJSON(w, http.StatusOK, page)
}

// Student handles GET /api/v1/admin/students/{id}
// @Summary One student
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} models.Student
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/students/{id} [get]
func (h *AdminHandler) Student(w http.ResponseWriter, r *http.Request) {
	student, err := h.students.Student(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load student")
		return
	}
	h.RespondJSON(w, http.StatusOK, student)
}
