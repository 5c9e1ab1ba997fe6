package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/progress"
	"github.com/coursemuster/portal/internal/services"
	"github.com/coursemuster/portal/internal/session"
	"github.com/coursemuster/portal/internal/validation"
	"github.com/coursemuster/portal/internal/viewmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockAuthService is a mock implementation of AuthService
type mockAuthService struct {
	session *session.Session
	err     error
	role    models.Role
	logouts int
}

func (m *mockAuthService) Login(ctx context.Context, role models.Role, req services.LoginRequest) (*session.Session, error) {
	m.role = role
	return m.session, m.err
}

func (m *mockAuthService) Register(ctx context.Context, role models.Role, req services.RegisterRequest) (*session.Session, error) {
	m.role = role
	return m.session, m.err
}

func (m *mockAuthService) Logout(ctx context.Context) error {
	m.logouts++
	return m.err
}

func TestAuthHandler(t *testing.T) {
	t.Run("login sets the session cookie", func(t *testing.T) {
		svc := &mockAuthService{session: &session.Session{Token: "jwt", Role: models.RoleAdmin}}
		router := newTestRouter(NewAuthHandler(svc, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/auth/admin/login", "", `{"email":"a@b.c","password":"pw"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.RoleAdmin, svc.role)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
		assert.Equal(t, "jwt", cookies[0].Value)
		assert.Equal(t, 3600, cookies[0].MaxAge)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	})

	t.Run("unknown role", func(t *testing.T) {
		router := newTestRouter(NewAuthHandler(&mockAuthService{}, zap.NewNop()))
		w := serve(t, router, http.MethodPost, "/api/v1/auth/instructor/login", "", `{}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newTestRouter(NewAuthHandler(&mockAuthService{}, zap.NewNop()))
		w := serve(t, router, http.MethodPost, "/api/v1/auth/student/login", "", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid request body", errorBody(t, w))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		svc := &mockAuthService{err: &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}}
		router := newTestRouter(NewAuthHandler(svc, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/auth/student/login", "", `{"email":"a@b.c","password":"x"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", errorBody(t, w))
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("register answers created", func(t *testing.T) {
		svc := &mockAuthService{session: &session.Session{Token: "jwt", Role: models.RoleStudent}}
		router := newTestRouter(NewAuthHandler(svc, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/auth/student/register", "", `{"name":"Rahim"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("logout clears the cookie even when the remote call fails", func(t *testing.T) {
		svc := &mockAuthService{err: errors.New("down")}
		router := newTestRouter(NewAuthHandler(svc, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/auth/logout", "student-token", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, svc.logouts)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("stale cookie can still log out and log in", func(t *testing.T) {
		stale := &http.Cookie{Name: middleware.AccessTokenCookie, Value: "expired-jwt"}

		svc := &mockAuthService{}
		router := newTestRouter(NewAuthHandler(svc, zap.NewNop()))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.AddCookie(stale)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, svc.logouts)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)

		svc = &mockAuthService{session: &session.Session{Token: "jwt", Role: models.RoleStudent}}
		router = newTestRouter(NewAuthHandler(svc, zap.NewNop()))
		req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/student/login", strings.NewReader(`{"email":"a@b.c","password":"pw"}`))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(stale)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		cookies = w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "jwt", cookies[0].Value)
		assert.Equal(t, 3600, cookies[0].MaxAge)
	})

	t.Run("me requires a session", func(t *testing.T) {
		router := newTestRouter(NewAuthHandler(&mockAuthService{}, zap.NewNop()))

		assert.Equal(t, http.StatusUnauthorized, serve(t, router, http.MethodGet, "/api/v1/auth/me", "", "").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(t, router, http.MethodGet, "/api/v1/auth/me", "forged", "").Code)

		w := serve(t, router, http.MethodGet, "/api/v1/auth/me", "student-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		var sess session.Session
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
		assert.Equal(t, "s1", sess.User.ID)
	})
}

// mockCatalogService is a mock implementation of CatalogService and CourseDetailService
type mockCatalogService struct {
	filter    viewmodel.BrowseFilter
	page      int
	limit     int
	search    client.SearchQuery
	selection string
	err       error
}

func (m *mockCatalogService) Featured(ctx context.Context) ([]viewmodel.CatalogCard, error) {
	return []viewmodel.CatalogCard{{CourseID: "c1"}}, m.err
}

func (m *mockCatalogService) Table(ctx context.Context, filter viewmodel.BrowseFilter, page, limit int) (*services.CatalogTable, error) {
	m.filter, m.page, m.limit = filter, page, limit
	return &services.CatalogTable{}, m.err
}

func (m *mockCatalogService) Browse(ctx context.Context, q client.SearchQuery) (*services.BrowsePage, error) {
	m.search = q
	return &services.BrowsePage{}, m.err
}

func (m *mockCatalogService) Course(ctx context.Context, courseID, selection string) (*services.CourseDetail, error) {
	m.selection = selection
	if m.err != nil {
		return nil, m.err
	}
	return &services.CourseDetail{Course: &models.Course{ID: courseID}}, nil
}

func TestCatalogHandler(t *testing.T) {
	t.Run("table filters", func(t *testing.T) {
		svc := &mockCatalogService{}
		router := newTestRouter(NewCatalogHandler(svc, svc, zap.NewNop()))

		w := serve(t, router, http.MethodGet, "/api/v1/courses/table?q=go&instructor=Rahim&price=FREE&page=2", "", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "go", svc.filter.Query)
		assert.Equal(t, "Rahim", svc.filter.Instructor)
		assert.Equal(t, viewmodel.PriceFree, svc.filter.Price)
		assert.Equal(t, 2, svc.page)
		assert.Equal(t, defaultTableLimit, svc.limit)
	})

	t.Run("browse forwards the query", func(t *testing.T) {
		svc := &mockCatalogService{}
		router := newTestRouter(NewCatalogHandler(svc, svc, zap.NewNop()))

		w := serve(t, router, http.MethodGet, "/api/v1/courses?q=design&sort=price_asc&limit=5", "", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, client.SearchQuery{Query: "design", Sort: "price_asc", Limit: 5}, svc.search)
	})

	t.Run("course page", func(t *testing.T) {
		svc := &mockCatalogService{}
		router := newTestRouter(NewCatalogHandler(svc, svc, zap.NewNop()))

		w := serve(t, router, http.MethodGet, "/api/v1/courses/c7?batch=all", "", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "all", svc.selection)
		assert.Contains(t, w.Body.String(), `"c7"`)
	})

	t.Run("missing course", func(t *testing.T) {
		svc := &mockCatalogService{err: &client.APIError{StatusCode: http.StatusNotFound, Message: "Course not found"}}
		router := newTestRouter(NewCatalogHandler(svc, svc, zap.NewNop()))

		w := serve(t, router, http.MethodGet, "/api/v1/courses/nope", "", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// mockCheckoutService is a mock implementation of CheckoutService
type mockCheckoutService struct {
	req services.CheckoutRequest
	err error
}

func (m *mockCheckoutService) Preview(ctx context.Context, courseID, selection string) (*services.CheckoutPreview, error) {
	return &services.CheckoutPreview{BatchKey: selection}, m.err
}

func (m *mockCheckoutService) Checkout(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutResult, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &services.CheckoutResult{Message: "Enrollment successful", CourseID: req.CourseID}, nil
}

func TestCheckoutHandler(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		router := newTestRouter(NewCheckoutHandler(&mockCheckoutService{}, zap.NewNop()))
		w := serve(t, router, http.MethodPost, "/api/v1/checkout", "", `{"courseId":"c1"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("enrolls", func(t *testing.T) {
		svc := &mockCheckoutService{}
		router := newTestRouter(NewCheckoutHandler(svc, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/checkout", "student-token", `{"courseId":"c1","batch":"b1","method":"card","cardNumber":"4242"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "b1", svc.req.Batch)
		assert.Equal(t, "4242", svc.req.CardNumber)
	})

	t.Run("payment validation", func(t *testing.T) {
		svc := &mockCheckoutService{err: validation.Errorf("Enter card number (dummy).")}
		router := newTestRouter(NewCheckoutHandler(svc, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/checkout", "student-token", `{"courseId":"c1","method":"card"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Enter card number (dummy).", errorBody(t, w))
	})

	t.Run("preview", func(t *testing.T) {
		router := newTestRouter(NewCheckoutHandler(&mockCheckoutService{}, zap.NewNop()))
		w := serve(t, router, http.MethodGet, "/api/v1/checkout/c1?batch=b2", "student-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"batchKey":"b2"`)
	})
}

// mockLessonViewer is a mock implementation of LessonViewerService
type mockLessonViewer struct {
	quiz services.QuizSubmission
	err  error
}

func (m *mockLessonViewer) Lessons(ctx context.Context, courseID, batchKey string) (*services.LessonList, error) {
	return &services.LessonList{CourseID: courseID, BatchKey: batchKey}, m.err
}

func (m *mockLessonViewer) Progress(ctx context.Context, courseID, lessonID string) (*services.LessonStatus, error) {
	return &services.LessonStatus{LessonID: lessonID, Status: models.ProgressAttempted}, m.err
}

func (m *mockLessonViewer) Complete(ctx context.Context, courseID, lessonID string) (*services.LessonStatus, error) {
	return &services.LessonStatus{LessonID: lessonID, Status: models.ProgressCompleted}, m.err
}

func (m *mockLessonViewer) SubmitQuiz(ctx context.Context, courseID, lessonID string, sub services.QuizSubmission) (*services.QuizOutcome, error) {
	m.quiz = sub
	if m.err != nil {
		return nil, m.err
	}
	return &services.QuizOutcome{LessonID: lessonID, Status: models.ProgressCompleted}, nil
}

func (m *mockLessonViewer) SubmitAssignment(ctx context.Context, courseID, lessonID string, sub services.AssignmentSubmission) (*services.AssignmentOutcome, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &services.AssignmentOutcome{LessonID: lessonID, Message: "Assignment submitted"}, nil
}

func TestLessonHandler(t *testing.T) {
	t.Run("lessons of a batch", func(t *testing.T) {
		router := newTestRouter(NewLessonHandler(&mockLessonViewer{}, zap.NewNop()))

		w := serve(t, router, http.MethodGet, "/api/v1/learn/c1/lessons?batch=b1", "student-token", "")

		require.Equal(t, http.StatusOK, w.Code)
		var list services.LessonList
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Equal(t, "c1", list.CourseID)
		assert.Equal(t, "b1", list.BatchKey)
	})

	t.Run("anonymous", func(t *testing.T) {
		router := newTestRouter(NewLessonHandler(&mockLessonViewer{}, zap.NewNop()))
		w := serve(t, router, http.MethodGet, "/api/v1/learn/c1/lessons", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("quiz answers by position", func(t *testing.T) {
		svc := &mockLessonViewer{}
		router := newTestRouter(NewLessonHandler(svc, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/learn/c1/lessons/l2/quiz", "student-token", `{"batchKey":"b1","answers":{"0":1,"1":0}}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[int]int{0: 1, 1: 0}, svc.quiz.Answers)
		assert.Equal(t, "b1", svc.quiz.BatchKey)
	})

	t.Run("second quiz submission", func(t *testing.T) {
		router := newTestRouter(NewLessonHandler(&mockLessonViewer{err: progress.ErrAlreadySubmitted}, zap.NewNop()))

		w := serve(t, router, http.MethodPost, "/api/v1/learn/c1/lessons/l2/quiz", "student-token", `{"answers":{}}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("complete and assignment", func(t *testing.T) {
		router := newTestRouter(NewLessonHandler(&mockLessonViewer{}, zap.NewNop()))

		assert.Equal(t, http.StatusOK, serve(t, router, http.MethodPost, "/api/v1/learn/c1/lessons/l1/complete", "student-token", "").Code)
		assert.Equal(t, http.StatusOK, serve(t, router, http.MethodGet, "/api/v1/learn/c1/lessons/l1/progress", "student-token", "").Code)

		w := serve(t, router, http.MethodPost, "/api/v1/learn/c1/lessons/l3/assignment", "student-token", `{"text":"https://github.com/x"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Assignment submitted")
	})
}

// mockDashboardService is a mock implementation of DashboardService
type mockDashboardService struct {
	err error
}

func (m *mockDashboardService) Progress(ctx context.Context) (*services.Dashboard, error) {
	return &services.Dashboard{CompletionPercent: 40}, m.err
}

func (m *mockDashboardService) Enrollments(ctx context.Context) (*services.EnrollmentList, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &services.EnrollmentList{Message: "You have no enrollments yet."}, nil
}

func (m *mockDashboardService) Enrollment(ctx context.Context, enrollmentID string) (*services.EnrollmentDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &services.EnrollmentDetail{Enrollment: models.Enrollment{ID: enrollmentID}}, nil
}

func TestDashboardHandler(t *testing.T) {
	t.Run("dashboard", func(t *testing.T) {
		router := newTestRouter(NewDashboardHandler(&mockDashboardService{}, zap.NewNop()))
		w := serve(t, router, http.MethodGet, "/api/v1/student/dashboard", "student-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"completionPercent":40`)
	})

	t.Run("enrollments", func(t *testing.T) {
		router := newTestRouter(NewDashboardHandler(&mockDashboardService{}, zap.NewNop()))
		w := serve(t, router, http.MethodGet, "/api/v1/student/enrollments", "student-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "You have no enrollments yet.")
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		router := newTestRouter(NewDashboardHandler(&mockDashboardService{err: services.ErrEnrollmentNotFound}, zap.NewNop()))
		w := serve(t, router, http.MethodGet, "/api/v1/student/enrollments/e9", "student-token", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing user id", func(t *testing.T) {
		router := newTestRouter(NewDashboardHandler(&mockDashboardService{err: services.ErrUserIDUnavailable}, zap.NewNop()))
		w := serve(t, router, http.MethodGet, "/api/v1/student/enrollments", "student-token", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User id not available.", errorBody(t, w))
	})
}

// mockAdminServices is a mock implementation of the admin service interfaces
type mockAdminServices struct {
	selection string
	lesson    services.CreateLessonRequest
	students  client.StudentQuery
	err       error
}

func (m *mockAdminServices) Course(ctx context.Context, courseID, selection string) (*services.ManagedCourse, error) {
	m.selection = selection
	return &services.ManagedCourse{Course: &models.Course{ID: courseID}}, m.err
}

func (m *mockAdminServices) AddBatch(ctx context.Context, courseID string, req services.AddBatchRequest) (*services.ManagedCourse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &services.ManagedCourse{Course: &models.Course{ID: courseID}}, nil
}

func (m *mockAdminServices) CreateCourse(ctx context.Context, req services.CreateCourseRequest) (*client.CreatedCourse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &client.CreatedCourse{ID: "c-new"}, nil
}

func (m *mockAdminServices) Courses(ctx context.Context) ([]services.LessonCourse, error) {
	return []services.LessonCourse{{ID: "c1"}}, m.err
}

func (m *mockAdminServices) CreateLesson(ctx context.Context, req services.CreateLessonRequest) (*services.CreatedLesson, error) {
	m.lesson = req
	if m.err != nil {
		return nil, m.err
	}
	return &services.CreatedLesson{CourseID: req.CourseID, Message: "Lesson added"}, nil
}

func (m *mockAdminServices) List(ctx context.Context, q client.StudentQuery) (*services.StudentPage, error) {
	m.students = q
	return &services.StudentPage{}, m.err
}

func (m *mockAdminServices) Student(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Student{ID: id}, nil
}

func newAdminRouter(svc *mockAdminServices) http.Handler {
	return newTestRouter(NewAdminHandler(svc, svc, svc, zap.NewNop()))
}

func TestAdminHandler(t *testing.T) {
	t.Run("admins only", func(t *testing.T) {
		router := newAdminRouter(&mockAdminServices{})

		assert.Equal(t, http.StatusUnauthorized, serve(t, router, http.MethodGet, "/api/v1/admin/students", "", "").Code)
		assert.Equal(t, http.StatusForbidden, serve(t, router, http.MethodGet, "/api/v1/admin/students", "student-token", "").Code)
	})

	t.Run("manage course", func(t *testing.T) {
		svc := &mockAdminServices{}
		w := serve(t, newAdminRouter(svc), http.MethodGet, "/api/v1/admin/courses/c1?batch=Batch%202", "admin-token", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Batch 2", svc.selection)
	})

	t.Run("create course", func(t *testing.T) {
		w := serve(t, newAdminRouter(&mockAdminServices{}), http.MethodPost, "/api/v1/admin/courses", "admin-token", `{"title":"Go","description":"d"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "c-new")
	})

	t.Run("add batch validation", func(t *testing.T) {
		svc := &mockAdminServices{err: validation.Errorf("Batch name required")}
		w := serve(t, newAdminRouter(svc), http.MethodPost, "/api/v1/admin/courses/c1/batches", "admin-token", `{"name":""}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Batch name required", errorBody(t, w))
	})

	t.Run("create lesson", func(t *testing.T) {
		svc := &mockAdminServices{}
		w := serve(t, newAdminRouter(svc), http.MethodPost, "/api/v1/admin/lessons", "admin-token",
			`{"courseId":"c1","title":"Quiz 1","lessonNumber":2,"type":"quiz","quizQuestions":[{"question":"?","options":["a","b"],"correctIndex":1}]}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "c1", svc.lesson.CourseID)
		require.Len(t, svc.lesson.QuizQuestions, 1)
		assert.Equal(t, 1, svc.lesson.QuizQuestions[0].CorrectIndex)
		assert.Equal(t, "b", svc.lesson.QuizQuestions[0].Options[1].Text)
	})

	t.Run("lesson courses", func(t *testing.T) {
		w := serve(t, newAdminRouter(&mockAdminServices{}), http.MethodGet, "/api/v1/admin/lessons/courses", "admin-token", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("student directory", func(t *testing.T) {
		svc := &mockAdminServices{}
		w := serve(t, newAdminRouter(svc), http.MethodGet, "/api/v1/admin/students?q=rahim&sort=name_asc&page=3", "admin-token", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, client.StudentQuery{Query: "rahim", Sort: "name_asc", Page: 3}, svc.students)
	})

	t.Run("missing student", func(t *testing.T) {
		svc := &mockAdminServices{err: fmt.Errorf("failed to get student: %w", &client.APIError{StatusCode: http.StatusNotFound, Message: "Student not found"})}
		w := serve(t, newAdminRouter(svc), http.MethodGet, "/api/v1/admin/students/s9", "admin-token", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Student not found", errorBody(t, w))
	})
}
