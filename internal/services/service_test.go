package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/quiz"
	"github.com/coursemuster/portal/internal/repositories"
	"github.com/coursemuster/portal/internal/session"
	"github.com/stretchr/testify/require"
)

// mockCourseAPI is a mock implementation of every Course API interface the
// services consume
type mockCourseAPI struct {
	mu sync.Mutex

	course        *models.Course
	courses       []models.Course
	listBody      []byte
	searchBody    []byte
	created       *client.CreatedCourse
	addBatch      *client.AddBatchResult
	createdLesson *models.Lesson
	lessons       []models.Lesson
	serverProg    json.RawMessage
	quizBody      []byte
	assignment    *client.SubmissionResult
	enrollMessage string
	summary       *models.ProgressSummary
	enrollments   []models.Enrollment
	students      *models.StudentList
	student       *models.Student
	err           error

	calls        map[string]int
	lastCourse   client.NewCourse
	lastBatch    client.NewBatch
	lastLesson   client.NewLesson
	lastEnroll   client.EnrollRequest
	lastAnswers  []quiz.Answer
	lastSubmit   client.Submission
	lastSearch   client.SearchQuery
	lastStudents client.StudentQuery
	lastUserID   string

	// quizEntered is signalled and quizRelease awaited inside SubmitQuiz when set
	quizEntered chan struct{}
	quizRelease chan struct{}
}

func (m *mockCourseAPI) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func (m *mockCourseAPI) called(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockCourseAPI) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	m.record("GetCourse")
	if m.err != nil {
		return nil, m.err
	}
	if m.course == nil {
		return nil, client.ErrNotFound
	}
	c := *m.course
	return &c, nil
}

func (m *mockCourseAPI) GetPublicCourse(ctx context.Context, id string) (*models.Course, error) {
	m.record("GetPublicCourse")
	return m.GetCourse(ctx, id)
}

func (m *mockCourseAPI) ListAllCoursesRaw(ctx context.Context) ([]byte, error) {
	m.record("ListAllCoursesRaw")
	if m.err != nil {
		return nil, m.err
	}
	return m.listBody, nil
}

func (m *mockCourseAPI) SearchCoursesRaw(ctx context.Context, q client.SearchQuery) ([]byte, error) {
	m.record("SearchCoursesRaw")
	m.lastSearch = q
	if m.err != nil {
		return nil, m.err
	}
	return m.searchBody, nil
}

func (m *mockCourseAPI) ListLessonCourses(ctx context.Context) (*models.CourseList, error) {
	m.record("ListLessonCourses")
	if m.err != nil {
		return nil, m.err
	}
	return &models.CourseList{Items: m.courses, Total: len(m.courses)}, nil
}

func (m *mockCourseAPI) CreateCourse(ctx context.Context, in client.NewCourse) (*client.CreatedCourse, error) {
	m.record("CreateCourse")
	m.lastCourse = in
	if m.err != nil {
		return nil, m.err
	}
	return m.created, nil
}

func (m *mockCourseAPI) AddBatch(ctx context.Context, courseID string, in client.NewBatch) (*client.AddBatchResult, error) {
	m.record("AddBatch")
	m.lastBatch = in
	if m.err != nil {
		return nil, m.err
	}
	return m.addBatch, nil
}

func (m *mockCourseAPI) CreateLesson(ctx context.Context, in client.NewLesson) (*models.Lesson, error) {
	m.record("CreateLesson")
	m.lastLesson = in
	if m.err != nil {
		return nil, m.err
	}
	return m.createdLesson, nil
}

func (m *mockCourseAPI) StudentLessons(ctx context.Context, courseID, batchID string) ([]models.Lesson, error) {
	m.record("StudentLessons")
	if m.err != nil {
		return nil, m.err
	}
	return m.lessons, nil
}

func (m *mockCourseAPI) LessonProgress(ctx context.Context, lessonID string) (json.RawMessage, error) {
	m.record("LessonProgress")
	if m.err != nil {
		return nil, m.err
	}
	return m.serverProg, nil
}

func (m *mockCourseAPI) CompleteLesson(ctx context.Context, lessonID string) error {
	m.record("CompleteLesson")
	return m.err
}

func (m *mockCourseAPI) SubmitQuiz(ctx context.Context, lessonID string, answers []quiz.Answer) ([]byte, error) {
	m.record("SubmitQuiz")
	m.lastAnswers = answers
	if m.quizEntered != nil {
		m.quizEntered <- struct{}{}
	}
	if m.quizRelease != nil {
		<-m.quizRelease
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.quizBody, nil
}

func (m *mockCourseAPI) SubmitAssignment(ctx context.Context, lessonID string, s client.Submission) (*client.SubmissionResult, error) {
	m.record("SubmitAssignment")
	m.lastSubmit = s
	if m.err != nil {
		return nil, m.err
	}
	if m.assignment == nil {
		return &client.SubmissionResult{}, nil
	}
	return m.assignment, nil
}

func (m *mockCourseAPI) Enroll(ctx context.Context, in client.EnrollRequest) (string, error) {
	m.record("Enroll")
	m.lastEnroll = in
	if m.err != nil {
		return "", m.err
	}
	return m.enrollMessage, nil
}

func (m *mockCourseAPI) StudentProgress(ctx context.Context) (*models.ProgressSummary, error) {
	m.record("StudentProgress")
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *mockCourseAPI) Enrollments(ctx context.Context, userID string) ([]models.Enrollment, error) {
	m.record("Enrollments")
	m.lastUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.enrollments, nil
}

func (m *mockCourseAPI) ListStudents(ctx context.Context, q client.StudentQuery) (*models.StudentList, error) {
	m.record("ListStudents")
	m.lastStudents = q
	if m.err != nil {
		return nil, m.err
	}
	return m.students, nil
}

func (m *mockCourseAPI) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	m.record("GetStudent")
	if m.err != nil {
		return nil, m.err
	}
	if m.student == nil {
		return nil, client.ErrNotFound
	}
	return m.student, nil
}

// mockProgressStore is an in-memory ProgressStore
type mockProgressStore struct {
	records map[string]models.LessonProgress
	err     error
	upserts int
}

func newMockProgressStore(records ...models.LessonProgress) *mockProgressStore {
	s := &mockProgressStore{records: make(map[string]models.LessonProgress)}
	for _, r := range records {
		s.records[r.UserID+"/"+r.LessonID] = r
	}
	return s
}

func (m *mockProgressStore) Get(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.records[userID+"/"+lessonID]
	if !ok {
		return nil, repositories.ErrProgressNotFound
	}
	return &r, nil
}

func (m *mockProgressStore) ListByCourse(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []models.LessonProgress{}
	for _, r := range m.records {
		if r.UserID == userID && r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockProgressStore) Upsert(ctx context.Context, p *models.LessonProgress) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	m.records[p.UserID+"/"+p.LessonID] = *p
	return nil
}

// mockListingCache is an in-memory ListingCache
type mockListingCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated int
}

func newMockListingCache() *mockListingCache {
	return &mockListingCache{entries: make(map[string][]byte)}
}

func (m *mockListingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.entries[key]
	return body, ok
}

func (m *mockListingCache) Set(ctx context.Context, key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = body
}

func (m *mockListingCache) Invalidate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	m.invalidated++
}

// mockImageUploader is a mock implementation of ImageUploader
type mockImageUploader struct {
	url   string
	err   error
	calls int
}

func (m *mockImageUploader) Upload(ctx context.Context, image string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// studentContext returns a context signed in as the given student
func studentContext(userID string) context.Context {
	return session.WithSession(context.Background(), &session.Session{
		Token: "token-" + userID,
		User:  models.User{ID: userID, Name: "Rahim", Email: "rahim@example.com", Role: models.RoleStudent},
		Role:  models.RoleStudent,
	})
}

// decodeCourse decodes a course fixture
func decodeCourse(t *testing.T, raw string) *models.Course {
	t.Helper()
	var c models.Course
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return &c
}
