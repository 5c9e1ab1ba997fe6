package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/viewmodel"
	"go.uber.org/zap"
)

const (
	// RecentCourseLimit is the number of courses on the dashboard's recent list
	RecentCourseLimit = 6
	timelinePoints    = 5
	distributionWidth = 20
	noEnrollments     = "You have no enrollments yet."
)

// StudentAPI is the interface that wraps the student dashboard endpoints of the Course API
type StudentAPI interface {
	// Method StudentProgress returns the signed-in student's progress summary.
	//
	// "ctx" carries the student session; cancelling it aborts the call with client.ErrAborted.
	StudentProgress(ctx context.Context) (*models.ProgressSummary, error)
	// Method Enrollments lists the enrollments of a student.
	Enrollments(ctx context.Context, userID string) ([]models.Enrollment, error)
	// Method GetCourse retrieves an enrolled course with its batches and lessons.
	//
	// Returns an error matching client.ErrNotFound if the course does not exist.
	GetCourse(ctx context.Context, id string) (*models.Course, error)
}

// RecentCourse is one entry of the dashboard's recent course list
type RecentCourse struct {
	CourseID    string  `json:"courseId"`
	Title       string  `json:"title"`
	Thumbnail   *string `json:"thumbnail"`
	Percent     int     `json:"percent"`
	BatchName   string  `json:"batchName"`
	PurchasedAt *string `json:"purchasedAt"`
}

// TimelinePoint is the number of lessons completed in one week bucket
type TimelinePoint struct {
	Week      string `json:"week"`
	Completed int    `json:"completed"`
}

// NamedValue is a labelled count used by the dashboard charts
type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Dashboard is the student's progress dashboard
type Dashboard struct {
	Overall           models.OverallProgress  `json:"overall"`
	CompletionPercent int                     `json:"completionPercent"`
	RecentCourses     []RecentCourse          `json:"recentCourses"`
	Timeline          []TimelinePoint         `json:"timeline"`
	Distribution      []NamedValue            `json:"distribution"`
	Courses           []models.CourseProgress `json:"courses"`
}

// EnrollmentList is the student's enrollments
type EnrollmentList struct {
	Enrollments []models.Enrollment `json:"enrollments"`
	Message     string              `json:"message,omitempty"`
}

// EnrollmentDetail is one enrollment with its course and resolved batch
type EnrollmentDetail struct {
	Enrollment models.Enrollment         `json:"enrollment"`
	Course     *models.Course            `json:"course"`
	Card       viewmodel.CatalogCard     `json:"card"`
	Batch      viewmodel.EnrollmentBatch `json:"batch"`
	Lessons    viewmodel.LessonCounts    `json:"lessons"`
}

type dashboardService struct {
	api    StudentAPI
	logger *zap.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(api StudentAPI, logger *zap.Logger) *dashboardService {
	return &dashboardService{
		api:    api,
		logger: logger,
	}
}

// percent returns part of whole as a rounded percentage, 0 for an empty whole
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// Progress returns the student's dashboard
func (s *dashboardService) Progress(ctx context.Context) (*Dashboard, error) {
	if _, ok := currentSession(ctx); !ok {
		return nil, ErrSignInRequired
	}

	summary, err := s.api.StudentProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	overall := summary.Overall
	if len(overall.QuizBuckets) == 0 {
		overall.QuizBuckets = emptyQuizBuckets()
	}

	return &Dashboard{
		Overall:           overall,
		CompletionPercent: min(100, percent(overall.LessonsCompleted, overall.TotalLessons)),
		RecentCourses:     RecentCourses(summary.Courses, RecentCourseLimit),
		Timeline:          Timeline(overall.LessonsCompleted),
		Distribution:      Distribution(summary.Courses),
		Courses:           summary.Courses,
	}, nil
}

func emptyQuizBuckets() json.RawMessage {
	buckets := []NamedValue{{Name: "0-49"}, {Name: "50-69"}, {Name: "70-89"}, {Name: "90-100"}}
	b, _ := json.Marshal(buckets)
	return b
}

// RecentCourses lists the most recently purchased courses first, at most
// limit of them. Courses without a purchase date sort last.
func RecentCourses(courses []models.CourseProgress, limit int) []RecentCourse {
	type entry struct {
		RecentCourse
		at int64
	}

	entries := make([]entry, 0, len(courses))
	for _, c := range courses {
		e := entry{RecentCourse: RecentCourse{
			CourseID:  c.CourseID,
			Title:     c.Title,
			Percent:   percent(c.CompletedLessons, c.TotalLessons),
			BatchName: c.BatchName,
		}}
		if e.BatchName == "" {
			e.BatchName = "Batch"
		}
		if c.Thumbnail != "" {
			thumb := c.Thumbnail
			e.Thumbnail = &thumb
		}
		if c.PurchasedAt != "" {
			at := c.PurchasedAt
			e.PurchasedAt = &at
			if t, ok := models.ParseDate(at); ok {
				e.at = t.UnixMilli()
			}
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at > entries[j].at
	})

	out := make([]RecentCourse, 0, min(limit, len(entries)))
	for i := 0; i < len(entries) && i < limit; i++ {
		out = append(out, entries[i].RecentCourse)
	}
	return out
}

// Timeline spreads the completed lesson count over five week buckets, the
// earliest buckets taking the remainder
func Timeline(completed int) []TimelinePoint {
	completed = max(0, completed)
	base := completed / timelinePoints
	remainder := completed - base*timelinePoints

	points := make([]TimelinePoint, 0, timelinePoints)
	for i := 0; i < timelinePoints; i++ {
		n := base
		if i < remainder {
			n++
		}
		points = append(points, TimelinePoint{Week: fmt.Sprintf("W%d", i+1), Completed: n})
	}
	return points
}

// Distribution counts courses by their shortened title
func Distribution(courses []models.CourseProgress) []NamedValue {
	counts := make(map[string]int)
	order := make([]string, 0, len(courses))
	for _, c := range courses {
		name := c.Title
		if name == "" {
			name = c.CourseID
		}
		if name == "" {
			name = "Course"
		}
		if r := []rune(name); len(r) > distributionWidth {
			name = string(r[:distributionWidth])
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}

	out := make([]NamedValue, 0, len(order))
	for _, name := range order {
		out = append(out, NamedValue{Name: name, Value: counts[name]})
	}
	return out
}

// Enrollments lists the signed-in student's enrollments
func (s *dashboardService) Enrollments(ctx context.Context) (*EnrollmentList, error) {
	_, userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.api.Enrollments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enrollments: %w", err)
	}

	out := &EnrollmentList{Enrollments: list}
	if len(list) == 0 {
		out.Message = noEnrollments
	}
	return out, nil
}

// Enrollment returns one of the student's enrollments with its course and
// the batch it resolves to
func (s *dashboardService) Enrollment(ctx context.Context, enrollmentID string) (*EnrollmentDetail, error) {
	list, err := s.Enrollments(ctx)
	if err != nil {
		return nil, err
	}

	var found *models.Enrollment
	for i := range list.Enrollments {
		e := &list.Enrollments[i]
		if e.ID == enrollmentID || (e.ID == "" && e.CourseID == enrollmentID) {
			found = e
			break
		}
	}
	if found == nil {
		return nil, ErrEnrollmentNotFound
	}

	course, err := s.api.GetCourse(ctx, found.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course data: %w", err)
	}

	ix := batch.NewIndex(course)
	resolved := viewmodel.ResolveEnrollmentBatch(ix, *found)
	lessons := course.Lessons
	if resolved.Status == viewmodel.EnrollmentBatchResolved {
		lessons = ix.FilterLessons(resolved.Key, lessons)
	}

	return &EnrollmentDetail{
		Enrollment: *found,
		Course:     course,
		Card:       viewmodel.Aggregate([]models.Course{*course})[0],
		Batch:      resolved,
		Lessons:    viewmodel.CountLessons(lessons),
	}, nil
}
