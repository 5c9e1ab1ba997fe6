package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/viewmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeSummary(t *testing.T, raw string) *models.ProgressSummary {
	t.Helper()
	var s models.ProgressSummary
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return &s
}

func TestDashboardService_Progress(t *testing.T) {
	summary := decodeSummary(t, `{
		"overall": {"totalLessons": 12, "lessonsCompleted": "7", "quizzesTaken": 2, "avgQuizScore": 81.5},
		"courses": [
			{"courseId": "c1", "title": "Go Basics", "purchasedAt": "2024-01-01", "lessonCounts": {"total": 6}, "progress": {"completed": 2}},
			{"courseId": "c2", "title": "Distributed Systems Fundamentals", "batchName": "Evening", "purchasedAt": "2024-03-01", "lessonCounts": {"total": 6}, "progress": {"completed": 5}}
		]
	}`)
	api := &mockCourseAPI{summary: summary}
	svc := NewDashboardService(api, zap.NewNop())

	dash, err := svc.Progress(studentContext("u1"))

	require.NoError(t, err)
	assert.Equal(t, 58, dash.CompletionPercent)
	assert.Equal(t, 7, dash.Overall.LessonsCompleted)
	assert.JSONEq(t, `[{"name":"0-49","value":0},{"name":"50-69","value":0},{"name":"70-89","value":0},{"name":"90-100","value":0}]`, string(dash.Overall.QuizBuckets))

	require.Len(t, dash.RecentCourses, 2)
	assert.Equal(t, "c2", dash.RecentCourses[0].CourseID)
	assert.Equal(t, 83, dash.RecentCourses[0].Percent)
	assert.Equal(t, "Evening", dash.RecentCourses[0].BatchName)
	assert.Equal(t, "Batch", dash.RecentCourses[1].BatchName)
	assert.Equal(t, 33, dash.RecentCourses[1].Percent)

	require.Len(t, dash.Timeline, 5)
	assert.Equal(t, "W1", dash.Timeline[0].Week)

	require.Len(t, dash.Distribution, 2)
	assert.Equal(t, "Distributed Systems ", dash.Distribution[1].Name)
	assert.Len(t, dash.Courses, 2)

	t.Run("server buckets kept", func(t *testing.T) {
		api := &mockCourseAPI{summary: decodeSummary(t, `{"overall":{"quizBuckets":[{"name":"90-100","value":3}]}}`)}
		dash, err := NewDashboardService(api, zap.NewNop()).Progress(studentContext("u1"))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"name":"90-100","value":3}]`, string(dash.Overall.QuizBuckets))
		assert.Zero(t, dash.CompletionPercent)
		assert.Empty(t, dash.RecentCourses)
	})

	t.Run("sign in required", func(t *testing.T) {
		api := &mockCourseAPI{}
		_, err := NewDashboardService(api, zap.NewNop()).Progress(context.Background())
		assert.ErrorIs(t, err, ErrSignInRequired)
		assert.Zero(t, api.called("StudentProgress"))
	})
}

func TestRecentCourses(t *testing.T) {
	courses := make([]models.CourseProgress, 0, 8)
	for i, date := range []string{"2024-01-01", "", "2024-05-01", "2024-02-01", "2024-04-01", "2024-03-01", "2024-06-01", "2023-12-01"} {
		courses = append(courses, models.CourseProgress{
			CourseID:    string(rune('a' + i)),
			PurchasedAt: date,
		})
	}

	recent := RecentCourses(courses, RecentCourseLimit)

	require.Len(t, recent, RecentCourseLimit)
	ids := make([]string, 0, len(recent))
	for _, r := range recent {
		ids = append(ids, r.CourseID)
	}
	assert.Equal(t, []string{"g", "c", "e", "f", "d", "a"}, ids)
	assert.Nil(t, recent[0].Thumbnail)
}

func TestTimeline(t *testing.T) {
	tests := []struct {
		completed int
		expected  []int
	}{
		{completed: 0, expected: []int{0, 0, 0, 0, 0}},
		{completed: 3, expected: []int{1, 1, 1, 0, 0}},
		{completed: 12, expected: []int{3, 3, 2, 2, 2}},
		{completed: -4, expected: []int{0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		points := Timeline(tt.completed)
		got := make([]int, 0, len(points))
		for _, p := range points {
			got = append(got, p.Completed)
		}
		assert.Equal(t, tt.expected, got, "completed=%d", tt.completed)
	}
}

func TestDistribution(t *testing.T) {
	dist := Distribution([]models.CourseProgress{
		{CourseID: "c1", Title: "Go"},
		{CourseID: "c2", Title: "Go"},
		{CourseID: "c3"},
		{Title: "An exceedingly long course title"},
	})

	assert.Equal(t, []NamedValue{
		{Name: "Go", Value: 2},
		{Name: "c3", Value: 1},
		{Name: "An exceedingly long ", Value: 1},
	}, dist)
}

func TestDashboardService_Enrollments(t *testing.T) {
	t.Run("empty list carries a message", func(t *testing.T) {
		api := &mockCourseAPI{}
		list, err := NewDashboardService(api, zap.NewNop()).Enrollments(studentContext("u7"))

		require.NoError(t, err)
		assert.Empty(t, list.Enrollments)
		assert.Equal(t, "You have no enrollments yet.", list.Message)
		assert.Equal(t, "u7", api.lastUserID)
	})

	t.Run("user id required", func(t *testing.T) {
		api := &mockCourseAPI{}
		_, err := NewDashboardService(api, zap.NewNop()).Enrollments(studentContext(""))

		assert.ErrorIs(t, err, ErrUserIDUnavailable)
		assert.Zero(t, api.called("Enrollments"))
	})
}

func TestDashboardService_Enrollment(t *testing.T) {
	tests := []struct {
		name            string
		enrollment      models.Enrollment
		lookup          string
		expectedStatus  viewmodel.EnrollmentBatchStatus
		expectedKey     string
		expectedLessons int
	}{
		{
			name:            "resolved by id",
			enrollment:      models.Enrollment{ID: "e1", CourseID: "c1", BatchID: "b1"},
			lookup:          "e1",
			expectedStatus:  viewmodel.EnrollmentBatchResolved,
			expectedKey:     "b1",
			expectedLessons: 1,
		},
		{
			name:            "resolved by name",
			enrollment:      models.Enrollment{ID: "e1", CourseID: "c1", BatchName: "Batch 2"},
			lookup:          "e1",
			expectedStatus:  viewmodel.EnrollmentBatchResolved,
			expectedKey:     "b2",
			expectedLessons: 1,
		},
		{
			name:            "open enrollment sees every lesson",
			enrollment:      models.Enrollment{ID: "e1", CourseID: "c1"},
			lookup:          "e1",
			expectedStatus:  viewmodel.EnrollmentBatchOpen,
			expectedLessons: 3,
		},
		{
			name:            "stale batch",
			enrollment:      models.Enrollment{CourseID: "c1", BatchID: "gone"},
			lookup:          "c1",
			expectedStatus:  viewmodel.EnrollmentBatchNotFound,
			expectedKey:     "gone",
			expectedLessons: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockCourseAPI{
				course:      decodeCourse(t, managedCourse),
				enrollments: []models.Enrollment{tt.enrollment},
			}
			svc := NewDashboardService(api, zap.NewNop())

			detail, err := svc.Enrollment(studentContext("u1"), tt.lookup)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, detail.Batch.Status)
			assert.Equal(t, tt.expectedKey, detail.Batch.Key)
			assert.Equal(t, tt.expectedLessons, detail.Lessons.Lessons)
			assert.Equal(t, "c1", detail.Card.CourseID)
		})
	}

	t.Run("unknown enrollment", func(t *testing.T) {
		api := &mockCourseAPI{enrollments: []models.Enrollment{{ID: "e1", CourseID: "c1"}}}
		_, err := NewDashboardService(api, zap.NewNop()).Enrollment(studentContext("u1"), "e2")

		assert.ErrorIs(t, err, ErrEnrollmentNotFound)
		assert.Zero(t, api.called("GetCourse"))
	})

	t.Run("course gone", func(t *testing.T) {
		api := &mockCourseAPI{enrollments: []models.Enrollment{{ID: "e1", CourseID: "c1"}}}
		_, err := NewDashboardService(api, zap.NewNop()).Enrollment(studentContext("u1"), "e1")

		assert.ErrorIs(t, err, client.ErrNotFound)
	})
}
