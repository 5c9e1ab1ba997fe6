package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/quiz"
)

// EnrollUser identifies the buyer in an enrollment
type EnrollUser struct {
	ID    *string `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// EnrollRequest is the payload of a course purchase
type EnrollRequest struct {
	CourseID string         `json:"courseId"`
	BatchID  *string        `json:"batchId"`
	User     EnrollUser     `json:"user"`
	Payment  models.Payment `json:"payment"`
}

// Submission is an assignment answer: free text or a link
type Submission struct {
	Text string `json:"text"`
}

// SubmissionResult is the answer to an assignment submission
type SubmissionResult struct {
	Message  string          `json:"message,omitempty"`
	Progress json.RawMessage `json:"progress,omitempty"`
}

func studentLessonPath(lessonID, action string) string {
	return "/api/course/student/" + url.PathEscape(lessonID) + "/" + action
}

// Enroll purchases a course and returns the API's confirmation message
func (a *CourseAPI) Enroll(ctx context.Context, in EnrollRequest) (string, error) {
	body, err := a.post(ctx, "/api/course/student/enroll", in)
	if err != nil {
		return "", err
	}
	return messageOf(body, "Enrollment successful"), nil
}

// StudentLessons lists the lessons of a course visible to the student,
// optionally narrowed to one batch
func (a *CourseAPI) StudentLessons(ctx context.Context, courseID, batchID string) ([]models.Lesson, error) {
	query := map[string]string{"courseId": courseID}
	if batchID != "" {
		query["batchId"] = batchID
	}
	body, err := a.get(ctx, "/api/course/student/get-lessons", query)
	if err != nil {
		return nil, err
	}

	var w struct {
		Lessons []json.RawMessage `json:"lessons"`
	}
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("failed to decode lessons: %w", err)
	}
	lessons := make([]models.Lesson, 0, len(w.Lessons))
	for _, raw := range w.Lessons {
		var l models.Lesson
		if err := json.Unmarshal(raw, &l); err != nil {
			continue
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

// LessonProgress returns the stored progress object of a lesson, or nil.
// Failures are treated as no progress.
func (a *CourseAPI) LessonProgress(ctx context.Context, lessonID string) (json.RawMessage, error) {
	body, err := a.get(ctx, "/api/course/student/lesson-progress", map[string]string{"lessonId": lessonID})
	if err != nil {
		if errors.Is(err, ErrAborted) {
			return nil, err
		}
		return nil, nil
	}

	var w struct {
		Progress json.RawMessage `json:"progress"`
	}
	if err := json.Unmarshal(body, &w); err != nil || !looksLikeJSON(w.Progress) {
		return nil, nil
	}
	return w.Progress, nil
}

// CompleteLesson marks a lesson as completed
func (a *CourseAPI) CompleteLesson(ctx context.Context, lessonID string) error {
	_, err := a.post(ctx, studentLessonPath(lessonID, "complete"), nil)
	return err
}

// SubmitQuiz submits quiz answers and returns the raw grading response, whose
// shape varies; see quiz.Normalize
func (a *CourseAPI) SubmitQuiz(ctx context.Context, lessonID string, answers []quiz.Answer) ([]byte, error) {
	return a.post(ctx, studentLessonPath(lessonID, "submit-quiz"), map[string]any{"answers": answers})
}

// SubmitAssignment hands in an assignment
func (a *CourseAPI) SubmitAssignment(ctx context.Context, lessonID string, s Submission) (*SubmissionResult, error) {
	body, err := a.post(ctx, studentLessonPath(lessonID, "submit-assignment"), map[string]any{"submission": s})
	if err != nil {
		return nil, err
	}

	out := &SubmissionResult{}
	_ = json.Unmarshal(body, out)
	if !looksLikeJSON(out.Progress) {
		out.Progress = nil
	}
	return out, nil
}

// StudentProgress returns the signed-in student's progress summary
func (a *CourseAPI) StudentProgress(ctx context.Context) (*models.ProgressSummary, error) {
	body, err := a.get(ctx, "/api/course/student/progress", nil)
	if err != nil {
		return nil, err
	}

	var summary models.ProgressSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &summary, nil
}

// Enrollments lists the enrollments of a user
func (a *CourseAPI) Enrollments(ctx context.Context, userID string) ([]models.Enrollment, error) {
	body, err := a.get(ctx, "/api/course/student/user/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	return models.DecodeEnrollments(unwrap(body, "enrollments")), nil
}

// MyEnrollments lists the enrollments of the signed-in user
func (a *CourseAPI) MyEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	body, err := a.get(ctx, "/api/course/student/my-enrollments", nil)
	if err != nil {
		return nil, err
	}
	return models.DecodeEnrollments(unwrap(body, "enrollments")), nil
}
