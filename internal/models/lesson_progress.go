package models

import "time"

// ProgressStatus represents how far a student got with a lesson
type ProgressStatus string

const (
	ProgressUnattempted ProgressStatus = "unattempted"
	ProgressAttempted   ProgressStatus = "attempted"
	ProgressCompleted   ProgressStatus = "completed"
)

// IsValid checks if the progress status is valid
func (s ProgressStatus) IsValid() bool {
	switch s {
	case ProgressUnattempted, ProgressAttempted, ProgressCompleted:
		return true
	}
	return false
}

// LessonProgress is the portal's record of a student's lesson state
type LessonProgress struct {
	ID        int            `json:"-"`
	UserID    string         `json:"userId"`
	CourseID  string         `json:"courseId"`
	LessonID  string         `json:"lessonId"`
	Status    ProgressStatus `json:"status"`
	Score     *float64       `json:"score,omitempty"`
	Total     *float64       `json:"total,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
