// Package progress implements the per-lesson progress state machine.
//
// A lesson moves from unattempted to attempted to completed and never back.
package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coursemuster/portal/internal/models"
)

// ErrAlreadySubmitted is returned when a quiz or assignment is submitted for
// a lesson that already has a submission
var ErrAlreadySubmitted = errors.New("lesson already submitted")

// Event is something that happened to a lesson
type Event int

const (
	// EventMarkedComplete is the student finishing a lesson
	EventMarkedComplete Event = iota + 1
	// EventQuizSubmitted is a graded quiz submission
	EventQuizSubmitted
	// EventAssignmentSubmitted is an assignment handed in for grading
	EventAssignmentSubmitted
)

func (e Event) String() string {
	switch e {
	case EventMarkedComplete:
		return "marked_complete"
	case EventQuizSubmitted:
		return "quiz_submitted"
	case EventAssignmentSubmitted:
		return "assignment_submitted"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

func rank(s models.ProgressStatus) int {
	switch s {
	case models.ProgressAttempted:
		return 1
	case models.ProgressCompleted:
		return 2
	default:
		return 0
	}
}

// Normalize maps an empty or unknown status to unattempted
func Normalize(s models.ProgressStatus) models.ProgressStatus {
	s = models.ProgressStatus(strings.ToLower(strings.TrimSpace(string(s))))
	if !s.IsValid() {
		return models.ProgressUnattempted
	}
	return s
}

// Next returns the status after event. perfect tells whether a quiz
// submission scored full marks; it is ignored for other events.
func Next(current models.ProgressStatus, event Event, perfect bool) (models.ProgressStatus, error) {
	current = Normalize(current)

	switch event {
	case EventMarkedComplete:
		return models.ProgressCompleted, nil
	case EventQuizSubmitted:
		if current != models.ProgressUnattempted {
			return current, ErrAlreadySubmitted
		}
		if perfect {
			return models.ProgressCompleted, nil
		}
		return models.ProgressAttempted, nil
	case EventAssignmentSubmitted:
		if current != models.ProgressUnattempted {
			return current, ErrAlreadySubmitted
		}
		return models.ProgressAttempted, nil
	default:
		return current, fmt.Errorf("unknown progress event: %s", event)
	}
}

// Advance returns whichever of the two statuses is further along
func Advance(current, proposed models.ProgressStatus) models.ProgressStatus {
	current = Normalize(current)
	proposed = Normalize(proposed)
	if rank(proposed) > rank(current) {
		return proposed
	}
	return current
}

// FromServer reads the status of a progress object returned by the course
// API. A stored quiz result or assignment submission counts as attempted.
// The second result is false when the object carries no usable status.
func FromServer(raw json.RawMessage) (models.ProgressStatus, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return "", false
	}

	var obj struct {
		Status     string          `json:"status"`
		Completed  *bool           `json:"completed"`
		Quiz       json.RawMessage `json:"quiz"`
		Submission json.RawMessage `json:"submission"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}

	if s := models.ProgressStatus(strings.ToLower(strings.TrimSpace(obj.Status))); s.IsValid() {
		return s, true
	}
	if obj.Completed != nil && *obj.Completed {
		return models.ProgressCompleted, true
	}
	if present(obj.Quiz) || present(obj.Submission) {
		return models.ProgressAttempted, true
	}
	return "", false
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// Submitted reports whether a lesson already has a quiz or assignment
// submission and must not accept another one
func Submitted(s models.ProgressStatus) bool {
	return Normalize(s) != models.ProgressUnattempted
}
