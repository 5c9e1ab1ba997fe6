package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/progress"
	"github.com/coursemuster/portal/internal/quiz"
	"github.com/coursemuster/portal/internal/repositories"
	"github.com/coursemuster/portal/internal/validation"
	"github.com/coursemuster/portal/internal/viewmodel"
	"go.uber.org/zap"
)

// LessonViewerAPI is the interface that wraps the student lesson endpoints of the Course API
type LessonViewerAPI interface {
	// Method StudentLessons returns the lessons of a course visible to the signed-in student.
	//
	// "ctx" carries the student session; cancelling it aborts the call with client.ErrAborted.
	// "batchID" narrows the lessons to one batch; it may be empty.
	StudentLessons(ctx context.Context, courseID, batchID string) ([]models.Lesson, error)
	// Method LessonProgress returns the server's progress object of a lesson, or nil when there is none.
	LessonProgress(ctx context.Context, lessonID string) (json.RawMessage, error)
	// Method CompleteLesson marks a lesson complete for the signed-in student.
	CompleteLesson(ctx context.Context, lessonID string) error
	// Method SubmitQuiz grades quiz answers and returns the raw grading response.
	//
	// The response layout varies; please reference quiz.Normalize for the known shapes.
	SubmitQuiz(ctx context.Context, lessonID string, answers []quiz.Answer) ([]byte, error)
	// Method SubmitAssignment hands in an assignment.
	SubmitAssignment(ctx context.Context, lessonID string, s client.Submission) (*client.SubmissionResult, error)
}

// ProgressStore is the interface that wraps the portal's lesson progress table
type ProgressStore interface {
	// Method Get returns the progress of one lesson.
	//
	// Returns repositories.ErrProgressNotFound if the student never touched the lesson.
	Get(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error)
	// Method ListByCourse returns every progress record of a student in a course.
	ListByCourse(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error)
	// Method Upsert stores a progress record. A stored status is never moved backwards.
	Upsert(ctx context.Context, p *models.LessonProgress) error
}

var (
	youtubeID    = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})(?:\?|&|$)`)
	youtubeShort = regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`)
	youtubeHost  = regexp.MustCompile(`youtube\.com|youtu\.be`)
)

// EmbedURL returns the embeddable player URL of a YouTube link, or "" when
// the link is not a recognizable YouTube video
func EmbedURL(videoURL string) string {
	if videoURL == "" || !youtubeHost.MatchString(videoURL) {
		return ""
	}
	if m := youtubeID.FindStringSubmatch(videoURL); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := youtubeShort.FindStringSubmatch(videoURL); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	return ""
}

// ViewerLesson is a lesson as shown to the student
type ViewerLesson struct {
	models.Lesson
	EmbedURL string                `json:"embedUrl,omitempty"`
	Status   models.ProgressStatus `json:"status"`
}

// LessonList is the lesson list of one course batch
type LessonList struct {
	CourseID  string                 `json:"courseId"`
	BatchKey  string                 `json:"batchKey"`
	Lessons   []ViewerLesson         `json:"lessons"`
	Counts    viewmodel.LessonCounts `json:"counts"`
	Completed int                    `json:"completed"`
}

// LessonStatus is the progress of one lesson
type LessonStatus struct {
	LessonID string                `json:"lessonId"`
	Status   models.ProgressStatus `json:"status"`
	Progress json.RawMessage       `json:"progress,omitempty" swaggertype:"object"`
}

// QuizSubmission holds the chosen option index per question position
type QuizSubmission struct {
	BatchKey string      `json:"batchKey"`
	Answers  map[int]int `json:"answers"`
}

// QuizOutcome is the graded quiz with the resulting lesson status
type QuizOutcome struct {
	quiz.Result
	LessonID string                `json:"lessonId"`
	Status   models.ProgressStatus `json:"status"`
}

// AssignmentSubmission is the student's assignment hand-in
type AssignmentSubmission struct {
	Text string `json:"text" validate:"notblank" message:"Please provide your submission (text or a link)."`
}

// AssignmentOutcome is the result of handing in an assignment
type AssignmentOutcome struct {
	LessonID string                `json:"lessonId"`
	Message  string                `json:"message"`
	Status   models.ProgressStatus `json:"status"`
	Progress json.RawMessage       `json:"progress,omitempty" swaggertype:"object"`
}

// pendingSubmissions tracks the lessons a student has a submission in flight for
type pendingSubmissions struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// begin claims a lesson for one submission; false when another one holds it
func (p *pendingSubmissions) begin(userID, lessonID string) bool {
	key := userID + "/" + lessonID
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.keys[key]; ok {
		return false
	}
	p.keys[key] = struct{}{}
	return true
}

func (p *pendingSubmissions) end(userID, lessonID string) {
	p.mu.Lock()
	delete(p.keys, userID+"/"+lessonID)
	p.mu.Unlock()
}

type lessonViewerService struct {
	api       LessonViewerAPI
	store     ProgressStore
	validator *validation.Validator
	logger    *zap.Logger
	pending   *pendingSubmissions
}

// NewLessonViewerService creates a new lesson viewer service
func NewLessonViewerService(api LessonViewerAPI, store ProgressStore, validator *validation.Validator, logger *zap.Logger) *lessonViewerService {
	return &lessonViewerService{
		api:       api,
		store:     store,
		validator: validator,
		logger:    logger,
		pending:   &pendingSubmissions{keys: make(map[string]struct{})},
	}
}

// Lessons returns the lessons of a course batch with the student's status
// for each
func (s *lessonViewerService) Lessons(ctx context.Context, courseID, batchKey string) (*LessonList, error) {
	_, userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	lessons, err := s.api.StudentLessons(ctx, courseID, batchKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get lessons: %w", err)
	}

	records, err := s.store.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	statuses := make(map[string]models.ProgressStatus, len(records))
	for _, r := range records {
		statuses[r.LessonID] = progress.Normalize(r.Status)
	}

	list := &LessonList{
		CourseID: courseID,
		BatchKey: batchKey,
		Lessons:  make([]ViewerLesson, 0, len(lessons)),
		Counts:   viewmodel.CountLessons(lessons),
	}
	for _, l := range lessons {
		status := progress.Normalize(statuses[l.ID])
		if status == models.ProgressCompleted {
			list.Completed++
		}
		vl := ViewerLesson{Lesson: l, Status: status}
		if l.Type == models.LessonTypeVideo {
			vl.EmbedURL = EmbedURL(l.VideoURL)
		}
		list.Lessons = append(list.Lessons, vl)
	}
	return list, nil
}

// localStatus returns the stored status of a lesson, unattempted when none
func (s *lessonViewerService) localStatus(ctx context.Context, userID, lessonID string) (models.ProgressStatus, error) {
	p, err := s.store.Get(ctx, userID, lessonID)
	if errors.Is(err, repositories.ErrProgressNotFound) {
		return models.ProgressUnattempted, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get lesson progress: %w", err)
	}
	return progress.Normalize(p.Status), nil
}

func (s *lessonViewerService) save(ctx context.Context, p *models.LessonProgress) error {
	if err := s.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("failed to save lesson progress: %w", err)
	}
	s.logger.Debug("lesson progress saved",
		zap.String("user_id", p.UserID),
		zap.String("lesson_id", p.LessonID),
		zap.String("status", string(p.Status)),
	)
	return nil
}

// Progress returns the status of a lesson, reconciling the stored status
// with the server's progress object
func (s *lessonViewerService) Progress(ctx context.Context, courseID, lessonID string) (*LessonStatus, error) {
	_, userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	local, err := s.localStatus(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	raw, err := s.api.LessonProgress(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}

	status := local
	if server, ok := progress.FromServer(raw); ok {
		status = progress.Advance(local, server)
	}
	if status != local {
		if err := s.save(ctx, &models.LessonProgress{UserID: userID, CourseID: courseID, LessonID: lessonID, Status: status}); err != nil {
			return nil, err
		}
	}

	return &LessonStatus{LessonID: lessonID, Status: status, Progress: raw}, nil
}

// Complete marks a lesson complete
func (s *lessonViewerService) Complete(ctx context.Context, courseID, lessonID string) (*LessonStatus, error) {
	_, userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	local, err := s.localStatus(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	status, err := progress.Next(local, progress.EventMarkedComplete, false)
	if err != nil {
		return nil, err
	}

	if err := s.api.CompleteLesson(ctx, lessonID); err != nil {
		return nil, fmt.Errorf("failed to complete lesson: %w", err)
	}
	if err := s.save(ctx, &models.LessonProgress{UserID: userID, CourseID: courseID, LessonID: lessonID, Status: status}); err != nil {
		return nil, err
	}
	return &LessonStatus{LessonID: lessonID, Status: status}, nil
}

// findLesson looks a lesson up in the student's lesson list
func (s *lessonViewerService) findLesson(ctx context.Context, courseID, batchKey, lessonID string) (*models.Lesson, error) {
	lessons, err := s.api.StudentLessons(ctx, courseID, batchKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get lessons: %w", err)
	}
	for i := range lessons {
		if lessons[i].ID == lessonID {
			return &lessons[i], nil
		}
	}
	return nil, ErrLessonNotFound
}

// SubmitQuiz grades the student's answers. A lesson accepts one quiz
// submission; later ones fail with progress.ErrAlreadySubmitted before
// anything is sent to the course API. The same happens to a submission
// racing one still in flight on this instance. Instances share only the
// stored status, so two instances can still both reach the course API.
func (s *lessonViewerService) SubmitQuiz(ctx context.Context, courseID, lessonID string, sub QuizSubmission) (*QuizOutcome, error) {
	_, userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if !s.pending.begin(userID, lessonID) {
		return nil, progress.ErrAlreadySubmitted
	}
	defer s.pending.end(userID, lessonID)

	local, err := s.localStatus(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress.Submitted(local) {
		return nil, progress.ErrAlreadySubmitted
	}

	lesson, err := s.findLesson(ctx, courseID, strings.TrimSpace(sub.BatchKey), lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeQuiz {
		return nil, validation.Errorf("This lesson has no quiz")
	}

	answers, err := quiz.BuildAnswers(lesson.QuizPayload, sub.Answers)
	if err != nil {
		return nil, err
	}

	raw, err := s.api.SubmitQuiz(ctx, lessonID, answers)
	if err != nil {
		return nil, fmt.Errorf("failed to submit quiz: %w", err)
	}

	result, err := quiz.Normalize(raw, lesson.QuestionCount())
	if err != nil {
		// The quiz is graded already, so the lesson is closed for resubmission
		s.logger.Warn("unrecognized quiz result", zap.String("lesson_id", lessonID), zap.Error(err))
		total := float64(lesson.QuestionCount())
		attempted := &models.LessonProgress{
			UserID:   userID,
			CourseID: courseID,
			LessonID: lessonID,
			Status:   models.ProgressAttempted,
			Total:    &total,
		}
		if saveErr := s.save(ctx, attempted); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	}

	var status models.ProgressStatus
	if server, ok := progress.FromServer(result.Progress); ok {
		status = progress.Advance(local, server)
	} else {
		status, err = progress.Next(local, progress.EventQuizSubmitted, result.Perfect())
		if err != nil {
			return nil, err
		}
	}

	record := &models.LessonProgress{
		UserID:   userID,
		CourseID: courseID,
		LessonID: lessonID,
		Status:   status,
		Score:    result.Score,
	}
	if result.Total > 0 {
		total := result.Total
		record.Total = &total
	}
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("quiz submitted",
		zap.String("lesson_id", lessonID),
		zap.String("shape", result.Shape.String()),
		zap.String("status", string(status)),
	)
	return &QuizOutcome{Result: result, LessonID: lessonID, Status: status}, nil
}

// SubmitAssignment hands in an assignment. Like quizzes, a lesson accepts a
// single submission.
func (s *lessonViewerService) SubmitAssignment(ctx context.Context, courseID, lessonID string, sub AssignmentSubmission) (*AssignmentOutcome, error) {
	_, userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(sub); err != nil {
		return nil, err
	}

	if !s.pending.begin(userID, lessonID) {
		return nil, progress.ErrAlreadySubmitted
	}
	defer s.pending.end(userID, lessonID)

	local, err := s.localStatus(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress.Submitted(local) {
		return nil, progress.ErrAlreadySubmitted
	}

	res, err := s.api.SubmitAssignment(ctx, lessonID, client.Submission{Text: strings.TrimSpace(sub.Text)})
	if err != nil {
		return nil, fmt.Errorf("failed to submit assignment: %w", err)
	}

	var status models.ProgressStatus
	if server, ok := progress.FromServer(res.Progress); ok {
		status = progress.Advance(local, server)
	} else {
		status, err = progress.Next(local, progress.EventAssignmentSubmitted, false)
		if err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, &models.LessonProgress{UserID: userID, CourseID: courseID, LessonID: lessonID, Status: status}); err != nil {
		return nil, err
	}

	message := res.Message
	if message == "" {
		message = "Assignment submitted"
	}
	return &AssignmentOutcome{LessonID: lessonID, Message: message, Status: status, Progress: res.Progress}, nil
}
