package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/quiz"
	"github.com/coursemuster/portal/internal/validation"
	"github.com/coursemuster/portal/internal/viewmodel"
	"go.uber.org/zap"
)

// LessonAuthoringAPI is the interface that wraps the lesson authoring endpoints of the Course API
type LessonAuthoringAPI interface {
	// Method ListLessonCourses returns the courses a lesson can be added to, with their batches.
	//
	// "ctx" carries the admin session; cancelling it aborts the call with client.ErrAborted.
	ListLessonCourses(ctx context.Context) (*models.CourseList, error)
	// Method GetCourse retrieves a course with its batches.
	//
	// Returns an error matching client.ErrNotFound if the course does not exist.
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	// Method CreateLesson creates a lesson in a course.
	//
	// Returns the created lesson, or nil when the API does not echo it back.
	CreateLesson(ctx context.Context, in client.NewLesson) (*models.Lesson, error)
}

// LessonCourse is one entry of the course picker of the lesson form
type LessonCourse struct {
	ID       string                  `json:"id"`
	Title    string                  `json:"title"`
	Category string                  `json:"category"`
	Batches  []viewmodel.BatchOption `json:"batches"`
}

// CreateLessonRequest is the admin request to add a lesson. Batch is a batch
// key or name; empty means the lesson is visible to every batch.
type CreateLessonRequest struct {
	CourseID               string                `json:"courseId" validate:"notblank" message:"Select a course"`
	Title                  string                `json:"title" validate:"trimmin=3" message:"Lesson title (min 3 chars) is required"`
	LessonNumber           int                   `json:"lessonNumber" validate:"gt=0" message:"Lesson number is required"`
	Batch                  string                `json:"batch"`
	Type                   string                `json:"type"`
	VideoURL               string                `json:"videoUrl"`
	DurationMinutes        float64               `json:"durationMinutes" validate:"gte=0" message:"Duration cannot be negative"`
	QuizQuestions          []models.QuizQuestion `json:"quizQuestions"`
	AssignmentInstructions string                `json:"assignmentInstructions"`
	AssignmentDueDate      string                `json:"assignmentDueDate"`
	ArticleBody            string                `json:"articleBody"`
	Resources              json.RawMessage       `json:"resources" swaggertype:"object"`
}

// CreatedLesson is the result of adding a lesson
type CreatedLesson struct {
	Lesson    *models.Lesson `json:"lesson,omitempty"`
	CourseID  string         `json:"courseId"`
	BatchName string         `json:"batchName"`
	Message   string         `json:"message"`
}

type lessonAuthoringService struct {
	api       LessonAuthoringAPI
	cache     ListingCache
	validator *validation.Validator
	logger    *zap.Logger
}

// NewLessonAuthoringService creates a new lesson authoring service. cache may be nil.
func NewLessonAuthoringService(api LessonAuthoringAPI, listingCache ListingCache, validator *validation.Validator, logger *zap.Logger) *lessonAuthoringService {
	return &lessonAuthoringService{
		api:       api,
		cache:     listingCache,
		validator: validator,
		logger:    logger,
	}
}

// Courses lists the courses a lesson can be added to
func (s *lessonAuthoringService) Courses(ctx context.Context) ([]LessonCourse, error) {
	list, err := s.api.ListLessonCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	out := make([]LessonCourse, 0, len(list.Items))
	for i := range list.Items {
		c := &list.Items[i]
		out = append(out, LessonCourse{
			ID:       c.ID,
			Title:    c.Title,
			Category: c.CategoryOrDefault(),
			Batches:  viewmodel.BatchOptions(batch.NewIndex(c)),
		})
	}
	return out, nil
}

// validateContent checks the type specific part of a lesson
func validateContent(t models.LessonType, req *CreateLessonRequest) error {
	switch t {
	case models.LessonTypeVideo:
		if !strings.Contains(strings.ToLower(req.VideoURL), "youtube") && EmbedURL(req.VideoURL) == "" {
			return validation.Errorf("A YouTube video URL is required for video lessons")
		}
	case models.LessonTypeQuiz:
		return quiz.ValidateQuestions(req.QuizQuestions)
	}
	return nil
}

// CreateLesson validates the lesson and creates it in the selected course
func (s *lessonAuthoringService) CreateLesson(ctx context.Context, req CreateLessonRequest) (*CreatedLesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	lessonType := models.ParseLessonType(req.Type)
	if err := validateContent(lessonType, &req); err != nil {
		return nil, err
	}

	course, err := s.api.GetCourse(ctx, strings.TrimSpace(req.CourseID))
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	in := client.NewLesson{
		CourseID:       course.ID,
		CourseName:     course.Title,
		CourseCategory: course.CategoryOrDefault(),
		Title:          strings.TrimSpace(req.Title),
		LessonNumber:   req.LessonNumber,
		Type:           lessonType,
		Resources:      req.Resources,
	}
	if in.CourseID == "" {
		in.CourseID = strings.TrimSpace(req.CourseID)
	}

	if token := strings.TrimSpace(req.Batch); token != "" && !strings.EqualFold(token, viewmodel.AllBatches) {
		ix := batch.NewIndex(course)
		if ref, ok := ix.Resolve(token); ok {
			in.BatchID = &ref.Key
			in.BatchName = ref.Name
		} else {
			// keep the caller's reference; the API decides whether it exists
			in.BatchID = &token
		}
	}

	switch lessonType {
	case models.LessonTypeVideo:
		in.VideoURL = strings.TrimSpace(req.VideoURL)
		in.DurationMinutes = req.DurationMinutes
	case models.LessonTypeQuiz:
		in.QuizPayload = quiz.Clean(req.QuizQuestions)
	case models.LessonTypeAssignment:
		in.AssignmentInstructions = strings.TrimSpace(req.AssignmentInstructions)
		in.AssignmentDueDate = strings.TrimSpace(req.AssignmentDueDate)
	case models.LessonTypeArticle:
		in.ArticleBody = req.ArticleBody
	}

	lesson, err := s.api.CreateLesson(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to add lesson: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	s.logger.Info("lesson created",
		zap.String("course_id", in.CourseID),
		zap.String("type", string(lessonType)),
		zap.Int("lesson_number", in.LessonNumber),
	)
	return &CreatedLesson{
		Lesson:    lesson,
		CourseID:  in.CourseID,
		BatchName: in.BatchName,
		Message:   "Lesson added",
	}, nil
}
