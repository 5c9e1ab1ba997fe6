package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/coursemuster/portal/internal/models"
)

// DefaultSearchLimit is the page size of the public catalog search
const DefaultSearchLimit = 12

// CourseAPI is the client of the remote Course API
type CourseAPI struct {
	*Client
}

// NewCourseAPI creates a Course API client
func NewCourseAPI(c *Client) *CourseAPI {
	return &CourseAPI{Client: c}
}

// SearchQuery holds the filters of the public catalog search
type SearchQuery struct {
	Query      string
	Category   string
	Instructor string
	Price      string
	Sort       string
	Page       int
	Limit      int
}

// Params returns the query string parameters; empty filters, price "all"
// and the default "newest" sort are omitted
func (q SearchQuery) Params() map[string]string {
	params := map[string]string{}
	if q.Query != "" {
		params["q"] = q.Query
	}
	if q.Category != "" {
		params["category"] = q.Category
	}
	if q.Instructor != "" {
		params["instructor"] = q.Instructor
	}
	if q.Price != "" && q.Price != "all" {
		params["price"] = q.Price
	}
	if q.Sort != "" && q.Sort != "newest" {
		params["sort"] = q.Sort
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultSearchLimit
	}
	params["page"] = strconv.Itoa(page)
	params["limit"] = strconv.Itoa(limit)
	return params
}

// NewBatch is a batch to create
type NewBatch struct {
	Name      string  `json:"name"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// NewCourse is the payload of course creation
type NewCourse struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Price          float64    `json:"price"`
	Thumbnail      *string    `json:"thumbnail"`
	InstructorName *string    `json:"instructorName"`
	Batches        []NewBatch `json:"batches"`
}

// CreatedCourse is the answer to course creation
type CreatedCourse struct {
	ID     string         `json:"id,omitempty"`
	Course *models.Course `json:"course,omitempty"`
}

// AddBatchResult is the answer to adding a batch. The API may return the
// updated course, only the new batch, or neither.
type AddBatchResult struct {
	Course *models.Course
	Batch  *models.Batch
}

// NewLesson is the payload of lesson creation
type NewLesson struct {
	CourseID               string                `json:"courseId"`
	CourseName             string                `json:"courseName"`
	CourseCategory         string                `json:"courseCategory"`
	BatchID                *string               `json:"batchId"`
	BatchName              string                `json:"batchName"`
	Title                  string                `json:"title"`
	LessonNumber           int                   `json:"lessonNumber"`
	Type                   models.LessonType     `json:"type"`
	VideoURL               string                `json:"videoUrl,omitempty"`
	DurationMinutes        float64               `json:"durationMinutes,omitempty"`
	QuizPayload            []models.QuizQuestion `json:"quizPayload,omitempty"`
	AssignmentInstructions string                `json:"assignmentInstructions,omitempty"`
	AssignmentDueDate      string                `json:"assignmentDueDate,omitempty"`
	ArticleBody            string                `json:"articleBody,omitempty"`
	Resources              json.RawMessage       `json:"resources,omitempty"`
}

func coursePath(id string) string {
	return "/api/course/" + url.PathEscape(id)
}

func decodeCourse(body []byte) (*models.Course, error) {
	var course models.Course
	if err := json.Unmarshal(unwrap(body, "course"), &course); err != nil {
		return nil, fmt.Errorf("failed to decode course: %w", err)
	}
	return &course, nil
}

// GetCourse fetches a course with its batches, lessons and purchases.
// The body may be the course itself or {course}.
func (a *CourseAPI) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	body, err := a.get(ctx, coursePath(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeCourse(body)
}

// GetPublicCourse fetches the public view of a course
func (a *CourseAPI) GetPublicCourse(ctx context.Context, id string) (*models.Course, error) {
	body, err := a.get(ctx, "/api/courses/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeCourse(body)
}

// ListAllCoursesRaw returns the raw body of the admin course listing
func (a *CourseAPI) ListAllCoursesRaw(ctx context.Context) ([]byte, error) {
	return a.get(ctx, "/api/course/all-courses", nil)
}

// ListAllCourses returns every course
func (a *CourseAPI) ListAllCourses(ctx context.Context) (*models.CourseList, error) {
	body, err := a.ListAllCoursesRaw(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeCourseList(body)
}

// SearchCoursesRaw returns the raw body of a catalog search
func (a *CourseAPI) SearchCoursesRaw(ctx context.Context, q SearchQuery) ([]byte, error) {
	return a.get(ctx, "/api/courses/get-all-courses", q.Params())
}

// SearchCourses runs a catalog search
func (a *CourseAPI) SearchCourses(ctx context.Context, q SearchQuery) (*models.CourseList, error) {
	body, err := a.SearchCoursesRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodeCourseList(body)
}

// ListLessonCourses returns the courses offered to lesson authoring
func (a *CourseAPI) ListLessonCourses(ctx context.Context) (*models.CourseList, error) {
	body, err := a.get(ctx, "/api/course/lessons", nil)
	if err != nil {
		return nil, err
	}
	return DecodeCourseList(body)
}

// DecodeCourseList decodes any course listing shape
func DecodeCourseList(body []byte) (*models.CourseList, error) {
	var list models.CourseList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode course list: %w", err)
	}
	return &list, nil
}

// CreateCourse creates a course with its batches
func (a *CourseAPI) CreateCourse(ctx context.Context, in NewCourse) (*CreatedCourse, error) {
	body, err := a.post(ctx, "/api/course/add-course", in)
	if err != nil {
		return nil, err
	}

	var w struct {
		ID     models.FlexString `json:"id"`
		Course json.RawMessage   `json:"course"`
	}
	out := &CreatedCourse{}
	if err := json.Unmarshal(body, &w); err != nil {
		return out, nil
	}
	if looksLikeJSON(w.Course) {
		var course models.Course
		if err := json.Unmarshal(w.Course, &course); err == nil {
			out.Course = &course
			out.ID = course.ID
		}
	}
	if out.ID == "" {
		out.ID = w.ID.String()
	}
	return out, nil
}

// AddBatch appends a batch to a course
func (a *CourseAPI) AddBatch(ctx context.Context, courseID string, in NewBatch) (*AddBatchResult, error) {
	body, err := a.post(ctx, coursePath(courseID)+"/batches", in)
	if err != nil {
		return nil, err
	}

	var w struct {
		Course json.RawMessage `json:"course"`
		Batch  json.RawMessage `json:"batch"`
	}
	out := &AddBatchResult{}
	if err := json.Unmarshal(body, &w); err != nil {
		return out, nil
	}
	if looksLikeJSON(w.Course) {
		var course models.Course
		if err := json.Unmarshal(w.Course, &course); err == nil {
			out.Course = &course
			return out, nil
		}
	}
	if looksLikeJSON(w.Batch) {
		var b models.Batch
		if err := json.Unmarshal(w.Batch, &b); err == nil {
			out.Batch = &b
		}
	}
	return out, nil
}

// CreateLesson creates a lesson and returns the created lesson when the API
// echoes it
func (a *CourseAPI) CreateLesson(ctx context.Context, in NewLesson) (*models.Lesson, error) {
	body, err := a.post(ctx, coursePath(in.CourseID)+"/lessons", in)
	if err != nil {
		return nil, err
	}

	var lesson models.Lesson
	raw := unwrap(body, "lesson")
	if err := json.Unmarshal(raw, &lesson); err != nil || lesson.ID == "" {
		return nil, nil
	}
	return &lesson, nil
}
