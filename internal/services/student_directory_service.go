package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"go.uber.org/zap"
)

var studentSorts = map[string]bool{
	"createdAt_desc": true,
	"createdAt_asc":  true,
	"name_asc":       true,
	"name_desc":      true,
}

// StudentDirectoryAPI is the interface that wraps the admin student endpoints of the Course API
type StudentDirectoryAPI interface {
	// Method ListStudents returns one page of the student directory.
	//
	// "ctx" carries the admin session; cancelling it aborts the call with client.ErrAborted.
	// "q" holds the filters; please reference client.StudentQuery for the defaults.
	ListStudents(ctx context.Context, q client.StudentQuery) (*models.StudentList, error)
	// Method GetStudent returns one student.
	//
	// Returns an error matching client.ErrNotFound if the student does not exist.
	GetStudent(ctx context.Context, id string) (*models.Student, error)
}

// StudentPage is one page of the admin student directory
type StudentPage struct {
	Items      []models.Student `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

type studentDirectoryService struct {
	api    StudentDirectoryAPI
	logger *zap.Logger
}

// NewStudentDirectoryService creates a new student directory service
func NewStudentDirectoryService(api StudentDirectoryAPI, logger *zap.Logger) *studentDirectoryService {
	return &studentDirectoryService{
		api:    api,
		logger: logger,
	}
}

// List returns one page of students. Unknown sort orders fall back to the
// newest accounts first.
func (s *studentDirectoryService) List(ctx context.Context, q client.StudentQuery) (*StudentPage, error) {
	q.Query = strings.TrimSpace(q.Query)
	if !studentSorts[q.Sort] {
		q.Sort = ""
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = client.DefaultStudentPageSize
	}

	list, err := s.api.ListStudents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	page := &StudentPage{
		Items: list.Items,
		Total: list.Total,
		Page:  q.Page,
		Limit: q.Limit,
	}
	if page.Total > 0 {
		page.TotalPages = (page.Total + q.Limit - 1) / q.Limit
	}
	return page, nil
}

// Student returns one student
func (s *studentDirectoryService) Student(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.api.GetStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}
