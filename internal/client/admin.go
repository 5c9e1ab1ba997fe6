package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/coursemuster/portal/internal/models"
)

// DefaultStudentPageSize is the page size of the admin student directory
const DefaultStudentPageSize = 20

// StudentQuery holds the filters of the admin student directory
type StudentQuery struct {
	Query string
	Role  string
	Sort  string
	Page  int
	Limit int
}

// Params returns the query string parameters
func (q StudentQuery) Params() map[string]string {
	params := map[string]string{}
	if q.Query != "" {
		params["q"] = q.Query
	}
	if q.Role != "" {
		params["role"] = q.Role
	}
	sort := q.Sort
	if sort == "" {
		sort = "createdAt_desc"
	}
	params["sort"] = sort

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultStudentPageSize
	}
	params["page"] = strconv.Itoa(page)
	params["limit"] = strconv.Itoa(limit)
	return params
}

// ListStudents returns one page of the student directory
func (a *CourseAPI) ListStudents(ctx context.Context, q StudentQuery) (*models.StudentList, error) {
	body, err := a.get(ctx, "/api/admin/students", q.Params())
	if err != nil {
		return nil, err
	}

	var list models.StudentList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	return &list, nil
}

// GetStudent returns one student of the directory
func (a *CourseAPI) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	body, err := a.get(ctx, "/api/admin/students/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var s models.Student
	if err := json.Unmarshal(unwrap(body, "student"), &s); err != nil {
		return nil, fmt.Errorf("failed to decode student: %w", err)
	}
	return &s, nil
}
