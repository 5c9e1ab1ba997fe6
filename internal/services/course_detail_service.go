package services

import (
	"context"
	"fmt"

	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/viewmodel"
	"go.uber.org/zap"
)

// PublicCourseAPI is the interface that wraps the public course endpoint of the Course API
type PublicCourseAPI interface {
	// Method GetPublicCourse retrieves a course as shown to visitors.
	//
	// "ctx" may carry a session; the token is forwarded when present.
	// Returns an error matching client.ErrNotFound if the course does not exist.
	GetPublicCourse(ctx context.Context, id string) (*models.Course, error)
}

// CourseDetail is the public course page with a batch selected
type CourseDetail struct {
	Course *models.Course        `json:"course"`
	Card   viewmodel.CatalogCard `json:"card"`
	View   viewmodel.BatchView   `json:"view"`
}

type courseDetailService struct {
	api    PublicCourseAPI
	logger *zap.Logger
}

// NewCourseDetailService creates a new course detail service
func NewCourseDetailService(api PublicCourseAPI, logger *zap.Logger) *courseDetailService {
	return &courseDetailService{
		api:    api,
		logger: logger,
	}
}

// Course returns the public page of a course. Like the course manager, an
// empty selection picks the last batch and "all" shows every batch.
func (s *courseDetailService) Course(ctx context.Context, courseID, selection string) (*CourseDetail, error) {
	course, err := s.api.GetPublicCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	ix := batch.NewIndex(course)
	if n := len(ix.Collisions()); n > 0 {
		s.logger.Debug("course has batch key collisions", zap.String("course_id", course.ID), zap.Int("count", n))
	}

	return &CourseDetail{
		Course: course,
		Card:   viewmodel.Aggregate([]models.Course{*course})[0],
		View:   viewmodel.BuildBatchView(ix, course, selection, viewmodel.SelectLastByDefault),
	}, nil
}
