package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/validation"
	"github.com/coursemuster/portal/internal/viewmodel"
	"go.uber.org/zap"
)

// CourseAdminAPI is the interface that wraps the course authoring endpoints of the Course API
type CourseAdminAPI interface {
	// Method GetCourse retrieves a course with its batches, lessons and purchases.
	//
	// "ctx" carries the admin session; cancelling it aborts the call with client.ErrAborted.
	// Returns an error matching client.ErrNotFound if the course does not exist.
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	// Method CreateCourse creates a course together with its batches.
	//
	// Please reference GetCourse method for more information about the context.
	CreateCourse(ctx context.Context, in client.NewCourse) (*client.CreatedCourse, error)
	// Method AddBatch appends a batch to a course.
	//
	// The result holds the updated course, only the new batch, or neither.
	AddBatch(ctx context.Context, courseID string, in client.NewBatch) (*client.AddBatchResult, error)
}

// ImageUploader is the interface that wraps thumbnail uploads
type ImageUploader interface {
	// Method Upload stores a base64 image, optionally given as a data URL, and returns its hosted URL.
	Upload(ctx context.Context, image string) (string, error)
}

// BatchInput is a batch of a course being created or extended
type BatchInput struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// AddBatchRequest is the admin request to append a batch
type AddBatchRequest struct {
	Name      string `json:"name" validate:"notblank" message:"Batch name required"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// CreateCourseRequest is the admin request to create a course. Thumbnail is
// a base64 image or data URL uploaded to the image host; ThumbnailURL is an
// already hosted image and wins when both are set.
type CreateCourseRequest struct {
	Title          string       `json:"title" validate:"notblank" message:"Title and description are required."`
	Description    string       `json:"description" validate:"notblank" message:"Title and description are required."`
	Category       string       `json:"category"`
	Price          float64      `json:"price" validate:"gte=0" message:"Price cannot be negative"`
	InstructorName string       `json:"instructorName"`
	Thumbnail      string       `json:"thumbnail"`
	ThumbnailURL   string       `json:"thumbnailUrl"`
	Batches        []BatchInput `json:"batches"`
}

// ManagedCourse is the admin view of one course with a batch selected
type ManagedCourse struct {
	Course    *models.Course        `json:"course"`
	Card      viewmodel.CatalogCard `json:"card"`
	View      viewmodel.BatchView   `json:"view"`
	Conflicts []batch.Collision     `json:"conflicts,omitempty"`
}

type courseManagerService struct {
	api       CourseAdminAPI
	images    ImageUploader
	cache     ListingCache
	validator *validation.Validator
	logger    *zap.Logger
}

// NewCourseManagerService creates a new course manager service. cache may be nil.
func NewCourseManagerService(api CourseAdminAPI, images ImageUploader, listingCache ListingCache, validator *validation.Validator, logger *zap.Logger) *courseManagerService {
	return &courseManagerService{
		api:       api,
		images:    images,
		cache:     listingCache,
		validator: validator,
		logger:    logger,
	}
}

// index builds the batch table of a course and reports key collisions
func (s *courseManagerService) index(course *models.Course) *batch.Index {
	ix := batch.NewIndex(course)
	for _, c := range ix.Collisions() {
		s.logger.Warn("batch key collision",
			zap.String("course_id", course.ID),
			zap.String("key", c.Key),
			zap.Int("position", c.Position),
			zap.Int("owned_by", c.OwnedByPosition),
			zap.String("resolved_key", c.ResolvedKey),
		)
	}
	return ix
}

func (s *courseManagerService) manage(course *models.Course, selection string) *ManagedCourse {
	ix := s.index(course)
	return &ManagedCourse{
		Course:    course,
		Card:      viewmodel.Aggregate([]models.Course{*course})[0],
		View:      viewmodel.BuildBatchView(ix, course, selection, viewmodel.SelectAllByDefault),
		Conflicts: ix.Collisions(),
	}
}

// Course returns a course with the batch named by selection selected; an
// empty selection or "all" shows every batch
func (s *courseManagerService) Course(ctx context.Context, courseID, selection string) (*ManagedCourse, error) {
	course, err := s.api.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return s.manage(course, selection), nil
}

// AddBatch appends a batch and returns the course with the new batch
// selected
func (s *courseManagerService) AddBatch(ctx context.Context, courseID string, req AddBatchRequest) (*ManagedCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	in := client.NewBatch{
		Name:      strings.TrimSpace(req.Name),
		StartDate: optionalDate(req.StartDate),
		EndDate:   optionalDate(req.EndDate),
	}
	res, err := s.api.AddBatch(ctx, courseID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to add batch: %w", err)
	}
	s.invalidate(ctx)

	course := res.Course
	if course == nil {
		// the API returned only the batch, or nothing: take a fresh snapshot
		course, err = s.api.GetCourse(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh course: %w", err)
		}
		if res.Batch != nil && !containsBatch(course.Batches, *res.Batch) {
			course.Batches = append(course.Batches, *res.Batch)
		}
	}

	ix := s.index(course)
	selection := ""
	if ref, ok := ix.Last(); ok {
		selection = ref.Key
	}
	if res.Batch != nil {
		for _, ref := range ix.Refs() {
			if ref.Batch.ID != "" && ref.Batch.ID == res.Batch.ID {
				selection = ref.Key
			}
		}
	}
	return s.manage(course, selection), nil
}

func containsBatch(batches []models.Batch, b models.Batch) bool {
	for _, existing := range batches {
		if b.ID != "" && existing.ID == b.ID {
			return true
		}
		if b.LegacyID != "" && existing.LegacyID == b.LegacyID {
			return true
		}
	}
	return false
}

// CreateCourse uploads the thumbnail, if any, and creates the course
func (s *courseManagerService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*client.CreatedCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	thumbnail := strings.TrimSpace(req.ThumbnailURL)
	if thumbnail == "" && strings.TrimSpace(req.Thumbnail) != "" {
		url, err := s.images.Upload(ctx, strings.TrimSpace(req.Thumbnail))
		if err != nil {
			s.logger.Warn("thumbnail upload failed", zap.Error(err))
			return nil, fmt.Errorf("failed to upload thumbnail: %w", err)
		}
		thumbnail = url
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = models.DefaultCategory
	}

	in := client.NewCourse{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Category:       category,
		Price:          req.Price,
		Thumbnail:      optionalText(thumbnail),
		InstructorName: optionalText(strings.TrimSpace(req.InstructorName)),
		Batches:        make([]client.NewBatch, 0, len(req.Batches)),
	}
	names := make([]string, 0, len(req.Batches))
	for _, b := range req.Batches {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			name = batch.NextName(names)
		}
		names = append(names, name)
		in.Batches = append(in.Batches, client.NewBatch{
			Name:      name,
			StartDate: optionalDate(b.StartDate),
			EndDate:   optionalDate(b.EndDate),
		})
	}

	created, err := s.api.CreateCourse(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	s.invalidate(ctx)

	s.logger.Info("course created", zap.String("course_id", created.ID), zap.Int("batches", len(in.Batches)))
	return created, nil
}

func (s *courseManagerService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// optionalText returns nil for an empty string
func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optionalDate trims a date input and returns nil when it is empty
func optionalDate(s string) *string {
	return optionalText(strings.TrimSpace(s))
}
