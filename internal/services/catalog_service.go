package services

import (
	"context"
	"fmt"

	"github.com/coursemuster/portal/internal/cache"
	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/viewmodel"
	"go.uber.org/zap"
)

// FeaturedLimit is the number of courses shown on the landing page
const FeaturedLimit = 6

// CourseListingAPI is the interface that wraps the course listing endpoints of the Course API
type CourseListingAPI interface {
	// Method ListAllCoursesRaw returns the raw body of the full course listing.
	//
	// "ctx" is the context of the request; cancelling it aborts the call with client.ErrAborted.
	// The body may be a JSON array or an object carrying "items" or "courses".
	ListAllCoursesRaw(ctx context.Context) ([]byte, error)
	// Method SearchCoursesRaw returns the raw body of one catalog search page.
	//
	// "q" holds the search filters; please reference client.SearchQuery for the defaults.
	// Please reference ListAllCoursesRaw method for more information about the context and the body.
	SearchCoursesRaw(ctx context.Context, q client.SearchQuery) ([]byte, error)
}

// ListingCache is the interface that wraps the course listing cache
type ListingCache interface {
	// Method Get returns the cached body under "key" and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Method Set stores "body" under "key".
	Set(ctx context.Context, key string, body []byte)
	// Method Invalidate drops every cached listing.
	Invalidate(ctx context.Context)
}

// CatalogTable is a page of the course table, one row per course batch
type CatalogTable struct {
	viewmodel.Page[viewmodel.CourseRow]
	Options viewmodel.FilterOptions `json:"options"`
}

// BrowsePage is a page of catalog cards from the public search
type BrowsePage struct {
	Items      []viewmodel.CatalogCard `json:"items"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	TotalPages int                     `json:"totalPages"`
}

type catalogService struct {
	api    CourseListingAPI
	cache  ListingCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(api CourseListingAPI, listingCache ListingCache, logger *zap.Logger) *catalogService {
	return &catalogService{
		api:    api,
		cache:  listingCache,
		logger: logger,
	}
}

// cached returns the body under key, fetching and storing it on a miss
func (s *catalogService) cached(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if s.cache != nil {
		if body, ok := s.cache.Get(ctx, key); ok {
			return body, nil
		}
	}

	body, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, body)
	}
	return body, nil
}

func (s *catalogService) allCourses(ctx context.Context) ([]models.Course, error) {
	body, err := s.cached(ctx, cache.ListingKey("all", nil), s.api.ListAllCoursesRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	list, err := client.DecodeCourseList(body)
	if err != nil {
		s.logger.Error("failed to decode course listing", zap.Error(err))
		return nil, err
	}
	return list.Items, nil
}

// Table returns the course table: every course expanded into one row per
// batch, filtered and paginated
func (s *catalogService) Table(ctx context.Context, filter viewmodel.BrowseFilter, page, limit int) (*CatalogTable, error) {
	courses, err := s.allCourses(ctx)
	if err != nil {
		return nil, err
	}

	rows := viewmodel.Expand(courses)
	return &CatalogTable{
		Page:    viewmodel.Paginate(viewmodel.FilterRows(rows, filter), page, limit),
		Options: viewmodel.Options(rows),
	}, nil
}

// Featured returns the first catalog cards for the landing page
func (s *catalogService) Featured(ctx context.Context) ([]viewmodel.CatalogCard, error) {
	courses, err := s.allCourses(ctx)
	if err != nil {
		return nil, err
	}
	if len(courses) > FeaturedLimit {
		courses = courses[:FeaturedLimit]
	}
	return viewmodel.Aggregate(courses), nil
}

// Browse runs a catalog search and returns one card per course
func (s *catalogService) Browse(ctx context.Context, q client.SearchQuery) (*BrowsePage, error) {
	params := q.Params()
	body, err := s.cached(ctx, cache.ListingKey("search", params), func(ctx context.Context) ([]byte, error) {
		return s.api.SearchCoursesRaw(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}

	list, err := client.DecodeCourseList(body)
	if err != nil {
		s.logger.Error("failed to decode course search", zap.Error(err))
		return nil, err
	}

	limit := q.Limit
	if limit < 1 {
		limit = client.DefaultSearchLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	total := list.Total
	if total < len(list.Items) {
		total = len(list.Items)
	}
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return &BrowsePage{
		Items:      viewmodel.Aggregate(list.Items),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Warm refreshes the cached full listing and the first search page
func (s *catalogService) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	body, err := s.api.ListAllCoursesRaw(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm course listing: %w", err)
	}
	s.cache.Set(ctx, cache.ListingKey("all", nil), body)

	first := client.SearchQuery{}
	body, err = s.api.SearchCoursesRaw(ctx, first)
	if err != nil {
		return fmt.Errorf("failed to warm course search: %w", err)
	}
	s.cache.Set(ctx, cache.ListingKey("search", first.Params()), body)
	return nil
}
