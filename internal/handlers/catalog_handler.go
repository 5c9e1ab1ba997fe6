package handlers

import (
	"context"
	"net/http"

	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/services"
	"github.com/coursemuster/portal/internal/viewmodel"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// defaultTableLimit is the page size of the course table
const defaultTableLimit = 10

// CatalogService is the interface that wraps methods for the public course catalog.
type CatalogService interface {
	// Method Featured returns one card per course for the home page.
	Featured(ctx context.Context) ([]viewmodel.CatalogCard, error)
	// Method Table returns one page of the course table with one row per batch.
	//
	// "filter" narrows the rows; "page" and "limit" fall back to the first page of the default size.
	Table(ctx context.Context, filter viewmodel.BrowseFilter, page, limit int) (*services.CatalogTable, error)
	// Method Browse returns one page of the catalog search.
	//
	// "q" holds the search filters; please reference client.SearchQuery for the defaults.
	Browse(ctx context.Context, q client.SearchQuery) (*services.BrowsePage, error)
}

// CourseDetailService is the interface that wraps the public course page.
type CourseDetailService interface {
	// Method Course returns a course with a batch selected.
	//
	// "selection" is a batch key or name, "all" for every batch, or empty for the last batch.
	// Returns an error matching client.ErrNotFound if the course does not exist.
	Course(ctx context.Context, courseID, selection string) (*services.CourseDetail, error)
}

// CatalogHandler handles the public catalog HTTP requests
type CatalogHandler struct {
	BaseHandler
	catalog CatalogService
	detail  CourseDetailService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog CatalogService, detail CourseDetailService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: BaseHandler{Logger: logger},
		catalog:     catalog,
		detail:      detail,
	}
}

// RegisterRoutes registers all catalog handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/courses", func(r chi.Router) {
		r.Get("/", h.Browse)
		r.Get("/featured", h.Featured)
		r.Get("/table", h.Table)
		r.Get("/{id}", h.Course)
	})
}

// Featured handles GET /api/v1/courses/featured
// @Summary Featured courses
// @Description One card per course with price and schedule labels
// @Tags catalog
// @Produce json
// @Success 200 {array} viewmodel.CatalogCard
// @Failure 502 {object} map[string]string
// @Router /api/v1/courses/featured [get]
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	cards, err := h.catalog.Featured(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load courses")
		return
	}
	h.RespondJSON(w, http.StatusOK, cards)
}

// Table handles GET /api/v1/courses/table
// @Summary Course table
// @Description One row per course batch, filtered and paginated
// @Tags catalog
// @Produce json
// @Param q query string false "Search in title, instructor and category"
// @Param category query string false "Category"
// @Param instructor query string false "Instructor name"
// @Param price query string false "all, free or paid"
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size, default 10"
// @Success 200 {object} services.CatalogTable
// @Failure 502 {object} map[string]string
// @Router /api/v1/courses/table [get]
func (h *CatalogHandler) Table(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := viewmodel.BrowseFilter{
		Query:      q.Get("q"),
		Category:   q.Get("category"),
		Instructor: q.Get("instructor"),
		Price:      viewmodel.ParsePriceFilter(q.Get("price")),
	}

	limit := queryInt(r, "limit")
	if limit == 0 {
		limit = defaultTableLimit
	}

	table, err := h.catalog.Table(r.Context(), filter, queryInt(r, "page"), limit)
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load courses")
		return
	}
	h.RespondJSON(w, http.StatusOK, table)
}

// Browse handles GET /api/v1/courses
// @Summary Search courses
// @Description Search the catalog through the course API
// @Tags catalog
// @Produce json
// @Param q query string false "Search text"
// @Param category query string false "Category"
// @Param instructor query string false "Instructor name"
// @Param price query string false "all, free or paid"
// @Param sort query string false "Sort order, default newest"
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size"
// @Success 200 {object} services.BrowsePage
// @Failure 502 {object} map[string]string
// @Router /api/v1/courses [get]
func (h *CatalogHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.catalog.Browse(r.Context(), client.SearchQuery{
		Query:      q.Get("q"),
		Category:   q.Get("category"),
		Instructor: q.Get("instructor"),
		Price:      q.Get("price"),
		Sort:       q.Get("sort"),
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
	})
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to search courses")
		return
	}
	h.RespondJSON(w, http.StatusOK, page)
}

// Course handles GET /api/v1/courses/{id}
// @Summary Course page
// @Description A course with its batches, the selected batch's lessons and enrollments
// @Tags catalog
// @Produce json
// @Param id path string true "Course ID"
// @Param batch query string false "Batch key or name, or all; the last batch by default"
// @Success 200 {object} services.CourseDetail
// @Failure 404 {object} map[string]string
// @Router /api/v1/courses/{id} [get]
func (h *CatalogHandler) Course(w http.ResponseWriter, r *http.Request) {
	detail, err := h.detail.Course(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("batch"))
	if err != nil {
		h.RespondServiceError(w, r, err, "Failed to load course")
		return
	}
	h.RespondJSON(w, http.StatusOK, detail)
}
