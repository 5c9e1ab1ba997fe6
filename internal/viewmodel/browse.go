package viewmodel

import (
	"strings"
)

// PriceFilter selects courses by price
type PriceFilter string

const (
	PriceAll  PriceFilter = "all"
	PriceFree PriceFilter = "free"
	PricePaid PriceFilter = "paid"
)

// ParsePriceFilter normalizes a raw price filter, defaulting to all
func ParsePriceFilter(raw string) PriceFilter {
	switch PriceFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case PriceFree:
		return PriceFree
	case PricePaid:
		return PricePaid
	default:
		return PriceAll
	}
}

// BrowseFilter holds the filters of the browse grid
type BrowseFilter struct {
	Query      string
	Category   string
	Instructor string
	Price      PriceFilter
}

// FilterRows applies the browse filters to expanded rows
func FilterRows(rows []CourseRow, f BrowseFilter) []CourseRow {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]CourseRow, 0, len(rows))
	for _, row := range rows {
		if query != "" &&
			!strings.Contains(strings.ToLower(row.Title), query) &&
			!strings.Contains(strings.ToLower(row.Category), query) {
			continue
		}
		if f.Category != "" && row.Category != f.Category {
			continue
		}
		if f.Instructor != "" && row.InstructorName != f.Instructor {
			continue
		}
		switch f.Price {
		case PriceFree:
			if row.Price > 0 {
				continue
			}
		case PricePaid:
			if row.Price <= 0 {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

// FilterOptions lists the distinct values offered by the browse filters
type FilterOptions struct {
	Categories  []string `json:"categories"`
	Instructors []string `json:"instructors"`
}

// Options collects distinct categories and instructors in first-seen order
func Options(rows []CourseRow) FilterOptions {
	opts := FilterOptions{Categories: []string{}, Instructors: []string{}}
	seenCategory := make(map[string]bool)
	seenInstructor := make(map[string]bool)
	for _, row := range rows {
		if row.Category != "" && !seenCategory[row.Category] {
			seenCategory[row.Category] = true
			opts.Categories = append(opts.Categories, row.Category)
		}
		if row.InstructorName != "" && !seenInstructor[row.InstructorName] {
			seenInstructor[row.InstructorName] = true
			opts.Instructors = append(opts.Instructors, row.InstructorName)
		}
	}
	return opts
}

// Page is one page of a client-side paginated list
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Paginate slices items into the requested page. Out of range pages are
// clamped to the last page.
func Paginate[T any](items []T, page, limit int) Page[T] {
	if limit < 1 {
		limit = 1
	}
	total := len(items)
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	pageItems := make([]T, end-start)
	copy(pageItems, items[start:end])
	return Page[T]{
		Items:      pageItems,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
