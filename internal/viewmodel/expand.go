// Package viewmodel turns course snapshots into the rows and cards the
// portal pages display.
package viewmodel

import (
	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/models"
)

// CourseRow is one (course, batch) row of the browse and manage grids.
// Batch fields are nil for a course without batches.
type CourseRow struct {
	CourseID       string  `json:"courseId"`
	Title          string  `json:"title"`
	Category       string  `json:"category"`
	InstructorName string  `json:"instructorName"`
	Price          float64 `json:"price"`
	PriceLabel     string  `json:"priceLabel"`
	Thumbnail      *string `json:"thumbnail"`
	HasThumbnail   bool    `json:"hasThumbnail"`
	BatchID        *string `json:"batchId"`
	BatchName      *string `json:"batchName"`
	BatchStartDate *string `json:"batchStartDate"`
	BatchEndDate   *string `json:"batchEndDate"`
}

// Expand produces one row per (course, batch) pair, or one row per course
// with empty batch fields when the course has no batches
func Expand(courses []models.Course) []CourseRow {
	rows := make([]CourseRow, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		base := CourseRow{
			CourseID:       c.ID,
			Title:          c.Title,
			Category:       c.CategoryOrDefault(),
			InstructorName: c.InstructorName,
			Price:          c.Price,
			PriceLabel:     PriceLabel(c.Price),
			HasThumbnail:   c.HasThumbnail(),
		}
		if base.HasThumbnail {
			base.Thumbnail = stringPtr(c.Thumbnail)
		}

		if len(c.Batches) == 0 {
			rows = append(rows, base)
			continue
		}

		for _, ref := range batch.NewIndex(c).Refs() {
			row := base
			row.BatchID = stringPtr(ref.Key)
			row.BatchName = stringPtr(ref.Name)
			row.BatchStartDate = optionalString(ref.Batch.StartDate)
			row.BatchEndDate = optionalString(ref.Batch.EndDate)
			rows = append(rows, row)
		}
	}
	return rows
}

func stringPtr(s string) *string {
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
