package viewmodel

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/coursemuster/portal/internal/models"
)

// CatalogCard is the single catalog entry of a course
type CatalogCard struct {
	CourseID       string  `json:"courseId"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	InstructorName string  `json:"instructorName"`
	Price          float64 `json:"price"`
	PriceLabel     string  `json:"priceLabel"`
	Thumbnail      *string `json:"thumbnail"`
	HasThumbnail   bool    `json:"hasThumbnail"`
	BatchCount     int     `json:"batchCount"`
	NextStartDate  *string `json:"nextStartDate"`
	EnrollCount    int     `json:"enrollCount"`
	ScheduleLabel  string  `json:"scheduleLabel"`
}

// Aggregate produces one card per course
func Aggregate(courses []models.Course) []CatalogCard {
	cards := make([]CatalogCard, 0, len(courses))
	for i := range courses {
		cards = append(cards, aggregateCourse(&courses[i]))
	}
	return cards
}

func aggregateCourse(c *models.Course) CatalogCard {
	card := CatalogCard{
		CourseID:       c.ID,
		Title:          c.Title,
		Description:    c.Description,
		Category:       c.CategoryOrDefault(),
		InstructorName: c.InstructorName,
		Price:          c.Price,
		PriceLabel:     PriceLabel(c.Price),
		HasThumbnail:   c.HasThumbnail(),
		BatchCount:     len(c.Batches),
		EnrollCount:    EnrollCount(c),
	}
	if card.HasThumbnail {
		card.Thumbnail = stringPtr(c.Thumbnail)
	}
	if next, ok := EarliestStartDate(c.Batches); ok {
		card.NextStartDate = &next
	}
	card.ScheduleLabel = ScheduleLabel(card.NextStartDate, card.BatchCount)
	return card
}

// EarliestStartDate returns the earliest batch start date. Dates are sorted
// ascending with ties kept in input order; dates that cannot be parsed sort
// after all parseable ones.
func EarliestStartDate(batches []models.Batch) (string, bool) {
	type dated struct {
		raw    string
		parsed bool
		unix   int64
	}

	dates := make([]dated, 0, len(batches))
	for _, b := range batches {
		if b.StartDate == "" {
			continue
		}
		d := dated{raw: b.StartDate}
		if t, ok := models.ParseDate(b.StartDate); ok {
			d.parsed = true
			d.unix = t.UnixNano()
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return "", false
	}

	sort.SliceStable(dates, func(i, j int) bool {
		if dates[i].parsed != dates[j].parsed {
			return dates[i].parsed
		}
		return dates[i].unix < dates[j].unix
	})
	return dates[0].raw, true
}

// EnrollCount sums batch enrollment, taking each batch's enrolled count or
// else its student list length. When the sum is zero it falls back to the
// course purchase total and then to the number of purchases.
func EnrollCount(c *models.Course) int {
	sum := 0
	for _, b := range c.Batches {
		sum += batchEnrollment(b)
	}
	if sum > 0 {
		return sum
	}
	return coursePurchaseCount(c)
}

func batchEnrollment(b models.Batch) int {
	if b.EnrolledCount.Valid {
		return b.EnrolledCount.Int()
	}
	return len(b.Students)
}

func coursePurchaseCount(c *models.Course) int {
	if c.TotalPurchases.Valid {
		return c.TotalPurchases.Int()
	}
	return len(c.Purchases)
}

// PriceLabel renders a price as "Free" or "<price> BDT"
func PriceLabel(price float64) string {
	if price <= 0 {
		return "Free"
	}
	return strconv.FormatFloat(price, 'f', -1, 64) + " BDT"
}

// ScheduleLabel renders the schedule line of a catalog card
func ScheduleLabel(nextStartDate *string, batchCount int) string {
	switch {
	case nextStartDate != nil:
		return "Next: " + FormatDate(*nextStartDate)
	case batchCount == 1:
		return "1 batch"
	case batchCount > 1:
		return fmt.Sprintf("%d batches", batchCount)
	default:
		return "Open enrollment"
	}
}

// FormatDate renders a date as "Jan 2, 2006", leaving unparseable input as is
func FormatDate(raw string) string {
	t, ok := models.ParseDate(raw)
	if !ok {
		return raw
	}
	return t.Format("Jan 2, 2006")
}
