package viewmodel

import (
	"strings"

	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/models"
)

// AllBatches is the selection token for "no batch filter"
const AllBatches = "all"

// LessonCounts holds per-type lesson counts
type LessonCounts struct {
	Lessons     int `json:"lessons"`
	Videos      int `json:"videos"`
	Quizzes     int `json:"quizzes"`
	Assignments int `json:"assignments"`
	Articles    int `json:"articles"`
}

// CountLessons counts lessons by type
func CountLessons(lessons []models.Lesson) LessonCounts {
	counts := LessonCounts{Lessons: len(lessons)}
	for _, l := range lessons {
		switch l.Type {
		case models.LessonTypeVideo:
			counts.Videos++
		case models.LessonTypeQuiz:
			counts.Quizzes++
		case models.LessonTypeAssignment:
			counts.Assignments++
		case models.LessonTypeArticle:
			counts.Articles++
		}
	}
	return counts
}

// BatchOption is one entry of a batch selector
type BatchOption struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Position    int     `json:"position"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	EnrollCount int     `json:"enrollCount"`
}

// BatchOptions lists the batches of an index as selector options
func BatchOptions(ix *batch.Index) []BatchOption {
	refs := ix.Refs()
	opts := make([]BatchOption, 0, len(refs))
	for _, ref := range refs {
		opts = append(opts, BatchOption{
			Key:         ref.Key,
			Name:        ref.Name,
			Position:    ref.Position,
			StartDate:   optionalString(ref.Batch.StartDate),
			EndDate:     optionalString(ref.Batch.EndDate),
			EnrollCount: batchEnrollment(ref.Batch),
		})
	}
	return opts
}

// LabeledLesson is a lesson with its resolved batch label
type LabeledLesson struct {
	models.Lesson
	BatchLabel string `json:"batchLabel"`
}

// LabeledPurchase is a purchase with its resolved batch label
type LabeledPurchase struct {
	models.Purchase
	BatchLabel string `json:"batchLabel"`
}

// BatchView is the batch-scoped part of the course detail and course
// manager pages
type BatchView struct {
	Selected      string            `json:"selected"`
	SelectedName  string            `json:"selectedName"`
	Options       []BatchOption     `json:"options"`
	Lessons       []LabeledLesson   `json:"lessons"`
	Purchases     []LabeledPurchase `json:"purchases"`
	LessonCounts  LessonCounts      `json:"lessonCounts"`
	PurchaseCount int               `json:"purchaseCount"`
	EnrollCount   int               `json:"enrollCount"`
	NextBatchName string            `json:"nextBatchName"`
}

// SelectionMode controls what an empty selection token means
type SelectionMode int

const (
	// SelectAllByDefault shows every batch until one is chosen
	SelectAllByDefault SelectionMode = iota
	// SelectLastByDefault preselects the most recent batch
	SelectLastByDefault
)

// BuildBatchView filters the lessons and purchases of a course by the
// selection token, which may be a batch key or a batch name
func BuildBatchView(ix *batch.Index, course *models.Course, token string, mode SelectionMode) BatchView {
	view := BatchView{
		Options:       BatchOptions(ix),
		NextBatchName: batch.NextName(batch.Names(course.Batches)),
	}

	token = strings.TrimSpace(token)
	var selected *batch.Ref
	switch {
	case strings.EqualFold(token, AllBatches):
		token = ""
	case token == "" && mode == SelectLastByDefault:
		if ref, ok := ix.Last(); ok {
			selected = &ref
			token = ref.Key
		}
	case token != "":
		if ref, ok := ix.Resolve(token); ok {
			selected = &ref
			token = ref.Key
		}
	}

	view.Selected = token
	if selected != nil {
		view.SelectedName = selected.Name
	}

	lessons := ix.FilterLessons(token, course.Lessons)
	view.Lessons = make([]LabeledLesson, 0, len(lessons))
	for _, l := range lessons {
		view.Lessons = append(view.Lessons, LabeledLesson{Lesson: l, BatchLabel: ix.Label(l.BatchID, l.BatchName)})
	}

	purchases := ix.FilterPurchases(token, course.Purchases)
	view.Purchases = make([]LabeledPurchase, 0, len(purchases))
	for _, p := range purchases {
		view.Purchases = append(view.Purchases, LabeledPurchase{Purchase: p, BatchLabel: ix.Label(p.BatchID, p.BatchName)})
	}

	view.LessonCounts = CountLessons(lessons)
	view.PurchaseCount = len(purchases)
	view.EnrollCount = SelectedEnrollCount(course, selected)
	return view
}

// SelectedEnrollCount is the enrollment shown for a selected batch: its
// enrolled count, else the course purchase total, else the number of
// purchases
func SelectedEnrollCount(course *models.Course, selected *batch.Ref) int {
	if selected != nil && selected.Batch.EnrolledCount.Valid {
		return selected.Batch.EnrolledCount.Int()
	}
	return coursePurchaseCount(course)
}
