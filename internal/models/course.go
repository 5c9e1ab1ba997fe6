package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultCategory is shown for courses without a category
const DefaultCategory = "General"

// Course represents a course as returned by the remote course API
type Course struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Price          float64        `json:"price"`
	InstructorName string         `json:"instructorName"`
	Thumbnail      string         `json:"thumbnail,omitempty"`
	Batches        []Batch        `json:"batches"`
	Lessons        []Lesson       `json:"lessons"`
	Purchases      []Purchase     `json:"purchases"`
	TotalPurchases OptionalNumber `json:"totalPurchases"`
	CreatedAt      string         `json:"createdAt,omitempty"`
	UpdatedAt      string         `json:"updatedAt,omitempty"`
}

type courseWire struct {
	MongoID        FlexString      `json:"_id"`
	ID             FlexString      `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          FlexFloat       `json:"price"`
	InstructorName string          `json:"instructorName"`
	Thumbnail      string          `json:"thumbnail"`
	Batches        json.RawMessage `json:"batches"`
	Lessons        json.RawMessage `json:"lessons"`
	Purchases      json.RawMessage `json:"purchases"`
	TotalPurchases OptionalNumber  `json:"totalPurchases"`
	CreatedAt      FlexString      `json:"createdAt"`
	UpdatedAt      FlexString      `json:"updatedAt"`
}

// UnmarshalJSON decodes a course record, tolerating missing or malformed
// nested collections
func (c *Course) UnmarshalJSON(data []byte) error {
	var w courseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*c = Course{
		ID:             firstNonEmpty(w.MongoID.String(), w.ID.String()),
		Title:          w.Title,
		Description:    w.Description,
		Category:       w.Category,
		Price:          float64(w.Price),
		InstructorName: w.InstructorName,
		Thumbnail:      w.Thumbnail,
		TotalPurchases: w.TotalPurchases,
		CreatedAt:      w.CreatedAt.String(),
		UpdatedAt:      w.UpdatedAt.String(),
	}
	c.Batches = decodeList[Batch](w.Batches)
	c.Lessons = decodeList[Lesson](w.Lessons)
	c.Purchases = decodeList[Purchase](w.Purchases)
	return nil
}

// CategoryOrDefault returns the category or "General"
func (c *Course) CategoryOrDefault() string {
	if strings.TrimSpace(c.Category) == "" {
		return DefaultCategory
	}
	return c.Category
}

// HasThumbnail reports whether the course carries a thumbnail URL
func (c *Course) HasThumbnail() bool {
	return strings.TrimSpace(c.Thumbnail) != ""
}

// Batch represents a scheduled cohort of a course
type Batch struct {
	ID            string            `json:"id,omitempty"`
	LegacyID      string            `json:"legacyId,omitempty"`
	Name          string            `json:"name"`
	StartDate     string            `json:"startDate,omitempty"`
	EndDate       string            `json:"endDate,omitempty"`
	EnrolledCount OptionalNumber    `json:"enrolledCount"`
	Students      []json.RawMessage `json:"students,omitempty"`
}

type batchWire struct {
	MongoID       FlexString      `json:"_id"`
	ID            FlexString      `json:"id"`
	Name          string          `json:"name"`
	StartDate     FlexString      `json:"startDate"`
	EndDate       FlexString      `json:"endDate"`
	EnrolledCount OptionalNumber  `json:"enrolledCount"`
	Students      json.RawMessage `json:"students"`
}

// UnmarshalJSON decodes a batch. "_id" is the batch id, a plain "id" is kept
// as the legacy id.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var w batchWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*b = Batch{
		ID:            w.MongoID.String(),
		LegacyID:      w.ID.String(),
		Name:          w.Name,
		StartDate:     w.StartDate.String(),
		EndDate:       w.EndDate.String(),
		EnrolledCount: w.EnrolledCount,
		Students:      decodeList[json.RawMessage](w.Students),
	}
	return nil
}

// Purchase represents a student's enrollment into a course
type Purchase struct {
	ID           string   `json:"id"`
	StudentID    string   `json:"studentId"`
	StudentName  string   `json:"studentName"`
	StudentEmail string   `json:"studentEmail,omitempty"`
	BatchID      string   `json:"batchId,omitempty"`
	BatchName    string   `json:"batchName,omitempty"`
	Payment      *Payment `json:"payment,omitempty"`
	PurchasedAt  string   `json:"purchasedAt,omitempty"`
}

type purchaseWire struct {
	MongoID      FlexString `json:"_id"`
	ID           FlexString `json:"id"`
	Student      reference  `json:"student"`
	StudentID    FlexString `json:"studentId"`
	User         reference  `json:"user"`
	StudentName  string     `json:"studentName"`
	StudentEmail string     `json:"studentEmail"`
	BatchID      FlexString `json:"batchId"`
	Batch        reference  `json:"batch"`
	BatchName    string     `json:"batchName"`
	BatchLabel   string     `json:"batchLabel"`
	BatchTitle   string     `json:"batchTitle"`
	Payment      *Payment   `json:"payment"`
	PurchasedAt  FlexString `json:"purchasedAt"`
	CreatedAt    FlexString `json:"createdAt"`
}

// UnmarshalJSON decodes a purchase, accepting the several field spellings the
// course API has used for the student and batch references
func (p *Purchase) UnmarshalJSON(data []byte) error {
	var w purchaseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*p = Purchase{
		ID:           firstNonEmpty(w.MongoID.String(), w.ID.String()),
		StudentID:    firstNonEmpty(w.Student.ID, w.StudentID.String(), w.User.ID),
		StudentName:  firstNonEmpty(w.StudentName, w.Student.Name, w.User.Name),
		StudentEmail: firstNonEmpty(w.StudentEmail, w.Student.Email, w.User.Email),
		BatchID:      firstNonEmpty(w.BatchID.String(), w.Batch.ID),
		BatchName:    firstNonEmpty(w.BatchName, w.BatchLabel, w.BatchTitle, w.Batch.Name),
		Payment:      w.Payment,
		PurchasedAt:  firstNonEmpty(w.PurchasedAt.String(), w.CreatedAt.String()),
	}
	return nil
}

// Payment is the payment record attached to an enrollment
type Payment struct {
	Method    string `json:"method"`
	Status    string `json:"status"`
	PaidAt    string `json:"paidAt,omitempty"`
	CardLast4 string `json:"cardLast4,omitempty"`
	TrxID     string `json:"trxId,omitempty"`
}

// CourseList is a page of courses from a listing endpoint
type CourseList struct {
	Items []Course `json:"items"`
	Total int      `json:"total"`
}

// UnmarshalJSON accepts a bare array, {items, total} or {courses, total}
func (l *CourseList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = CourseList{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '[' {
		l.Items = decodeList[Course](data)
		l.Total = len(l.Items)
		return nil
	}

	var w struct {
		Items   json.RawMessage `json:"items"`
		Courses json.RawMessage `json:"courses"`
		Total   OptionalNumber  `json:"total"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	l.Items = decodeList[Course](w.Items)
	if len(l.Items) == 0 {
		l.Items = decodeList[Course](w.Courses)
	}
	l.Total = len(l.Items)
	if w.Total.Valid {
		l.Total = w.Total.Int()
	}
	return nil
}

// decodeList decodes a JSON array element by element, dropping elements that
// fail to decode. Anything other than an array yields an empty slice.
func decodeList[T any](data json.RawMessage) []T {
	out := []T{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return out
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return out
	}
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
