package models

import "encoding/json"

// Enrollment is a student's enrollment record as listed for the student
type Enrollment struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"courseId"`
	CourseTitle string   `json:"courseTitle,omitempty"`
	BatchID     string   `json:"batchId,omitempty"`
	BatchName   string   `json:"batchName,omitempty"`
	UserName    string   `json:"userName,omitempty"`
	UserEmail   string   `json:"userEmail,omitempty"`
	Payment     *Payment `json:"payment,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

type enrollmentWire struct {
	MongoID     FlexString `json:"_id"`
	ID          FlexString `json:"id"`
	CourseID    FlexString `json:"courseId"`
	Course      reference  `json:"course"`
	CourseTitle string     `json:"courseTitle"`
	BatchID     FlexString `json:"batchId"`
	Batch       reference  `json:"batch"`
	BatchName   string     `json:"batchName"`
	User        reference  `json:"user"`
	Payment     *Payment   `json:"payment"`
	CreatedAt   FlexString `json:"createdAt"`
}

// UnmarshalJSON decodes an enrollment record
func (e *Enrollment) UnmarshalJSON(data []byte) error {
	var w enrollmentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*e = Enrollment{
		ID:          firstNonEmpty(w.MongoID.String(), w.ID.String()),
		CourseID:    firstNonEmpty(w.CourseID.String(), w.Course.ID),
		CourseTitle: firstNonEmpty(w.CourseTitle, w.Course.Name),
		BatchID:     firstNonEmpty(w.BatchID.String(), w.Batch.ID),
		BatchName:   firstNonEmpty(w.BatchName, w.Batch.Name),
		UserName:    w.User.Name,
		UserEmail:   w.User.Email,
		Payment:     w.Payment,
		CreatedAt:   w.CreatedAt.String(),
	}
	return nil
}

// DecodeEnrollments decodes a JSON array of enrollments, skipping records
// that cannot be decoded
func DecodeEnrollments(data json.RawMessage) []Enrollment {
	return decodeList[Enrollment](data)
}
