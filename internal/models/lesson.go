package models

import (
	"encoding/json"
	"strings"
)

// LessonType represents the kind of content a lesson carries
type LessonType string

const (
	LessonTypeVideo      LessonType = "video"
	LessonTypeQuiz       LessonType = "quiz"
	LessonTypeAssignment LessonType = "assignment"
	LessonTypeArticle    LessonType = "article"
)

// IsValid checks if the lesson type is one of the known types
func (t LessonType) IsValid() bool {
	switch t {
	case LessonTypeVideo, LessonTypeQuiz, LessonTypeAssignment, LessonTypeArticle:
		return true
	}
	return false
}

// ParseLessonType normalizes a raw type string. Missing or unknown types are
// treated as video lessons, which is how the lesson viewer renders them.
func ParseLessonType(raw string) LessonType {
	t := LessonType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return LessonTypeVideo
	}
	return t
}

// Lesson represents a lesson of a course
type Lesson struct {
	ID                     string          `json:"id"`
	CourseID               string          `json:"courseId,omitempty"`
	LessonNumber           int             `json:"lessonNumber"`
	Title                  string          `json:"title"`
	Type                   LessonType      `json:"type"`
	VideoURL               string          `json:"videoUrl,omitempty"`
	DurationMinutes        float64         `json:"durationMinutes,omitempty"`
	QuizPayload            []QuizQuestion  `json:"quizPayload,omitempty"`
	AssignmentInstructions string          `json:"assignmentInstructions,omitempty"`
	AssignmentDueDate      string          `json:"assignmentDueDate,omitempty"`
	ArticleBody            string          `json:"articleBody,omitempty"`
	Resources              json.RawMessage `json:"resources,omitempty"`
	BatchID                string          `json:"batchId,omitempty"`
	BatchName              string          `json:"batchName,omitempty"`
}

type lessonWire struct {
	MongoID                FlexString      `json:"_id"`
	ID                     FlexString      `json:"id"`
	Course                 reference       `json:"course"`
	CourseID               FlexString      `json:"courseId"`
	LessonNumber           FlexFloat       `json:"lessonNumber"`
	Title                  string          `json:"title"`
	Type                   string          `json:"type"`
	VideoURL               string          `json:"videoUrl"`
	DurationMinutes        FlexFloat       `json:"durationMinutes"`
	QuizPayload            json.RawMessage `json:"quizPayload"`
	AssignmentInstructions string          `json:"assignmentInstructions"`
	AssignmentDueDate      FlexString      `json:"assignmentDueDate"`
	ArticleBody            string          `json:"articleBody"`
	Content                string          `json:"content"`
	Resources              json.RawMessage `json:"resources"`
	BatchID                FlexString      `json:"batchId"`
	Batch                  reference       `json:"batch"`
	BatchName              string          `json:"batchName"`
}

// UnmarshalJSON decodes a lesson. The batch reference may arrive as
// "batchId", as a bare "batch" id or as an embedded batch object.
func (l *Lesson) UnmarshalJSON(data []byte) error {
	var w lessonWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*l = Lesson{
		ID:                     firstNonEmpty(w.MongoID.String(), w.ID.String()),
		CourseID:               firstNonEmpty(w.CourseID.String(), w.Course.ID),
		LessonNumber:           int(w.LessonNumber),
		Title:                  w.Title,
		Type:                   ParseLessonType(w.Type),
		VideoURL:               w.VideoURL,
		DurationMinutes:        float64(w.DurationMinutes),
		AssignmentInstructions: w.AssignmentInstructions,
		AssignmentDueDate:      w.AssignmentDueDate.String(),
		ArticleBody:            firstNonEmpty(w.ArticleBody, w.Content),
		BatchID:                firstNonEmpty(w.BatchID.String(), w.Batch.ID),
		BatchName:              firstNonEmpty(w.BatchName, w.Batch.Name),
	}
	if len(w.Resources) > 0 && string(w.Resources) != "null" {
		l.Resources = w.Resources
	}
	if questions := decodeList[QuizQuestion](w.QuizPayload); len(questions) > 0 {
		l.QuizPayload = questions
	}
	return nil
}

// QuestionCount returns the number of quiz questions in the lesson
func (l *Lesson) QuestionCount() int {
	return len(l.QuizPayload)
}

// UnsetCorrectIndex marks a quiz question whose correct option has not been
// chosen yet
const UnsetCorrectIndex = -1

// QuizQuestion is a single quiz question
type QuizQuestion struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Options      []QuizOption `json:"options"`
	CorrectIndex int          `json:"correctIndex"`
}

type quizQuestionWire struct {
	MongoID      FlexString      `json:"_id"`
	ID           FlexString      `json:"id"`
	Question     string          `json:"question"`
	Options      json.RawMessage `json:"options"`
	CorrectIndex OptionalNumber  `json:"correctIndex"`
}

// UnmarshalJSON decodes a quiz question. A missing or non-numeric correct
// index decodes as unset.
func (q *QuizQuestion) UnmarshalJSON(data []byte) error {
	var w quizQuestionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*q = QuizQuestion{
		ID:           firstNonEmpty(w.ID.String(), w.MongoID.String()),
		Question:     w.Question,
		Options:      decodeList[QuizOption](w.Options),
		CorrectIndex: UnsetCorrectIndex,
	}
	if w.CorrectIndex.Valid {
		q.CorrectIndex = w.CorrectIndex.Int()
	}
	return nil
}

// HasValidCorrectIndex reports whether CorrectIndex points at an option
func (q *QuizQuestion) HasValidCorrectIndex() bool {
	return q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

// QuizOption is one answer option of a quiz question
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// UnmarshalJSON accepts an option object or a bare option string
func (o *QuizOption) UnmarshalJSON(data []byte) error {
	*o = QuizOption{}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.Text)
	}

	var w struct {
		MongoID FlexString `json:"_id"`
		ID      FlexString `json:"id"`
		Text    string     `json:"text"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.ID = firstNonEmpty(w.ID.String(), w.MongoID.String())
	o.Text = w.Text
	return nil
}
