package models

import "encoding/json"

// CourseProgress is one course row of the student's aggregate progress
type CourseProgress struct {
	CourseID         string  `json:"courseId"`
	Title            string  `json:"title"`
	Thumbnail        string  `json:"thumbnail,omitempty"`
	BatchName        string  `json:"batchName"`
	PurchasedAt      string  `json:"purchasedAt,omitempty"`
	TotalLessons     int     `json:"totalLessons"`
	CompletedLessons int     `json:"completedLessons"`
	RemainingLessons int     `json:"remainingLessons"`
	Percent          int     `json:"percent"`
	AvgQuizScore     float64 `json:"avgQuizScore,omitempty"`
}

type courseProgressWire struct {
	CourseID     FlexString `json:"courseId"`
	Title        string     `json:"title"`
	Thumbnail    string     `json:"thumbnail"`
	BatchName    string     `json:"batchName"`
	PurchasedAt  FlexString `json:"purchasedAt"`
	LessonCounts struct {
		Total FlexFloat `json:"total"`
	} `json:"lessonCounts"`
	Progress struct {
		Completed FlexFloat `json:"completed"`
		Remaining FlexFloat `json:"remaining"`
	} `json:"progress"`
}

// UnmarshalJSON flattens the nested counters of a progress row
func (c *CourseProgress) UnmarshalJSON(data []byte) error {
	var w courseProgressWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*c = CourseProgress{
		CourseID:         w.CourseID.String(),
		Title:            w.Title,
		Thumbnail:        w.Thumbnail,
		BatchName:        w.BatchName,
		PurchasedAt:      w.PurchasedAt.String(),
		TotalLessons:     int(w.LessonCounts.Total),
		CompletedLessons: int(w.Progress.Completed),
		RemainingLessons: int(w.Progress.Remaining),
	}
	return nil
}

// OverallProgress holds the student's totals across all courses
type OverallProgress struct {
	TotalLessons         int             `json:"totalLessons"`
	LessonsCompleted     int             `json:"lessonsCompleted"`
	LessonsRemaining     int             `json:"lessonsRemaining"`
	QuizzesTaken         int             `json:"quizzesTaken"`
	AssignmentsSubmitted int             `json:"assignmentsSubmitted"`
	AvgQuizScore         float64         `json:"avgQuizScore"`
	QuizBuckets          json.RawMessage `json:"quizBuckets,omitempty"`
}

type overallProgressWire struct {
	TotalLessons         FlexFloat       `json:"totalLessons"`
	LessonsCompleted     FlexFloat       `json:"lessonsCompleted"`
	LessonsRemaining     FlexFloat       `json:"lessonsRemaining"`
	QuizzesTaken         FlexFloat       `json:"quizzesTaken"`
	AssignmentsSubmitted FlexFloat       `json:"assignmentsSubmitted"`
	AvgQuizScore         FlexFloat       `json:"avgQuizScore"`
	QuizBuckets          json.RawMessage `json:"quizBuckets"`
}

// UnmarshalJSON decodes overall counters, coercing numeric strings
func (o *OverallProgress) UnmarshalJSON(data []byte) error {
	var w overallProgressWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*o = OverallProgress{
		TotalLessons:         int(w.TotalLessons),
		LessonsCompleted:     int(w.LessonsCompleted),
		LessonsRemaining:     int(w.LessonsRemaining),
		QuizzesTaken:         int(w.QuizzesTaken),
		AssignmentsSubmitted: int(w.AssignmentsSubmitted),
		AvgQuizScore:         float64(w.AvgQuizScore),
	}
	if len(w.QuizBuckets) > 0 && string(w.QuizBuckets) != "null" {
		o.QuizBuckets = w.QuizBuckets
	}
	return nil
}

// ProgressSummary is the student's aggregate progress
type ProgressSummary struct {
	Courses []CourseProgress `json:"courses"`
	Overall OverallProgress  `json:"overall"`
}

// UnmarshalJSON decodes the summary, dropping course rows that fail to decode
func (p *ProgressSummary) UnmarshalJSON(data []byte) error {
	var w struct {
		Courses json.RawMessage `json:"courses"`
		Overall OverallProgress `json:"overall"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Courses = decodeList[CourseProgress](w.Courses)
	p.Overall = w.Overall
	return nil
}
