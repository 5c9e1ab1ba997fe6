package quiz

import (
	"fmt"
	"strings"

	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/validation"
)

// ErrIncompleteAnswers is returned when a submission leaves questions
// unanswered
var ErrIncompleteAnswers = &validation.Error{Message: "Please answer all questions before submitting."}

var invalid = validation.Errorf

// ValidateQuestions checks authored questions and reports the first problem.
// Every question needs text of at least three characters, at least two
// non-empty options and a correct index that points at one of them.
func ValidateQuestions(questions []models.QuizQuestion) error {
	if len(questions) == 0 {
		return invalid("Add at least one quiz question")
	}

	for qi, q := range questions {
		n := qi + 1
		if len(strings.TrimSpace(q.Question)) < 3 {
			return invalid("Question %d must have a question text (min 3 chars)", n)
		}
		if len(q.Options) < 2 {
			return invalid("Question %d must have at least 2 options", n)
		}
		for oi, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				return invalid("Option %d for question %d cannot be empty", oi+1, n)
			}
		}
		if !q.HasValidCorrectIndex() {
			return invalid("Question %d must have exactly one correct option selected", n)
		}
	}
	return nil
}

// Clean trims question and option text for submission
func Clean(questions []models.QuizQuestion) []models.QuizQuestion {
	out := make([]models.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		options := make([]models.QuizOption, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, models.QuizOption{ID: o.ID, Text: strings.TrimSpace(o.Text)})
		}
		out = append(out, models.QuizQuestion{
			ID:           q.ID,
			Question:     strings.TrimSpace(q.Question),
			Options:      options,
			CorrectIndex: q.CorrectIndex,
		})
	}
	return out
}

// RemoveOption removes an option from a question and keeps the correct
// index pointing at the same option. newOptionID names the blank option that
// replaces the last one when the question would be left without options.
func RemoveOption(q models.QuizQuestion, optionID, newOptionID string) models.QuizQuestion {
	removed := -1
	options := make([]models.QuizOption, 0, len(q.Options))
	for i, o := range q.Options {
		if o.ID == optionID && removed < 0 {
			removed = i
			continue
		}
		options = append(options, o)
	}

	correct := q.CorrectIndex
	if removed >= 0 {
		if removed < correct {
			correct = max(0, correct-1)
		}
		if len(options) == 0 {
			options = append(options, models.QuizOption{ID: newOptionID})
			correct = models.UnsetCorrectIndex
		} else if correct >= len(options) {
			correct = len(options) - 1
		}
	}

	q.Options = options
	q.CorrectIndex = correct
	return q
}

// Answer is one graded answer sent to the course API
type Answer struct {
	QuestionID       string  `json:"questionId"`
	SelectedIndex    int     `json:"selectedIndex"`
	SelectedOptionID *string `json:"selectedOptionId"`
}

// BuildAnswers pairs each question with the chosen option index. selected
// maps question position to option index; every question must be answered.
func BuildAnswers(questions []models.QuizQuestion, selected map[int]int) ([]Answer, error) {
	answers := make([]Answer, 0, len(questions))
	for qi, q := range questions {
		idx, ok := selected[qi]
		if !ok {
			return nil, ErrIncompleteAnswers
		}

		answer := Answer{
			QuestionID:    q.ID,
			SelectedIndex: idx,
		}
		if answer.QuestionID == "" {
			answer.QuestionID = fmt.Sprintf("%d", qi)
		}
		if idx >= 0 && idx < len(q.Options) {
			id := q.Options[idx].ID
			answer.SelectedOptionID = &id
		}
		answers = append(answers, answer)
	}
	return answers, nil
}
