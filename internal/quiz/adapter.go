// Package quiz normalizes quiz grading responses and validates quiz content.
package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnrecognizedShape is returned for grading responses that are not JSON
// objects
var ErrUnrecognizedShape = errors.New("unrecognized quiz result shape")

// Shape identifies a known layout of the grading response
type Shape int

const (
	// ShapeTopLevel carries score, total or detailed at the top level
	ShapeTopLevel Shape = iota + 1
	// ShapeNestedProgress carries the result under progress.quiz
	ShapeNestedProgress
	// ShapeEmpty carries no result at all
	ShapeEmpty
)

// String returns the shape name used in logs
func (s Shape) String() string {
	switch s {
	case ShapeTopLevel:
		return "top-level"
	case ShapeNestedProgress:
		return "nested-progress"
	case ShapeEmpty:
		return "empty"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Result is the normalized quiz grading result
type Result struct {
	Score    *float64          `json:"score"`
	Total    float64           `json:"total"`
	Detailed []json.RawMessage `json:"detailed"`
	Progress json.RawMessage   `json:"progress"`
	Shape    Shape             `json:"-"`
}

// Perfect reports whether every question was answered correctly
func (r Result) Perfect() bool {
	return r.Score != nil && r.Total > 0 && *r.Score == r.Total
}

// HasProgress reports whether the server returned a progress object
func (r Result) HasProgress() bool {
	return len(r.Progress) > 0
}

type fields struct {
	score    *float64
	total    *float64
	detailed []json.RawMessage
	hasList  bool
}

type envelope struct {
	top      fields
	nested   *fields
	progress json.RawMessage
}

// Classify determines the shape of a raw grading response
func Classify(raw []byte) (Shape, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return 0, err
	}
	return env.shape(), nil
}

// Normalize converts a raw grading response into a Result.
// questionCount is the number of questions of the quiz and serves as the
// total when the response carries none.
func Normalize(raw []byte, questionCount int) (Result, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch shape := env.shape(); shape {
	case ShapeTopLevel:
		res = normalizeTopLevel(env, questionCount)
	case ShapeNestedProgress:
		res = normalizeNested(*env.nested, questionCount)
	case ShapeEmpty:
		res = normalizeEmpty(questionCount)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnrecognizedShape, shape)
	}

	res.Shape = env.shape()
	res.Progress = env.progress
	return res, nil
}

func normalizeTopLevel(env envelope, questionCount int) Result {
	res := Result{Detailed: []json.RawMessage{}}

	switch {
	case env.top.score != nil:
		res.Score = env.top.score
	case env.nested != nil:
		res.Score = env.nested.score
	}

	switch {
	case env.top.total != nil:
		res.Total = *env.top.total
	case env.nested != nil && env.nested.total != nil:
		res.Total = *env.nested.total
	default:
		res.Total = float64(questionCount)
	}

	switch {
	case env.top.hasList:
		res.Detailed = env.top.detailed
	case env.nested != nil && env.nested.hasList:
		res.Detailed = env.nested.detailed
	}
	return res
}

func normalizeNested(nested fields, questionCount int) Result {
	res := Result{
		Score:    nested.score,
		Total:    float64(questionCount),
		Detailed: []json.RawMessage{},
	}
	if nested.total != nil {
		res.Total = *nested.total
	}
	if nested.hasList {
		res.Detailed = nested.detailed
	}
	return res
}

func normalizeEmpty(questionCount int) Result {
	return Result{
		Total:    float64(questionCount),
		Detailed: []json.RawMessage{},
	}
}

func (e envelope) shape() Shape {
	if e.top.score != nil || e.top.total != nil || e.top.hasList {
		return ShapeTopLevel
	}
	if e.nested != nil {
		return ShapeNestedProgress
	}
	return ShapeEmpty
}

func parseEnvelope(raw []byte) (envelope, error) {
	var env envelope

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return env, fmt.Errorf("%w: not a JSON object", ErrUnrecognizedShape)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return env, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}
	env.top = parseFields(obj)

	progressObj, ok := objectField(obj, "progress")
	if !ok {
		return env, nil
	}
	env.progress = obj["progress"]

	quizObj, ok := objectField(progressObj, "quiz")
	if !ok {
		return env, nil
	}
	nested := parseFields(quizObj)
	env.nested = &nested
	return env, nil
}

// parseFields reads score, total and detailed. A field that is null or has
// an unexpected type counts as absent.
func parseFields(obj map[string]json.RawMessage) fields {
	var f fields

	f.score = numberField(obj, "score")
	f.total = numberField(obj, "total")

	if raw, ok := obj["detailed"]; ok && !isNull(raw) {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil {
			if list == nil {
				list = []json.RawMessage{}
			}
			f.detailed = list
			f.hasList = true
		}
	}
	return f
}

func numberField(obj map[string]json.RawMessage, name string) *float64 {
	raw, ok := obj[name]
	if !ok || isNull(raw) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func objectField(obj map[string]json.RawMessage, name string) (map[string]json.RawMessage, bool) {
	raw, ok := obj[name]
	if !ok || !isObject(raw) {
		return nil, false
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
