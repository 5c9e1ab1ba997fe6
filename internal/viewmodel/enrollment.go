package viewmodel

import (
	"strings"

	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/models"
)

// EnrollmentBatchStatus describes how an enrollment's batch resolved
type EnrollmentBatchStatus string

const (
	EnrollmentBatchOpen     EnrollmentBatchStatus = "open"
	EnrollmentBatchResolved EnrollmentBatchStatus = "resolved"
	EnrollmentBatchNotFound EnrollmentBatchStatus = "not_found"
)

const (
	openBatchMessage     = "Open / Any batch"
	batchNotFoundMessage = "Enrolled batch not found"
)

// EnrollmentBatch is the resolved batch of a student enrollment
type EnrollmentBatch struct {
	Status    EnrollmentBatchStatus `json:"status"`
	Key       string                `json:"key,omitempty"`
	Name      string                `json:"name,omitempty"`
	StartDate *string               `json:"startDate,omitempty"`
	EndDate   *string               `json:"endDate,omitempty"`
	Message   string                `json:"message"`
}

// ResolveEnrollmentBatch finds the batch an enrollment belongs to, matching
// its batch reference against resolved keys and then names
func ResolveEnrollmentBatch(ix *batch.Index, e models.Enrollment) EnrollmentBatch {
	id := strings.TrimSpace(e.BatchID)
	name := strings.TrimSpace(e.BatchName)
	if id == "" && name == "" {
		return EnrollmentBatch{Status: EnrollmentBatchOpen, Message: openBatchMessage}
	}

	for _, token := range []string{id, name} {
		if token == "" {
			continue
		}
		if ref, ok := ix.Resolve(token); ok {
			return EnrollmentBatch{
				Status:    EnrollmentBatchResolved,
				Key:       ref.Key,
				Name:      ref.Name,
				StartDate: optionalString(ref.Batch.StartDate),
				EndDate:   optionalString(ref.Batch.EndDate),
				Message:   ref.Name,
			}
		}
	}

	return EnrollmentBatch{
		Status:  EnrollmentBatchNotFound,
		Key:     id,
		Name:    ix.Label(id, name),
		Message: batchNotFoundMessage,
	}
}
