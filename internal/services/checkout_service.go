package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coursemuster/portal/internal/batch"
	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/models"
	"github.com/coursemuster/portal/internal/validation"
	"github.com/coursemuster/portal/internal/viewmodel"
	"go.uber.org/zap"
)

// Payment methods accepted at checkout
const (
	PaymentCard   = "card"
	PaymentBikash = "bikash"
)

const (
	paymentStatusPaid  = "paid"
	openBatchLabel     = "Any / Open"
	paidAtLayout       = "2006-01-02T15:04:05.000Z"
	enrollmentFallback = "Enrollment successful"
)

// EnrollmentAPI is the interface that wraps the enrollment endpoints of the Course API
type EnrollmentAPI interface {
	// Method GetPublicCourse retrieves the course being bought.
	//
	// Returns an error matching client.ErrNotFound if the course does not exist.
	GetPublicCourse(ctx context.Context, id string) (*models.Course, error)
	// Method Enroll enrolls the signed-in student and returns the API's confirmation message.
	//
	// "ctx" carries the student session; cancelling it aborts the call with client.ErrAborted.
	Enroll(ctx context.Context, in client.EnrollRequest) (string, error)
}

// CheckoutPreview is the order summary shown before payment
type CheckoutPreview struct {
	Card      viewmodel.CatalogCard `json:"card"`
	BatchKey  string                `json:"batchKey"`
	BatchName string                `json:"batchName"`
}

// CheckoutRequest is a dummy payment for a course. Batch is the batch key or
// name chosen on the course page; empty means open enrollment.
type CheckoutRequest struct {
	CourseID   string `json:"courseId" validate:"notblank" message:"Missing course id"`
	Batch      string `json:"batch"`
	Method     string `json:"method" validate:"oneof=card bikash" message:"Choose a payment method"`
	CardNumber string `json:"cardNumber"`
	TrxID      string `json:"trxId"`
}

// CheckoutResult is a completed enrollment
type CheckoutResult struct {
	Message  string         `json:"message"`
	CourseID string         `json:"courseId"`
	BatchID  *string        `json:"batchId"`
	Payment  models.Payment `json:"payment"`
}

type checkoutService struct {
	api       EnrollmentAPI
	cache     ListingCache
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service. cache may be nil.
func NewCheckoutService(api EnrollmentAPI, listingCache ListingCache, validator *validation.Validator, logger *zap.Logger) *checkoutService {
	return &checkoutService{
		api:       api,
		cache:     listingCache,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Preview returns the order summary of a course and the chosen batch
func (s *checkoutService) Preview(ctx context.Context, courseID, selection string) (*CheckoutPreview, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, validation.Errorf("Missing course id")
	}

	course, err := s.api.GetPublicCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	preview := &CheckoutPreview{
		Card:      viewmodel.Aggregate([]models.Course{*course})[0],
		BatchName: openBatchLabel,
	}
	if token := strings.TrimSpace(selection); token != "" {
		preview.BatchKey = token
		preview.BatchName = token
		if ref, ok := batch.NewIndex(course).Resolve(token); ok {
			preview.BatchKey = ref.Key
			preview.BatchName = ref.Name
		}
	}
	return preview, nil
}

// payment builds the dummy payment record of a checkout
func (s *checkoutService) payment(req CheckoutRequest) (models.Payment, error) {
	p := models.Payment{
		Method: req.Method,
		Status: paymentStatusPaid,
		PaidAt: s.now().UTC().Format(paidAtLayout),
	}

	switch req.Method {
	case PaymentCard:
		digits := strings.Join(strings.Fields(req.CardNumber), "")
		if digits == "" {
			return p, validation.Errorf("Enter card number (dummy).")
		}
		if len(digits) > 4 {
			digits = digits[len(digits)-4:]
		}
		p.CardLast4 = digits
	case PaymentBikash:
		trx := strings.TrimSpace(req.TrxID)
		if trx == "" {
			return p, validation.Errorf("Enter bKash trx id (dummy).")
		}
		p.TrxID = trx
	}
	return p, nil
}

// Checkout validates the payment and enrolls the signed-in student
func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if strings.TrimSpace(req.CourseID) == "" {
		return nil, validation.Errorf("Missing course id")
	}
	sess, ok := currentSession(ctx)
	if !ok {
		return nil, ErrSignInRequired
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	payment, err := s.payment(req)
	if err != nil {
		return nil, err
	}

	in := client.EnrollRequest{
		CourseID: strings.TrimSpace(req.CourseID),
		BatchID:  optionalText(strings.TrimSpace(req.Batch)),
		User: client.EnrollUser{
			ID:    optionalText(sess.User.ID),
			Name:  optionalText(sess.User.Name),
			Email: optionalText(sess.User.Email),
		},
		Payment: payment,
	}

	message, err := s.api.Enroll(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}
	if message == "" {
		message = enrollmentFallback
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	s.logger.Info("student enrolled",
		zap.String("course_id", in.CourseID),
		zap.String("user_id", sess.User.ID),
		zap.String("method", payment.Method),
	)
	return &CheckoutResult{
		Message:  message,
		CourseID: in.CourseID,
		BatchID:  in.BatchID,
		Payment:  payment,
	}, nil
}
