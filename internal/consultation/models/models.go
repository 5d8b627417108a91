// Package models holds the consultation intake domain types: the product
// questionnaire, submitted answers, the provisional eligibility verdict and
// the consultation aggregate with its review lifecycle.
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// QuestionType is the answer format a question expects.
type QuestionType string

const (
	QuestionTypeYesNo QuestionType = "YES_NO"
)

// Question is one item of a product questionnaire.
type Question struct {
	ID       string
	Text     string
	Type     QuestionType
	Required bool
	// DisqualifyingAnswer makes the consultation ineligible when matched
	// case-insensitively. Empty means no answer disqualifies.
	DisqualifyingAnswer string
	SubPoints           []string
}

// NewQuestion builds a question, copying sub-points.
func NewQuestion(id, text string, qType QuestionType, required bool, disqualifying string, subPoints ...string) Question {
	return Question{
		ID:                  id,
		Text:                text,
		Type:                qType,
		Required:            required,
		DisqualifyingAnswer: disqualifying,
		SubPoints:           slices.Clone(subPoints),
	}
}

// HasDisqualifyingAnswer reports whether any answer disqualifies.
func (q Question) HasDisqualifyingAnswer() bool {
	return q.DisqualifyingAnswer != ""
}

// Answer is the user's value for one question.
type Answer struct {
	QuestionID string
	Value      string
}

// EligibleMessage is the reason carried by every positive verdict.
const EligibleMessage = "Your consultation has been submitted for review."

// EligibilityResult is the provisional verdict for a submission.
type EligibilityResult struct {
	Eligible bool
	Reason   string
}

// Eligible returns the canonical positive verdict.
func Eligible() EligibilityResult {
	return EligibilityResult{Eligible: true, Reason: EligibleMessage}
}

// Ineligible returns a negative verdict with the given reason.
func Ineligible(reason string) EligibilityResult {
	return EligibilityResult{Eligible: false, Reason: reason}
}

// Status is the consultation review state.
type Status string

const (
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// DoctorReview is a clinician's decision on a consultation.
type DoctorReview struct {
	ReviewedBy string
	ReviewedAt time.Time
	Approved   bool
	Notes      string
}

// Approve records a clinician approval.
func Approve(reviewer, notes string, at time.Time) DoctorReview {
	return DoctorReview{ReviewedBy: reviewer, ReviewedAt: at, Approved: true, Notes: notes}
}

// Reject records a clinician rejection.
func Reject(reviewer, reason string, at time.Time) DoctorReview {
	return DoctorReview{ReviewedBy: reviewer, ReviewedAt: at, Approved: false, Notes: reason}
}

// Consultation is one submitted questionnaire together with its provisional
// verdict and review state. Values are treated as immutable; transitions
// return a new value.
type Consultation struct {
	ID           string
	ProductID    string
	Answers      []Answer
	SubmittedAt  time.Time
	Eligibility  EligibilityResult
	Status       Status
	DoctorReview *DoctorReview
}

// NewConsultation starts a consultation in PENDING_REVIEW with a fresh id,
// whatever the verdict. Answers are copied.
func NewConsultation(productID string, answers []Answer, result EligibilityResult, submittedAt time.Time) Consultation {
	return Consultation{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Answers:     slices.Clone(answers),
		SubmittedAt: submittedAt,
		Eligibility: result,
		Status:      StatusPendingReview,
	}
}

// WithDoctorReview returns a copy carrying the review, APPROVED or REJECTED
// according to review.Approved. The receiver is unchanged.
func (c Consultation) WithDoctorReview(review DoctorReview) Consultation {
	next := c
	next.Answers = slices.Clone(c.Answers)
	r := review
	next.DoctorReview = &r
	if review.Approved {
		next.Status = StatusApproved
	} else {
		next.Status = StatusRejected
	}
	return next
}

// Equal compares consultations by identifier only.
func (c Consultation) Equal(other Consultation) bool {
	return c.ID == other.ID
}

// IsReviewed reports whether a clinician has decided the consultation.
func (c Consultation) IsReviewed() bool {
	return c.Status != StatusPendingReview
}

// SubmittedEvent is published when an eligible consultation needs
// asynchronous clinical review.
type SubmittedEvent struct {
	ConsultationID      string `json:"consultation_id"`
	ProductID           string `json:"product_id"`
	PreliminaryEligible bool   `json:"preliminary_eligible"`
}

// SubmittedEventFrom builds the review event for a consultation.
func SubmittedEventFrom(c Consultation) SubmittedEvent {
	return SubmittedEvent{
		ConsultationID:      c.ID,
		ProductID:           c.ProductID,
		PreliminaryEligible: c.Eligibility.Eligible,
	}
}
