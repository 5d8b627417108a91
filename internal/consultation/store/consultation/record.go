package consultation

import (
	"time"

	"intake/internal/consultation/models"
)

// answerRecord and reviewRecord are the JSON shapes persisted by the
// PostgreSQL (JSONB columns) and Redis backends.
type answerRecord struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"answer"`
}

type reviewRecord struct {
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Approved   bool      `json:"approved"`
	Notes      string    `json:"notes,omitempty"`
}

type consultationRecord struct {
	ID                string         `json:"id"`
	ProductID         string         `json:"product_id"`
	Answers           []answerRecord `json:"answers"`
	SubmittedAt       time.Time      `json:"submitted_at"`
	Eligible          bool           `json:"eligible"`
	EligibilityReason string         `json:"eligibility_reason"`
	Status            string         `json:"status"`
	DoctorReview      *reviewRecord  `json:"doctor_review,omitempty"`
}

func answersToRecords(answers []models.Answer) []answerRecord {
	out := make([]answerRecord, len(answers))
	for i, a := range answers {
		out[i] = answerRecord{QuestionID: a.QuestionID, Value: a.Value}
	}
	return out
}

func answersFromRecords(records []answerRecord) []models.Answer {
	out := make([]models.Answer, len(records))
	for i, r := range records {
		out[i] = models.Answer{QuestionID: r.QuestionID, Value: r.Value}
	}
	return out
}

func reviewToRecord(r *models.DoctorReview) *reviewRecord {
	if r == nil {
		return nil
	}
	return &reviewRecord{ReviewedBy: r.ReviewedBy, ReviewedAt: r.ReviewedAt, Approved: r.Approved, Notes: r.Notes}
}

func reviewFromRecord(r *reviewRecord) *models.DoctorReview {
	if r == nil {
		return nil
	}
	return &models.DoctorReview{ReviewedBy: r.ReviewedBy, ReviewedAt: r.ReviewedAt, Approved: r.Approved, Notes: r.Notes}
}

func toRecord(c models.Consultation) consultationRecord {
	return consultationRecord{
		ID:                c.ID,
		ProductID:         c.ProductID,
		Answers:           answersToRecords(c.Answers),
		SubmittedAt:       c.SubmittedAt,
		Eligible:          c.Eligibility.Eligible,
		EligibilityReason: c.Eligibility.Reason,
		Status:            string(c.Status),
		DoctorReview:      reviewToRecord(c.DoctorReview),
	}
}

func fromRecord(r consultationRecord) models.Consultation {
	return models.Consultation{
		ID:           r.ID,
		ProductID:    r.ProductID,
		Answers:      answersFromRecords(r.Answers),
		SubmittedAt:  r.SubmittedAt,
		Eligibility:  models.EligibilityResult{Eligible: r.Eligible, Reason: r.EligibilityReason},
		Status:       models.Status(r.Status),
		DoctorReview: reviewFromRecord(r.DoctorReview),
	}
}
