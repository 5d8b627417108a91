package handler

import (
	"time"

	"intake/internal/consultation/models"
	"intake/internal/consultation/service"
	"intake/internal/workflow"
)

// QuestionsResponse is the body of GET /api/consultations/questions.
type QuestionsResponse struct {
	ProductID string             `json:"product_id"`
	Questions []QuestionResponse `json:"questions"`
}

type QuestionResponse struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Type      string   `json:"type"`
	Required  bool     `json:"required"`
	SubPoints []string `json:"sub_points,omitempty"`
}

// ConsultationResponse describes a stored consultation.
type ConsultationResponse struct {
	ConsultationID     string                `json:"consultation_id"`
	ProductID          string                `json:"product_id"`
	Eligible           bool                  `json:"eligible"`
	Message            string                `json:"message"`
	SubmittedAt        time.Time             `json:"submitted_at"`
	Status             string                `json:"status"`
	DoctorReview       *DoctorReviewResponse `json:"doctor_review,omitempty"`
	Workflow           string                `json:"workflow,omitempty"`
	ReviewNotification string                `json:"review_notification,omitempty"`
}

type DoctorReviewResponse struct {
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Approved   bool      `json:"approved"`
	Notes      string    `json:"notes,omitempty"`
}

func fromQuestions(productID string, questions []models.Question) *QuestionsResponse {
	out := &QuestionsResponse{ProductID: productID, Questions: make([]QuestionResponse, len(questions))}
	for i, q := range questions {
		out.Questions[i] = QuestionResponse{
			ID:        q.ID,
			Text:      q.Text,
			Type:      string(q.Type),
			Required:  q.Required,
			SubPoints: q.SubPoints,
		}
	}
	return out
}

func fromConsultation(c models.Consultation) *ConsultationResponse {
	resp := &ConsultationResponse{
		ConsultationID: c.ID,
		ProductID:      c.ProductID,
		Eligible:       c.Eligibility.Eligible,
		Message:        c.Eligibility.Reason,
		SubmittedAt:    c.SubmittedAt,
		Status:         string(c.Status),
	}
	if r := c.DoctorReview; r != nil {
		resp.DoctorReview = &DoctorReviewResponse{
			ReviewedBy: r.ReviewedBy,
			ReviewedAt: r.ReviewedAt,
			Approved:   r.Approved,
			Notes:      r.Notes,
		}
	}
	return resp
}

// fromSubmitResult adds routing details; dispatch "none" is omitted.
func fromSubmitResult(result *service.SubmitResult) *ConsultationResponse {
	resp := fromConsultation(result.Consultation)
	resp.Workflow = string(result.Workflow)
	if result.Dispatch != workflow.DispatchNone {
		resp.ReviewNotification = string(result.Dispatch)
	}
	return resp
}
