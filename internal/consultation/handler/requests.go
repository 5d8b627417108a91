package handler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"intake/internal/consultation/models"
	dErrors "intake/pkg/domain-errors"
)

const (
	minProductIDLen  = 3
	maxProductIDLen  = 50
	maxQuestionIDLen = 50
	maxAnswerLen     = 1000
	maxAnswers       = 100
	maxNotesLen      = 2000
)

// SubmitRequest is the body of POST /api/consultations.
type SubmitRequest struct {
	ProductID string          `json:"product_id"`
	Answers   []AnswerRequest `json:"answers"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// Validate implements httputil.Validatable.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.ProductID = strings.TrimSpace(r.ProductID)
	if r.ProductID == "" {
		return dErrors.New(dErrors.CodeValidation, "product_id is required")
	}
	if n := utf8.RuneCountInString(r.ProductID); n < minProductIDLen || n > maxProductIDLen {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("product_id must be between %d and %d characters", minProductIDLen, maxProductIDLen))
	}

	if len(r.Answers) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one answer is required")
	}
	if len(r.Answers) > maxAnswers {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d answers are accepted", maxAnswers))
	}
	for i := range r.Answers {
		a := &r.Answers[i]
		if strings.TrimSpace(a.QuestionID) == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("answers[%d].question_id is required", i))
		}
		if utf8.RuneCountInString(a.QuestionID) > maxQuestionIDLen {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("answers[%d].question_id must be at most %d characters", i, maxQuestionIDLen))
		}
		if strings.TrimSpace(a.Answer) == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("answers[%d].answer is required", i))
		}
		if utf8.RuneCountInString(a.Answer) > maxAnswerLen {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("answers[%d].answer must be at most %d characters", i, maxAnswerLen))
		}
	}
	return nil
}

// DomainAnswers converts the validated answers.
func (r *SubmitRequest) DomainAnswers() []models.Answer {
	out := make([]models.Answer, len(r.Answers))
	for i, a := range r.Answers {
		out[i] = models.Answer{QuestionID: a.QuestionID, Value: a.Answer}
	}
	return out
}

// ReviewRequest is the body of POST /api/consultations/{id}/review.
type ReviewRequest struct {
	Approved *bool  `json:"approved"`
	Notes    string `json:"notes"`
}

func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Approved == nil {
		return dErrors.New(dErrors.CodeValidation, "approved is required")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	if utf8.RuneCountInString(r.Notes) > maxNotesLen {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("notes must be at most %d characters", maxNotesLen))
	}
	return nil
}
