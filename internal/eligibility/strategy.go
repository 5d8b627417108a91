// Package eligibility decides whether a questionnaire submission is
// provisionally eligible for a product. Each product supplies a Strategy;
// the Registry resolves strategies by product id and the Service runs them.
package eligibility

import (
	"fmt"
	"strings"

	"intake/internal/consultation/models"
)

// Strategy evaluates answers for a single product.
type Strategy interface {
	ProductID() string
	Evaluate(questions []models.Question, answers []models.Answer) models.EligibilityResult
}

// requiredMessage is the reason given for an unanswered required question.
const requiredMessage = "Required question '%s' was not answered."

// evaluate walks questions in order and stops at the first failing rule.
// This is pure domain logic: no I/O, no side effects.
//
// Rule priority per question (fail-fast):
//  1. Required and missing or blank answer
//  2. Answer equal to the disqualifying answer, ignoring case
//
// Answers for unknown question ids are ignored. When a question id is
// answered twice the later answer wins.
func evaluate(questions []models.Question, answers []models.Answer, ineligibleReason string) models.EligibilityResult {
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Value
	}

	for _, q := range questions {
		value, answered := byQuestion[q.ID]
		blank := strings.TrimSpace(value) == ""

		// Rule 1: required questions must carry a non-blank answer
		if q.Required && (!answered || blank) {
			return models.Ineligible(fmt.Sprintf(requiredMessage, q.ID))
		}

		// Rule 2: disqualifying answer
		if answered && q.HasDisqualifyingAnswer() && strings.EqualFold(value, q.DisqualifyingAnswer) {
			return models.Ineligible(ineligibleReason)
		}
	}

	return models.Eligible()
}

// ruleStrategy is a Strategy defined by a product id and the message given
// when a disqualifying answer is found.
type ruleStrategy struct {
	productID        string
	ineligibleReason string
}

func (s ruleStrategy) ProductID() string {
	return s.productID
}

func (s ruleStrategy) Evaluate(questions []models.Question, answers []models.Answer) models.EligibilityResult {
	return evaluate(questions, answers, s.ineligibleReason)
}
