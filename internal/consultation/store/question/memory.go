// Package question provides product questionnaires from a seeded in-memory
// catalog, a YAML file or PostgreSQL.
package question

import (
	"context"
	"slices"
	"sync"

	"intake/internal/consultation/models"
	"intake/internal/eligibility"
)

// InMemory holds questionnaires keyed by product id. Lookups of unknown
// products return an empty slice.
type InMemory struct {
	mu        sync.RWMutex
	byProduct map[string][]models.Question
}

// NewInMemory returns a catalog holding the given products. Use Seeded for
// the built-in questionnaires.
func NewInMemory(catalog map[string][]models.Question) *InMemory {
	s := &InMemory{byProduct: make(map[string][]models.Question, len(catalog))}
	for productID, questions := range catalog {
		s.byProduct[productID] = cloneQuestions(questions)
	}
	return s
}

// Seeded returns a catalog with the pear allergy and hair loss questionnaires.
func Seeded() *InMemory {
	return NewInMemory(DefaultCatalog())
}

func (s *InMemory) FindByProductID(_ context.Context, productID string) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneQuestions(s.byProduct[productID]), nil
}

// SetProduct replaces a product's questionnaire.
func (s *InMemory) SetProduct(productID string, questions []models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byProduct[productID] = cloneQuestions(questions)
}

// Products lists the products with a questionnaire, sorted.
func (s *InMemory) Products() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byProduct))
	for productID := range s.byProduct {
		out = append(out, productID)
	}
	slices.Sort(out)
	return out
}

// DefaultCatalog is the built-in questionnaire set.
func DefaultCatalog() map[string][]models.Question {
	return map[string][]models.Question{
		eligibility.ProductPearAllergy: {
			models.NewQuestion("Q1", "Are you aged 18 or over?", models.QuestionTypeYesNo, true, "NO"),
			models.NewQuestion("Q2", "Have you been diagnosed with a Genovian Pear allergy?", models.QuestionTypeYesNo, true, "NO"),
			models.NewQuestion("Q3", "Have you experienced anaphylaxis to Genovian Pears?", models.QuestionTypeYesNo, true, "YES"),
			models.NewQuestion("Q4", "Are you currently taking allergy medications?", models.QuestionTypeYesNo, false, "YES"),
		},
		eligibility.ProductHairLoss: {
			models.NewQuestion("HL1", "Are you male and aged 18-65?", models.QuestionTypeYesNo, true, "NO"),
			models.NewQuestion("HL2", "Do you have heart conditions?", models.QuestionTypeYesNo, true, "YES"),
			models.NewQuestion("HL3", "Are you taking blood thinners?", models.QuestionTypeYesNo, true, "YES"),
		},
	}
}

func cloneQuestions(questions []models.Question) []models.Question {
	out := make([]models.Question, len(questions))
	for i, q := range questions {
		out[i] = models.NewQuestion(q.ID, q.Text, q.Type, q.Required, q.DisqualifyingAnswer, q.SubPoints...)
	}
	return out
}
