package eligibility

import (
	"intake/internal/consultation/models"
)

// Service resolves the product's strategy and evaluates a submission.
// It holds no state beyond its registry.
type Service struct {
	registry *Registry
}

func NewService(registry *Registry) *Service {
	return &Service{registry: registry}
}

// Determine evaluates answers against questions using productID's strategy.
// An unknown product yields the registry's not_found error unchanged.
func (s *Service) Determine(productID string, questions []models.Question, answers []models.Answer) (models.EligibilityResult, error) {
	strategy, err := s.registry.Resolve(productID)
	if err != nil {
		return models.EligibilityResult{}, err
	}
	return strategy.Evaluate(questions, answers), nil
}
