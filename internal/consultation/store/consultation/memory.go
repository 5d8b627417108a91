// Package consultation stores consultations in memory, PostgreSQL or Redis.
// Every backend is an upsert keyed by consultation id with last write wins.
package consultation

import (
	"context"
	"slices"
	"sync"

	"intake/internal/consultation/models"
	"intake/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map, safe for concurrent readers and writers.
type InMemory struct {
	mu            sync.RWMutex
	consultations map[string]models.Consultation
}

func NewInMemory() *InMemory {
	return &InMemory{consultations: make(map[string]models.Consultation)}
}

func (s *InMemory) Save(_ context.Context, c models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consultations[c.ID] = clone(c)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consultations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(c)
	return &out, nil
}

// clone detaches stored values from caller-owned slices and pointers.
func clone(c models.Consultation) models.Consultation {
	c.Answers = slices.Clone(c.Answers)
	if c.DoctorReview != nil {
		r := *c.DoctorReview
		c.DoctorReview = &r
	}
	return c
}
