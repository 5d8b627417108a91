package eligibility

import (
	dErrors "intake/pkg/domain-errors"
)

// Registry maps product ids to strategies. It is built once and read-only
// afterwards, so it is safe for concurrent use.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry indexes strategies by product id. When two strategies claim the
// same product the later one wins.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		if s == nil {
			continue
		}
		r.strategies[s.ProductID()] = s
	}
	return r
}

// Resolve returns the strategy for productID.
func (r *Registry) Resolve(productID string) (Strategy, error) {
	s, ok := r.strategies[productID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no eligibility strategy found for product: "+productID)
	}
	return s, nil
}

// Exists reports whether productID has a strategy.
func (r *Registry) Exists(productID string) bool {
	_, ok := r.strategies[productID]
	return ok
}

// Products lists registered product ids in no particular order.
func (r *Registry) Products() []string {
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	return ids
}
