package workflow

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"intake/internal/eligibility"
)

// Table maps product ids to workflows. Products not listed follow the
// fallback. Tables are read-only once built.
type Table struct {
	byProduct map[string]Kind
	fallback  Kind
}

// NewTable builds a table. A zero fallback defaults to asynchronous review.
func NewTable(byProduct map[string]Kind, fallback Kind) Table {
	if fallback == "" {
		fallback = KindAsyncDoctorReview
	}
	return Table{byProduct: maps.Clone(byProduct), fallback: fallback}
}

// DefaultTable sends pear allergy consultations through automatically and
// everything else to asynchronous review.
func DefaultTable() Table {
	return NewTable(map[string]Kind{
		eligibility.ProductPearAllergy: KindAutomated,
	}, KindAsyncDoctorReview)
}

// Lookup returns the workflow for productID.
func (t Table) Lookup(productID string) Kind {
	if k, ok := t.byProduct[productID]; ok {
		return k
	}
	if t.fallback == "" {
		return KindAsyncDoctorReview
	}
	return t.fallback
}

// tableFile is the YAML shape of a workflow table:
//
//	default: ASYNC_DOCTOR_REVIEW
//	workflows:
//	  pear-allergy: AUTOMATED
type tableFile struct {
	Default   string            `yaml:"default"`
	Workflows map[string]string `yaml:"workflows"`
}

// ParseTable decodes a YAML workflow table. Synchronous review is rejected
// because the router has no implementation for it.
func ParseTable(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Table{}, fmt.Errorf("decode workflow table: %w", err)
	}

	fallback := KindAsyncDoctorReview
	if f.Default != "" {
		k, err := ParseKind(f.Default)
		if err != nil {
			return Table{}, fmt.Errorf("default: %w", err)
		}
		fallback = k
	}
	if fallback == KindSyncDoctorReview {
		return Table{}, fmt.Errorf("default: %s is not supported", KindSyncDoctorReview)
	}

	byProduct := make(map[string]Kind, len(f.Workflows))
	for product, name := range f.Workflows {
		k, err := ParseKind(name)
		if err != nil {
			return Table{}, fmt.Errorf("product %s: %w", product, err)
		}
		if k == KindSyncDoctorReview {
			return Table{}, fmt.Errorf("product %s: %s is not supported", product, KindSyncDoctorReview)
		}
		byProduct[product] = k
	}
	return NewTable(byProduct, fallback), nil
}

// LoadTable reads a YAML workflow table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read workflow table: %w", err)
	}
	return ParseTable(data)
}
