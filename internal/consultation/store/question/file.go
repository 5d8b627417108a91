package question

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"intake/internal/consultation/models"
)

// catalogFile is the YAML shape of a question catalog:
//
//	products:
//	  pear-allergy:
//	    - id: Q1
//	      text: Are you aged 18 or over?
//	      required: true
//	      disqualifying_answer: "NO"
type catalogFile struct {
	Products map[string][]questionEntry `yaml:"products"`
}

type questionEntry struct {
	ID                  string   `yaml:"id"`
	Text                string   `yaml:"text"`
	Type                string   `yaml:"type"`
	Required            bool     `yaml:"required"`
	DisqualifyingAnswer string   `yaml:"disqualifying_answer"`
	SubPoints           []string `yaml:"sub_points"`
}

// ParseCatalog decodes a YAML question catalog. Question ids must be present
// and unique within a product; type defaults to YES_NO.
func ParseCatalog(data []byte) (map[string][]models.Question, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode question catalog: %w", err)
	}

	catalog := make(map[string][]models.Question, len(f.Products))
	for productID, entries := range f.Products {
		if strings.TrimSpace(productID) == "" {
			return nil, fmt.Errorf("question catalog: empty product id")
		}
		seen := make(map[string]struct{}, len(entries))
		questions := make([]models.Question, 0, len(entries))
		for i, e := range entries {
			if strings.TrimSpace(e.ID) == "" {
				return nil, fmt.Errorf("product %s: question %d has no id", productID, i)
			}
			if _, dup := seen[e.ID]; dup {
				return nil, fmt.Errorf("product %s: duplicate question id %s", productID, e.ID)
			}
			seen[e.ID] = struct{}{}

			qType := models.QuestionTypeYesNo
			if e.Type != "" {
				qType = models.QuestionType(strings.ToUpper(e.Type))
			}
			if qType != models.QuestionTypeYesNo {
				return nil, fmt.Errorf("product %s: question %s has unsupported type %s", productID, e.ID, e.Type)
			}
			questions = append(questions, models.NewQuestion(e.ID, e.Text, qType, e.Required, e.DisqualifyingAnswer, e.SubPoints...))
		}
		catalog[productID] = questions
	}
	return catalog, nil
}

// LoadFile reads a YAML catalog from path into an in-memory source.
func LoadFile(path string) (*InMemory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question catalog: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	return NewInMemory(catalog), nil
}
