package consultation

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	POSTWithHeaders(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	Remember(key, value string)
	Recall(key string) (string, error)
	ReviewerToken(reviewerID string) (string, error)
}

const consultationKey = "consultation_id"

// RegisterSteps registers consultation intake and review steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consultationSteps{tc: tc}

	ctx.Step(`^I submit a "([^"]*)" consultation with answers:$`, steps.submitWithAnswers)
	ctx.Step(`^I fetch the submitted consultation$`, steps.fetchSubmitted)
	ctx.Step(`^I review the submitted consultation as "([^"]*)" with approved (true|false)$`, steps.reviewAs)
	ctx.Step(`^I review the submitted consultation without a token$`, steps.reviewWithoutToken)
}

type consultationSteps struct {
	tc TestContext
}

// submitWithAnswers expects a two column table: question_id | answer.
func (s *consultationSteps) submitWithAnswers(ctx context.Context, productID string, table *godog.Table) error {
	answers := make([]map[string]string, 0, len(table.Rows))
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("answer row %d must have 2 cells", i)
		}
		answers = append(answers, map[string]string{
			"question_id": row.Cells[0].Value,
			"answer":      row.Cells[1].Value,
		})
	}
	if err := s.tc.POST("/api/consultations", map[string]any{
		"product_id": productID,
		"answers":    answers,
	}); err != nil {
		return err
	}
	if id, err := s.tc.GetResponseField("consultation_id"); err == nil {
		s.tc.Remember(consultationKey, fmt.Sprint(id))
	}
	return nil
}

func (s *consultationSteps) fetchSubmitted(ctx context.Context) error {
	id, err := s.tc.Recall(consultationKey)
	if err != nil {
		return err
	}
	return s.tc.GET("/api/consultations/"+id, nil)
}

func (s *consultationSteps) reviewAs(ctx context.Context, reviewerID, approved string) error {
	id, err := s.tc.Recall(consultationKey)
	if err != nil {
		return err
	}
	token, err := s.tc.ReviewerToken(reviewerID)
	if err != nil {
		return err
	}
	return s.tc.POSTWithHeaders("/api/consultations/"+id+"/review",
		map[string]any{"approved": approved == "true", "notes": "reviewed in e2e"},
		map[string]string{"Authorization": "Bearer " + token},
	)
}

func (s *consultationSteps) reviewWithoutToken(ctx context.Context) error {
	id, err := s.tc.Recall(consultationKey)
	if err != nil {
		return err
	}
	return s.tc.POST("/api/consultations/"+id+"/review", map[string]any{"approved": true})
}
