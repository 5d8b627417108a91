package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/consultation/models"
	dErrors "intake/pkg/domain-errors"
)

type fixedStrategy struct {
	product string
	result  models.EligibilityResult
}

func (f fixedStrategy) ProductID() string { return f.product }

func (f fixedStrategy) Evaluate([]models.Question, []models.Answer) models.EligibilityResult {
	return f.result
}

func TestRegistry(t *testing.T) {
	t.Run("resolves registered products", func(t *testing.T) {
		r := NewRegistry(Builtin()...)

		s, err := r.Resolve("hair-loss")
		require.NoError(t, err)
		assert.Equal(t, "hair-loss", s.ProductID())
		assert.True(t, r.Exists("pear-allergy"))
		assert.ElementsMatch(t, []string{"pear-allergy", "hair-loss"}, r.Products())
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		r := NewRegistry(Builtin()...)

		_, err := r.Resolve("unicorn-tonic")
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeNotFound, "no eligibility strategy found for product: unicorn-tonic"))
		assert.False(t, r.Exists("unicorn-tonic"))
	})

	t.Run("later registration wins", func(t *testing.T) {
		override := fixedStrategy{product: "pear-allergy", result: models.Ineligible("override")}
		r := NewRegistry(PearAllergy(), override)

		s, err := r.Resolve("pear-allergy")
		require.NoError(t, err)
		assert.Equal(t, "override", s.Evaluate(nil, nil).Reason)
	})

	t.Run("empty registry", func(t *testing.T) {
		r := NewRegistry()
		assert.False(t, r.Exists("pear-allergy"))
		assert.Empty(t, r.Products())
	})
}

func TestServiceDetermine(t *testing.T) {
	svc := NewService(NewRegistry(Builtin()...))
	questions := []models.Question{
		models.NewQuestion("Q1", "Are you aged 18 or over?", models.QuestionTypeYesNo, true, "NO"),
	}

	result, err := svc.Determine("pear-allergy", questions, []models.Answer{{QuestionID: "Q1", Value: "YES"}})
	require.NoError(t, err)
	assert.True(t, result.Eligible)

	_, err = svc.Determine("missing", questions, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
