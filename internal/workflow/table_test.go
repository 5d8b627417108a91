package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	t.Run("products and default", func(t *testing.T) {
		table, err := ParseTable([]byte(`
default: AUTOMATED
workflows:
  pear-allergy: AUTOMATED
  hair-loss: ASYNC_DOCTOR_REVIEW
`))
		require.NoError(t, err)
		assert.Equal(t, KindAsyncDoctorReview, table.Lookup("hair-loss"))
		assert.Equal(t, KindAutomated, table.Lookup("unlisted"))
	})

	t.Run("default falls back to async review", func(t *testing.T) {
		table, err := ParseTable([]byte("workflows:\n  pear-allergy: AUTOMATED\n"))
		require.NoError(t, err)
		assert.Equal(t, KindAsyncDoctorReview, table.Lookup("hair-loss"))
	})

	t.Run("sync review is rejected", func(t *testing.T) {
		_, err := ParseTable([]byte("workflows:\n  hair-loss: SYNC_DOCTOR_REVIEW\n"))
		assert.ErrorContains(t, err, "hair-loss")

		_, err = ParseTable([]byte("default: SYNC_DOCTOR_REVIEW\n"))
		assert.Error(t, err)
	})

	t.Run("unknown workflow is rejected", func(t *testing.T) {
		_, err := ParseTable([]byte("workflows:\n  hair-loss: EMAIL\n"))
		assert.ErrorContains(t, err, "unknown workflow")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseTable([]byte("workflows: [unclosed"))
		assert.Error(t, err)
	})
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflows:\n  hair-loss: AUTOMATED\n"), 0o600))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, KindAutomated, table.Lookup("hair-loss"))

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewTableCopiesInput(t *testing.T) {
	in := map[string]Kind{"a": KindAutomated}
	table := NewTable(in, "")
	in["a"] = KindAsyncDoctorReview

	assert.Equal(t, KindAutomated, table.Lookup("a"))
	assert.Equal(t, KindAsyncDoctorReview, table.Lookup("b"))
}
