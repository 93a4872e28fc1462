package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline-labs/fincompare/internal/kpinorm"
	"github.com/crestline-labs/fincompare/internal/model"
)

func TestParseExtraction(t *testing.T) {
	synonyms := kpinorm.NewSynonymTable()

	t.Run("plain JSON", func(t *testing.T) {
		raw := `{"company_name": "Tata Motors", "metrics": {"revenue": 1.0, "netIncome": 0.15, "ebitda": null}}`

		got, err := parseExtraction(raw, synonyms)
		require.NoError(t, err)

		assert.Equal(t, "Tata Motors", got.CompanyName)
		v, ok := got.Metrics.Get(model.MetricRevenue)
		require.True(t, ok)
		assert.InDelta(t, 1.0, v, 1e-9)
		_, ok = got.Metrics.Get(model.MetricEBITDA)
		assert.False(t, ok, "null metrics are omitted")
	})

	t.Run("markdown fences and surrounding prose", func(t *testing.T) {
		raw := "Here are the metrics:\n```json\n{\"company_name\": \"Acme\", \"metrics\": {\"revenue\": 10}}\n```\nLet me know if you need more."

		got, err := parseExtraction(raw, synonyms)
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.CompanyName)
		v, ok := got.Metrics.Get(model.MetricRevenue)
		require.True(t, ok)
		assert.InDelta(t, 10.0, v, 1e-9)
	})

	t.Run("string values are normalized", func(t *testing.T) {
		raw := `{"company_name": "Acme", "metrics": {"revenue": "$1.5B", "netIncome": "300m"}}`

		got, err := parseExtraction(raw, synonyms)
		require.NoError(t, err)

		v, ok := got.Metrics.Get(model.MetricRevenue)
		require.True(t, ok)
		assert.InDelta(t, 1.5, v, 1e-9)

		v, ok = got.Metrics.Get(model.MetricNetIncome)
		require.True(t, ok)
		assert.InDelta(t, 0.3, v, 1e-9)
	})

	t.Run("non-canonical labels resolve through synonyms", func(t *testing.T) {
		raw := `{"company_name": "Acme", "metrics": {"total revenue": 5, "made-up metric": 1}}`

		got, err := parseExtraction(raw, synonyms)
		require.NoError(t, err)

		v, ok := got.Metrics.Get(model.MetricRevenue)
		require.True(t, ok)
		assert.InDelta(t, 5.0, v, 1e-9)
		assert.Len(t, got.Metrics, 1, "unknown labels are dropped")
	})

	t.Run("null company name", func(t *testing.T) {
		raw := `{"company_name": null, "metrics": {"revenue": 2}}`

		got, err := parseExtraction(raw, synonyms)
		require.NoError(t, err)
		assert.Empty(t, got.CompanyName)
	})

	t.Run("no JSON object", func(t *testing.T) {
		_, err := parseExtraction("I could not find any metrics.", synonyms)
		assert.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := parseExtraction(`{"company_name": "Acme", "metrics": {`, synonyms)
		assert.Error(t, err)
	})
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `sure: {"a":1} done`, `{"a":1}`},
		{"no object", "nothing here", ""},
		{"unbalanced", "{only open", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONObject(tt.in))
		})
	}
}
