package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

func resolveOne(t *testing.T, ind config.IndicatorConfig) Threshold {
	t.Helper()
	table, err := Resolve([]config.IndicatorConfig{ind})
	require.NoError(t, err)
	return table[ind.Name]
}

func TestClassify_NumericBands(t *testing.T) {
	th := resolveOne(t, config.IndicatorConfig{
		Name: "MarketVolatility", Kind: config.KindNumeric, Amber: 25, Red: 40,
	})

	tests := []struct {
		value float64
		want  model.Color
	}{
		{10, model.Green},
		{24.99, model.Green},
		{25, model.Amber},
		{39.99, model.Amber},
		{40, model.Red},
		{90, model.Red},
	}
	for _, tc := range tests {
		got, unknown := th.Classify(&model.Reading{Value: tc.value})
		assert.Equal(t, tc.want, got, "value %.2f", tc.value)
		assert.False(t, unknown)
	}
}

func TestClassify_InvertedNumeric(t *testing.T) {
	// Lower is worse: growth below 1.0 is amber, at or below 0.0 is red.
	th := resolveOne(t, config.IndicatorConfig{
		Name: "GDPGrowth", Kind: config.KindNumeric, Amber: 1.0, Red: 0.0, Invert: true,
	})
	require.True(t, th.Negate)

	tests := []struct {
		value float64
		want  model.Color
	}{
		{2.5, model.Green},
		{1.5, model.Green},
		{1.0, model.Amber},
		{0.5, model.Amber},
		{0.0, model.Red},
		{-1.0, model.Red},
	}
	for _, tc := range tests {
		got, _ := th.Classify(&model.Reading{Value: tc.value})
		assert.Equal(t, tc.want, got, "value %.2f", tc.value)
	}
}

func TestClassify_EnumeratedCodes(t *testing.T) {
	th := resolveOne(t, config.IndicatorConfig{
		Name: "TaiwanZone", Kind: config.KindEnumerated,
		GreenCode: "NONE", AmberCode: "TEMP", RedCode: "BLOCKADE",
	})

	got, unknown := th.Classify(&model.Reading{Code: "NONE"})
	assert.Equal(t, model.Green, got)
	assert.False(t, unknown)

	got, unknown = th.Classify(&model.Reading{Code: "TEMP"})
	assert.Equal(t, model.Amber, got)
	assert.False(t, unknown)

	got, unknown = th.Classify(&model.Reading{Code: "BLOCKADE"})
	assert.Equal(t, model.Red, got)
	assert.False(t, unknown)
}

func TestClassify_UnknownCodeScoresGreenFlagged(t *testing.T) {
	th := resolveOne(t, config.IndicatorConfig{
		Name: "TaiwanZone", Kind: config.KindEnumerated,
		GreenCode: "NONE", AmberCode: "TEMP", RedCode: "BLOCKADE",
	})

	got, unknown := th.Classify(&model.Reading{Code: "PARTIAL"})
	assert.Equal(t, model.Green, got)
	assert.True(t, unknown)
}

func TestResolve_UnknownKind(t *testing.T) {
	_, err := Resolve([]config.IndicatorConfig{{Name: "X", Kind: "weird"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}
