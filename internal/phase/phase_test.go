package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

var stepStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Bands: []config.PhaseBand{
			{Phase: 0, Name: "Steady", MaxScore: 0.15, RequireNoAmbers: true},
			{Phase: 1, Name: "Watch", MaxScore: 0.30},
			{Phase: 2, Name: "Hold", MaxScore: 0.45},
			{Phase: 3, Name: "Brace", MaxScore: 0.60},
			{Phase: 5, Name: "Shelter", MaxScore: 0.80},
			{Phase: 6, Name: "Mobilize", MaxScore: 0.90},
			{Phase: 7, Name: "Crisis", MaxScore: 1.01},
		},
		CriticalRules: []config.CriticalRule{
			{
				Name:       "nato_readiness",
				Indicators: []string{"NATOReadiness"},
				MinPhase:   6,
				Bump:       &config.RuleBump{Indicator: "RussiaNATO", MinValue: 75, PhaseBump: 1},
			},
			{
				Name:        "market_deepfake",
				Indicators:  []string{"MarketVolatility", "DeepfakeShocks"},
				MinPhase:    7,
				WindowHours: 3,
			},
		},
	}
}

func quietInputs(composite float64) Inputs {
	return Inputs{
		HOPI:         model.HOPIResult{Composite: composite, Confidence: 1.0},
		States:       map[string]model.IndicatorState{},
		FirstRedSeen: func(string) (time.Time, bool) { return time.Time{}, false },
	}
}

func TestStep_QuietStaysAtZero(t *testing.T) {
	m := New(testConfig(), stepStart)

	d, err := m.Step(stepStart, quietInputs(0.02))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Phase)
	assert.Equal(t, "Steady", d.Name)
	assert.False(t, d.Changed)
}

func TestStep_EscalationRequiresRepeatedTarget(t *testing.T) {
	m := New(testConfig(), stepStart)

	// First cycle computes target 2 but the phase holds.
	d, err := m.Step(stepStart, quietInputs(0.35))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Phase)
	assert.Equal(t, 2.0, d.TargetPhase)
	assert.True(t, d.Hysteresis)

	// Second cycle with the same target escalates.
	d, err = m.Step(stepStart.Add(time.Hour), quietInputs(0.35))
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.Phase)
	assert.True(t, d.Changed)
	assert.False(t, d.Hysteresis)
}

func TestStep_SpikeThenDropDoesNotEscalate(t *testing.T) {
	m := New(testConfig(), stepStart)

	d, err := m.Step(stepStart, quietInputs(0.35))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Phase)

	// The spike did not repeat; the lower target holds the phase down.
	d, err = m.Step(stepStart.Add(time.Hour), quietInputs(0.05))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Phase)
	assert.False(t, d.Changed)
}

func TestStep_DeescalationNeedsCooldownAndQuietScores(t *testing.T) {
	m := New(testConfig(), stepStart)

	// Escalate to 2.
	now := stepStart
	for i := 0; i < 2; i++ {
		_, err := m.Step(now, quietInputs(0.35))
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}
	require.Equal(t, 2.0, m.Current())

	// Quiet immediately after: held by the 72h cooldown.
	d, err := m.Step(now, quietInputs(0.05))
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.Phase)

	// Past the cooldown the three-cycle window (which includes the
	// current composite) still contains an escalation-era score, so the
	// phase holds once more before standing down.
	now = now.Add(73 * time.Hour)
	d, err = m.Step(now, quietInputs(0.05))
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.Phase)

	now = now.Add(time.Hour)
	d, err = m.Step(now, quietInputs(0.05))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Phase)
	assert.True(t, d.Changed)
}

func TestStep_DeescalationBlockedByActiveRed(t *testing.T) {
	m := New(testConfig(), stepStart)

	now := stepStart
	for i := 0; i < 2; i++ {
		_, err := m.Step(now, quietInputs(0.35))
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}

	now = now.Add(100 * time.Hour)
	for i := 0; i < 5; i++ {
		in := quietInputs(0.05)
		in.HOPI.TotalReds = 1
		d, err := m.Step(now, in)
		require.NoError(t, err)
		assert.Equal(t, 2.0, d.Phase)
		now = now.Add(time.Hour)
	}
}

func TestStep_SingleConfirmedRedTriggersPhaseThree(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	m := New(cfg, stepStart)

	// One confirmed non-critical red with a near-zero composite: the
	// band table's confirmed-red trigger must still pull the target up
	// to 3 even though the composite alone maps to 0.
	in := quietInputs(0.02)
	in.HOPI.TotalReds = 1
	in.States = map[string]model.IndicatorState{
		"JoblessClaims": {Name: "JoblessClaims", Color: model.Red, Confirmed: true},
	}

	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.TargetPhase)
	assert.Equal(t, 0.0, d.Phase)
	assert.True(t, d.Hysteresis)

	d, err = m.Step(stepStart.Add(time.Hour), in)
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.Phase)
	assert.Equal(t, "Health Prep", d.Name)
	assert.True(t, d.Changed)
}

func TestStep_AmberCountFloorsTarget(t *testing.T) {
	cfg := config.Default()
	m := New(cfg, stepStart)

	// Two ambers satisfy the phase-2 trigger even at a quiet composite.
	in := quietInputs(0.02)
	in.Tallies.Amber = 2
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.TargetPhase)
}

func TestStep_TriggerFloorsDoNotCapTarget(t *testing.T) {
	cfg := config.Default()
	m := New(cfg, stepStart)

	// A composite already matching the phase-3 band is not dragged back
	// down to a lower trigger band by its ambers.
	in := quietInputs(0.42)
	in.Tallies.Amber = 2
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.TargetPhase)
}

func TestStep_AmberBlocksPhaseZero(t *testing.T) {
	m := New(testConfig(), stepStart)

	in := quietInputs(0.02)
	in.Tallies.Amber = 1
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	// Band 0 requires no ambers; target falls through to 1 but the phase
	// holds at 0 until the target repeats.
	assert.Equal(t, 1.0, d.TargetPhase)
	assert.Equal(t, 0.0, d.Phase)
}

func TestStep_CriticalRuleJumpsImmediately(t *testing.T) {
	m := New(testConfig(), stepStart)

	in := quietInputs(0.10)
	in.States = map[string]model.IndicatorState{
		"NATOReadiness": {Name: "NATOReadiness", Color: model.Red, Confirmed: true, Critical: true},
	}
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Equal(t, 6.0, d.Phase)
	assert.True(t, d.Changed)
	assert.Equal(t, 6.0, d.CriticalFloor)
}

func TestStep_CriticalRuleBump(t *testing.T) {
	m := New(testConfig(), stepStart)

	in := quietInputs(0.10)
	in.States = map[string]model.IndicatorState{
		"NATOReadiness": {Name: "NATOReadiness", Color: model.Red, Confirmed: true, Critical: true},
		"RussiaNATO":    {Name: "RussiaNATO", Color: model.Amber, RawValue: 80},
	}
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Equal(t, 7.0, d.Phase)
}

func TestStep_PairedRuleNeedsWindow(t *testing.T) {
	cfg := testConfig()

	states := map[string]model.IndicatorState{
		"MarketVolatility": {Name: "MarketVolatility", Color: model.Red, Confirmed: true},
		"DeepfakeShocks":   {Name: "DeepfakeShocks", Color: model.Red, Confirmed: true},
	}

	// Both confirmed within 2 hours of each other: rule fires.
	m := New(cfg, stepStart)
	in := quietInputs(0.10)
	in.States = states
	in.FirstRedSeen = func(name string) (time.Time, bool) {
		if name == "MarketVolatility" {
			return stepStart.Add(-2 * time.Hour), true
		}
		return stepStart, true
	}
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Equal(t, 7.0, d.Phase)

	// Five hours apart: outside the 3h window, no jump.
	m = New(cfg, stepStart)
	in.FirstRedSeen = func(name string) (time.Time, bool) {
		if name == "MarketVolatility" {
			return stepStart.Add(-5 * time.Hour), true
		}
		return stepStart, true
	}
	d, err = m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Less(t, d.Phase, 7.0)
}

func TestStep_RuleNeedsAllIndicatorsConfirmed(t *testing.T) {
	m := New(testConfig(), stepStart)

	in := quietInputs(0.10)
	in.States = map[string]model.IndicatorState{
		"MarketVolatility": {Name: "MarketVolatility", Color: model.Red, Confirmed: true},
		"DeepfakeShocks":   {Name: "DeepfakeShocks", Color: model.Red, Confirmed: false},
	}
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Less(t, d.Phase, 7.0)
}

func TestStep_LowConfidenceCapsPhase(t *testing.T) {
	m := New(testConfig(), stepStart)

	in := quietInputs(0.70) // target 5
	in.HOPI.Confidence = 0.50

	_, err := m.Step(stepStart, in)
	require.NoError(t, err)

	d, err := m.Step(stepStart.Add(time.Hour), in)
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.Phase)
	assert.True(t, d.ConfidenceCapped)
}

func TestStep_CriticalRedBypassesConfidenceCap(t *testing.T) {
	m := New(testConfig(), stepStart)

	in := quietInputs(0.10)
	in.HOPI.Confidence = 0.40
	in.HOPI.CriticalReds = 1
	in.States = map[string]model.IndicatorState{
		"NATOReadiness": {Name: "NATOReadiness", Color: model.Red, Confirmed: true, Critical: true},
	}
	d, err := m.Step(stepStart, in)
	require.NoError(t, err)
	assert.Equal(t, 6.0, d.Phase)
	assert.False(t, d.ConfidenceCapped)
}

func TestStep_NoMatchingBandFailsClosed(t *testing.T) {
	cfg := &config.Config{
		Bands: []config.PhaseBand{
			{Phase: 0, Name: "Steady", MaxScore: 0.15, RequireNoAmbers: true},
		},
	}
	m := New(cfg, stepStart)

	in := quietInputs(0.50)
	_, err := m.Step(stepStart, in)
	require.Error(t, err)
	assert.Equal(t, 0.0, m.Current())
}

func TestStep_RecordsTransitions(t *testing.T) {
	m := New(testConfig(), stepStart)

	for i := 0; i < 2; i++ {
		_, err := m.Step(stepStart.Add(time.Duration(i)*time.Hour), quietInputs(0.35))
		require.NoError(t, err)
	}

	trs := m.Transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, 0.0, trs[0].From)
	assert.Equal(t, 2.0, trs[0].To)
	assert.Equal(t, model.DirectionUp, trs[0].Direction)

	since := m.TransitionsSince(stepStart.Add(2 * time.Hour))
	assert.Empty(t, since)
}

func TestSeed_RestoresPhase(t *testing.T) {
	m := New(testConfig(), stepStart)
	m.Seed(3, stepStart.Add(-time.Hour))
	assert.Equal(t, 3.0, m.Current())
}
