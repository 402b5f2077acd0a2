package staleness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/watchtower/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func reading(age time.Duration) *model.Reading {
	ts := testNow.Add(-age)
	return &model.Reading{Name: "X", Timestamp: &ts}
}

func TestEvaluate_MissingReadingForcesRed(t *testing.T) {
	e := New(48, 168)

	res := e.Evaluate(nil, testNow)
	assert.Equal(t, model.Red, res.Floor)
	assert.True(t, res.Stale)
	assert.Equal(t, ReasonNoData, res.Reason)
}

func TestEvaluate_MissingTimestampForcesRed(t *testing.T) {
	e := New(48, 168)

	res := e.Evaluate(&model.Reading{Name: "X"}, testNow)
	assert.Equal(t, model.Red, res.Floor)
	assert.Equal(t, ReasonNoTimestamp, res.Reason)
}

func TestEvaluate_AgeBands(t *testing.T) {
	e := New(48, 168)

	tests := []struct {
		age    time.Duration
		floor  model.Color
		stale  bool
		reason string
	}{
		{1 * time.Hour, model.Green, false, ""},
		{47 * time.Hour, model.Green, false, ""},
		{48 * time.Hour, model.Amber, true, ReasonStaleAmber},
		{100 * time.Hour, model.Amber, true, ReasonStaleAmber},
		{168 * time.Hour, model.Red, true, ReasonStaleRed},
		{400 * time.Hour, model.Red, true, ReasonStaleRed},
	}
	for _, tc := range tests {
		res := e.Evaluate(reading(tc.age), testNow)
		assert.Equal(t, tc.floor, res.Floor, "age %v", tc.age)
		assert.Equal(t, tc.stale, res.Stale, "age %v", tc.age)
		assert.Equal(t, tc.reason, res.Reason, "age %v", tc.age)
	}
}

func TestEvaluate_FutureTimestampClampsToZero(t *testing.T) {
	e := New(48, 168)

	res := e.Evaluate(reading(-2*time.Hour), testNow)
	assert.Equal(t, 0.0, res.AgeHours)
	assert.Equal(t, model.Green, res.Floor)
}

func TestApply_FloorNeverDowngrades(t *testing.T) {
	st := model.IndicatorState{Name: "X", Color: model.Red}
	Apply(&st, Result{AgeHours: 50, Floor: model.Amber, Stale: true, Reason: ReasonStaleAmber})

	assert.Equal(t, model.Red, st.Color)
	assert.True(t, st.Stale)
	assert.Equal(t, ReasonStaleAmber, st.StaleReason)
}

func TestApply_FloorRaisesGreen(t *testing.T) {
	st := model.IndicatorState{Name: "X", Color: model.Green}
	Apply(&st, Result{Floor: model.Red, Stale: true, Reason: ReasonNoData})

	assert.Equal(t, model.Red, st.Color)
}
