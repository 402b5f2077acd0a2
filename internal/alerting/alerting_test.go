package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

func quietResult() *model.CycleResult {
	return &model.CycleResult{
		Phase: model.PhaseDecision{Phase: 0, Name: "Steady", Headline: "All quiet"},
		HOPI:  model.HOPIResult{Composite: 0.02, Confidence: 1.0},
	}
}

func TestEvaluate_QuietCycleNoAlerts(t *testing.T) {
	a := New(config.AlertConfig{MinPhase: 1})

	alerts := a.Evaluate(quietResult())
	assert.Empty(t, alerts)
}

func TestEvaluate_PhaseChange(t *testing.T) {
	a := New(config.AlertConfig{MinPhase: 1})

	result := quietResult()
	result.Phase = model.PhaseDecision{Phase: 2, Name: "Hold", Headline: "Several fronts moving"}
	result.PhaseChanged = true

	alerts := a.Evaluate(result)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertPhaseChange, alerts[0].Type)
	assert.Equal(t, "info", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "Hold")
}

func TestEvaluate_PhaseChangeBelowMinimumSuppressed(t *testing.T) {
	a := New(config.AlertConfig{MinPhase: 3})

	result := quietResult()
	result.Phase = model.PhaseDecision{Phase: 1, Name: "Watch"}
	result.PhaseChanged = true

	assert.Empty(t, a.Evaluate(result))
}

func TestEvaluate_SeverityScalesWithPhase(t *testing.T) {
	a := New(config.AlertConfig{})

	result := quietResult()
	result.Phase = model.PhaseDecision{Phase: 6, Name: "Mobilize"}
	result.PhaseChanged = true

	alerts := a.Evaluate(result)
	require.Len(t, alerts, 1)
	assert.Equal(t, "critical", alerts[0].Severity)
}

func TestEvaluate_TightenUp(t *testing.T) {
	a := New(config.AlertConfig{})

	result := quietResult()
	result.Tallies = model.Tallies{Red: 3, Amber: 2, TightenUp: true}

	alerts := a.Evaluate(result)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTightenUp, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "3 red")
}

func TestEvaluate_CriticalConfirmedRed(t *testing.T) {
	a := New(config.AlertConfig{})

	result := quietResult()
	result.Indicators = map[string]model.IndicatorState{
		"NATOReadiness": {Name: "NATOReadiness", Color: model.Red, Confirmed: true, Critical: true},
		"MarketChop":    {Name: "MarketChop", Color: model.Red, Confirmed: false, Critical: false},
	}

	alerts := a.Evaluate(result)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCriticalRed, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "NATOReadiness")
}

func TestSendAlerts_PostsToWebhook(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertTightenUp, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New(config.AlertConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertTightenUp, Severity: "high", Message: "test"},
	})

	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestSendAlerts_CountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(config.AlertConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertPhaseChange, Severity: "info", Message: "test"},
	})

	assert.Equal(t, 0, sent)
}

func TestSendAlerts_NoWebhookConfigured(t *testing.T) {
	a := New(config.AlertConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertPhaseChange, Severity: "info", Message: "test"},
	})
	assert.Equal(t, 0, sent)
}
