// Package alerting turns cycle results into webhook notifications:
// phase changes, tighten-up conditions, and critical confirmed reds.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertPhaseChange AlertType = "phase_change"
	AlertTightenUp   AlertType = "tighten_up"
	AlertCriticalRed AlertType = "critical_red"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates cycle results against the alert config and delivers
// alerts via webhook.
type Alerter struct {
	cfg    config.AlertConfig
	client *http.Client
}

// New creates an Alerter with the given alert config.
func New(cfg config.AlertConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks a cycle result and returns any alerts it warrants.
// Phase changes below the configured minimum phase are suppressed.
func (a *Alerter) Evaluate(result *model.CycleResult) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if result.PhaseChanged && result.Phase.Phase >= a.cfg.MinPhase {
		severity := "info"
		if result.Phase.Phase >= 5 {
			severity = "critical"
		} else if result.Phase.Phase >= 3 {
			severity = "high"
		}
		alerts = append(alerts, Alert{
			Type:     AlertPhaseChange,
			Severity: severity,
			Message: fmt.Sprintf("Phase changed to %s (%s): %s",
				config.PhaseKey(result.Phase.Phase), result.Phase.Name, result.Phase.Headline),
			Details: map[string]any{
				"phase":      result.Phase.Phase,
				"name":       result.Phase.Name,
				"composite":  result.HOPI.Composite,
				"confidence": result.HOPI.Confidence,
			},
			Timestamp: now,
		})
	}

	if result.Tallies.TightenUp {
		alerts = append(alerts, Alert{
			Type:     AlertTightenUp,
			Severity: "high",
			Message: fmt.Sprintf("Tighten-up condition: %d red indicators active",
				result.Tallies.Red),
			Details: map[string]any{
				"reds":   result.Tallies.Red,
				"ambers": result.Tallies.Amber,
			},
			Timestamp: now,
		})
	}

	for name, st := range result.Indicators {
		if st.Critical && st.Confirmed && st.Color == model.Red {
			alerts = append(alerts, Alert{
				Type:     AlertCriticalRed,
				Severity: "critical",
				Message:  fmt.Sprintf("Critical indicator %s confirmed red", name),
				Details: map[string]any{
					"indicator": name,
					"raw_value": st.RawValue,
					"code":      st.Code,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("alerting: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("alerting: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "alerting: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "alerting: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alerting: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("alerting: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
