package heuristics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Alert & Webhook System
//
// Analysis results that need an investigator's attention become alerts:
//   1. Broadcast via WebSocket to connected dashboards
//   2. Pushed to registered webhook endpoints (Slack, Discord, SIEM)
//   3. Kept in memory as recent alert history
//
// A wallet raises a zero-day alert once per flag; re-running the analysis
// does not repeat it unless the wallet dropped out of the zero-day list in
// between.

// Alert types.
const (
	AlertZeroDay    = "zero_day"
	AlertManualFlag = "manual_flag"
)

// Alert represents a structured investigation alert
type Alert struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    string    `json:"severity"`  // low/medium/high/critical
	AlertType   string    `json:"alertType"` // zero_day/manual_flag
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address,omitempty"`
	Score       int       `json:"score,omitempty"`
}

// WebhookEndpoint is a registered webhook receiver
type WebhookEndpoint struct {
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Enabled     bool              `json:"enabled"`
	Headers     map[string]string `json:"headers,omitempty"`
	MinSeverity string            `json:"minSeverity"` // Only send alerts >= this severity
}

// AlertManager handles alert emission and webhook delivery
type AlertManager struct {
	mu            sync.RWMutex
	webhooks      []WebhookEndpoint
	recentAlerts  []Alert
	zeroDayRaised map[string]bool
	maxHistory    int
	httpClient    *http.Client
	alertCallback func(Alert) // WebSocket broadcast callback
	logger        *zap.Logger
}

// NewAlertManager creates a new alert system. broadcastFn may be nil.
func NewAlertManager(logger *zap.Logger, broadcastFn func(Alert)) *AlertManager {
	return &AlertManager{
		webhooks:      make([]WebhookEndpoint, 0),
		recentAlerts:  make([]Alert, 0),
		zeroDayRaised: make(map[string]bool),
		maxHistory:    1000,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		alertCallback: broadcastFn,
		logger:        logger.Named("alerts"),
	}
}

// RegisterWebhook adds a webhook endpoint
func (am *AlertManager) RegisterWebhook(name, url, minSeverity string, headers map[string]string) {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.webhooks = append(am.webhooks, WebhookEndpoint{
		Name:        name,
		URL:         url,
		Enabled:     true,
		Headers:     headers,
		MinSeverity: minSeverity,
	})

	am.logger.Info("registered webhook", zap.String("name", name), zap.String("minSeverity", minSeverity))
}

// EmitAlert stores an alert, broadcasts it and fans it out to webhooks.
func (am *AlertManager) EmitAlert(alert Alert) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	am.mu.Lock()
	am.recentAlerts = append(am.recentAlerts, alert)
	if len(am.recentAlerts) > am.maxHistory {
		am.recentAlerts = am.recentAlerts[len(am.recentAlerts)-am.maxHistory:]
	}
	webhooks := make([]WebhookEndpoint, len(am.webhooks))
	copy(webhooks, am.webhooks)
	am.mu.Unlock()

	if am.alertCallback != nil {
		am.alertCallback(alert)
	}

	for _, wh := range webhooks {
		if !wh.Enabled || !severityMeetsThreshold(alert.Severity, wh.MinSeverity) {
			continue
		}
		go am.sendWebhook(wh, alert)
	}

	am.logger.Info("alert",
		zap.String("severity", alert.Severity),
		zap.String("type", alert.AlertType),
		zap.String("address", alert.Address),
		zap.String("title", alert.Title))
}

// EmitZeroDay raises one alert per newly flagged zero-day wallet and
// returns how many were raised. Wallets missing from candidates are
// re-armed so a later flag alerts again.
func (am *AlertManager) EmitZeroDay(candidates []models.ZeroDayCandidate) int {
	current := make(map[string]bool, len(candidates))
	var fresh []models.ZeroDayCandidate

	am.mu.Lock()
	for _, c := range candidates {
		current[c.Address] = true
		if !am.zeroDayRaised[c.Address] {
			fresh = append(fresh, c)
		}
	}
	am.zeroDayRaised = current
	am.mu.Unlock()

	for _, c := range fresh {
		am.EmitAlert(Alert{
			Severity:    SeverityForScore(c.AdaptiveScore),
			AlertType:   AlertZeroDay,
			Title:       "Zero-day laundering candidate",
			Description: c.Reason,
			Address:     c.Address,
			Score:       c.AdaptiveScore,
		})
	}
	return len(fresh)
}

// EmitManualFlag records an investigator verdict as an alert.
func (am *AlertManager) EmitManualFlag(address string, flag models.ManualFlag, score int) {
	var severity string
	switch flag {
	case models.FlagConfirmedLaundering:
		severity = "high"
	case models.FlagSuspicious:
		severity = "medium"
	default:
		severity = "low"
	}
	am.EmitAlert(Alert{
		Severity:    severity,
		AlertType:   AlertManualFlag,
		Title:       fmt.Sprintf("Wallet flagged %s", flagLabel(flag)),
		Description: "Investigator verdict recorded",
		Address:     address,
		Score:       score,
	})
}

func flagLabel(flag models.ManualFlag) string {
	if flag == models.FlagNone {
		return "none"
	}
	return string(flag)
}

// GetRecentAlerts returns the most recent alerts, newest first
func (am *AlertManager) GetRecentAlerts(limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if limit <= 0 || limit > len(am.recentAlerts) {
		limit = len(am.recentAlerts)
	}

	start := len(am.recentAlerts) - limit
	result := make([]Alert, limit)
	for i := 0; i < limit; i++ {
		result[i] = am.recentAlerts[start+limit-1-i]
	}
	return result
}

// GetAlertsBySeverity returns alerts matching a minimum severity
func (am *AlertManager) GetAlertsBySeverity(minSeverity string) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	filtered := []Alert{}
	for _, alert := range am.recentAlerts {
		if severityMeetsThreshold(alert.Severity, minSeverity) {
			filtered = append(filtered, alert)
		}
	}
	return filtered
}

// sendWebhook delivers an alert to a webhook endpoint
func (am *AlertManager) sendWebhook(wh WebhookEndpoint, alert Alert) {
	log := am.logger.With(zap.String("webhook", wh.Name))

	payload, err := json.Marshal(alert)
	if err != nil {
		log.Error("marshal alert", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), am.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewBuffer(payload))
	if err != nil {
		log.Error("build webhook request", zap.Error(err))
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for key, val := range wh.Headers {
		req.Header.Set(key, val)
	}

	resp, err := am.httpClient.Do(req)
	if err != nil {
		log.Warn("webhook delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Warn("webhook rejected alert", zap.Int("status", resp.StatusCode))
	}
}

// SeverityForScore buckets an adaptive score into an alert severity.
func SeverityForScore(score int) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

// severityMeetsThreshold checks if a severity level meets the minimum
func severityMeetsThreshold(severity, minimum string) bool {
	levels := map[string]int{
		"info": 0, "low": 1, "medium": 2, "high": 3, "critical": 4,
	}
	return levels[severity] >= levels[minimum]
}
