package heuristics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

func TestEmitZeroDay_RaisesOncePerFlag(t *testing.T) {
	var mu sync.Mutex
	var broadcast []Alert
	am := NewAlertManager(zap.NewNop(), func(a Alert) {
		mu.Lock()
		broadcast = append(broadcast, a)
		mu.Unlock()
	})

	a := models.ZeroDayCandidate{Address: "a", AdaptiveScore: 85, Reason: ZeroDayReason}
	b := models.ZeroDayCandidate{Address: "b", AdaptiveScore: 45, Reason: ZeroDayReason}

	assert.Equal(t, 2, am.EmitZeroDay([]models.ZeroDayCandidate{a, b}))
	assert.Equal(t, 0, am.EmitZeroDay([]models.ZeroDayCandidate{a, b}))
	// b drops out, then returns
	assert.Equal(t, 0, am.EmitZeroDay([]models.ZeroDayCandidate{a}))
	assert.Equal(t, 1, am.EmitZeroDay([]models.ZeroDayCandidate{a, b}))

	recent := am.GetRecentAlerts(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "b", recent[0].Address)
	assert.Equal(t, "critical", recent[2].Severity)
	assert.Equal(t, AlertZeroDay, recent[2].AlertType)
	assert.NotEmpty(t, recent[2].ID)

	mu.Lock()
	assert.Len(t, broadcast, 3)
	mu.Unlock()

	assert.Len(t, am.GetAlertsBySeverity("high"), 1)
	assert.Len(t, am.GetRecentAlerts(1), 1)
}

func TestSeverityForScore(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{95, "critical"}, {80, "critical"}, {79, "high"}, {60, "high"}, {40, "medium"}, {39, "low"}, {0, "low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityForScore(tt.score), "score %d", tt.score)
	}
}

func TestWebhookDelivery(t *testing.T) {
	received := make(chan Alert, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		if err := json.NewDecoder(r.Body).Decode(&a); err == nil {
			received <- a
		}
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	am := NewAlertManager(zap.NewNop(), nil)
	am.RegisterWebhook("siem", srv.URL, "high", map[string]string{"X-Token": "secret"})

	am.EmitManualFlag("low-priority", models.FlagCleared, 10)
	am.EmitManualFlag("w1", models.FlagConfirmedLaundering, 90)

	select {
	case a := <-received:
		assert.Equal(t, "w1", a.Address)
		assert.Equal(t, AlertManualFlag, a.AlertType)
		assert.Equal(t, "high", a.Severity)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was not called")
	}
}
