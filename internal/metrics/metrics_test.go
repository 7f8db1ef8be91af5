package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jwtly10/smartbreakout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the sample for name whose labels include every pair in labels.
func value(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metrics
				}
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestObserveSignal(t *testing.T) {
	m := New()

	m.ObserveSignal(types.Signal{Side: types.NONE, Meta: map[string]any{"breakout": false, "breakout_level": nil}})
	m.ObserveSignal(types.Signal{Side: types.NONE, Meta: map[string]any{"breakout": false, "breakout_level": 101.5}})
	m.ObserveSignal(types.Signal{Side: types.BUY, Meta: map[string]any{"breakout_level": 102.0}})

	assert.Equal(t, 2.0, value(t, m, "smartbreakout_signals_total", map[string]string{"side": "NONE"}))
	assert.Equal(t, 1.0, value(t, m, "smartbreakout_signals_total", map[string]string{"side": "BUY"}))
	assert.Equal(t, 102.0, value(t, m, "smartbreakout_breakout_level", nil))
}

func TestObserveOrderAndNotification(t *testing.T) {
	m := New()

	m.ObserveOrder("demo", nil)
	m.ObserveOrder("demo", errors.New("boom"))
	m.ObserveOrder("demo", errors.New("boom"))
	m.ObserveNotification(ResultSent)
	m.ObserveNotification(ResultSkipped)

	assert.Equal(t, 1.0, value(t, m, "smartbreakout_orders_total", map[string]string{"mode": "demo", "result": "ok"}))
	assert.Equal(t, 2.0, value(t, m, "smartbreakout_orders_total", map[string]string{"mode": "demo", "result": "error"}))
	assert.Equal(t, 1.0, value(t, m, "smartbreakout_notifications_total", map[string]string{"result": "sent"}))
	assert.Equal(t, 1.0, value(t, m, "smartbreakout_notifications_total", map[string]string{"result": "skipped"}))
}

func TestMarkRun(t *testing.T) {
	m := New()

	m.MarkRun(time.Unix(1704067200, 0))

	assert.Equal(t, 1704067200.0, value(t, m, "smartbreakout_last_run_timestamp_seconds", nil))
}

func TestPush(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.ObserveSignal(types.Signal{Side: types.BUY})

	require.NoError(t, m.Push(context.Background(), srv.URL))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/metrics/job/smartbreakout", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL)

	assert.ErrorContains(t, err, "failed to push metrics")
}
