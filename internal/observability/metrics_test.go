package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findFamily returns the gathered metric family with the given name.
func findFamily(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func labelsOf(metric *dto.Metric) map[string]string {
	labels := make(map[string]string, len(metric.GetLabel()))
	for _, l := range metric.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	return labels
}

func TestNewMetrics_DefaultNamespace(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	m.SetBuildInfo("v1", "abc", "now")

	family := findFamily(t, m, "applepay_relay_build_info")
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 1)
	assert.Equal(t, map[string]string{
		"version":    "v1",
		"commit":     "abc",
		"build_time": "now",
	}, labelsOf(family.GetMetric()[0]))
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordRequest(http.MethodGet, "/merchant-session/new", http.StatusOK, 20*time.Millisecond)
	m.RecordRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	family := findFamily(t, m, "test_requests_total")
	require.NotNil(t, family)

	got := make(map[string]float64)
	for _, metric := range family.GetMetric() {
		labels := labelsOf(metric)
		got[labels["route"]+" "+labels["status"]] = metric.GetCounter().GetValue()
	}

	assert.Equal(t, 1.0, got["/merchant-session/new 200"])
	assert.Equal(t, 1.0, got[UnmatchedRoute+" 404"])
}

func TestMetrics_RecordUpstream(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordUpstream(OutcomeSuccess, http.StatusOK, 100*time.Millisecond)
	m.RecordUpstream(OutcomeTransportError, 0, time.Second)
	m.RecordUpstream(OutcomeTransportError, 0, time.Second)

	family := findFamily(t, m, "test_upstream_requests_total")
	require.NotNil(t, family)

	got := make(map[string]float64)
	for _, metric := range family.GetMetric() {
		labels := labelsOf(metric)
		got[labels["outcome"]+" "+labels["status"]] = metric.GetCounter().GetValue()
	}

	assert.Equal(t, 1.0, got["success 200"])
	assert.Equal(t, 2.0, got["transport_error none"])
}

func TestMetrics_Gauges(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")

	m.SetMerchantIdentifierLoaded(true)
	family := findFamily(t, m, "test_merchant_identifier_loaded")
	require.NotNil(t, family)
	assert.Equal(t, 1.0, family.GetMetric()[0].GetGauge().GetValue())

	m.SetMerchantIdentifierLoaded(false)
	family = findFamily(t, m, "test_merchant_identifier_loaded")
	assert.Equal(t, 0.0, family.GetMetric()[0].GetGauge().GetValue())

	m.IncrementActiveRequests()
	m.IncrementActiveRequests()
	m.DecrementActiveRequests()
	family = findFamily(t, m, "test_active_requests")
	assert.Equal(t, 1.0, family.GetMetric()[0].GetGauge().GetValue())

	m.RecordDisplayNameStripped()
	family = findFamily(t, m, "test_display_name_stripped_total")
	assert.Equal(t, 1.0, family.GetMetric()[0].GetCounter().GetValue())
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordUpstream(OutcomeSuccess, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_upstream_requests_total")
	assert.Contains(t, rec.Body.String(), "test_start_time_seconds")
}
