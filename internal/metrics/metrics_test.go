package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.MessageSent("event")
	m.MessageSent("event")
	m.ResponseReceived("goto-definition")
	m.StaleResponse("goto-definition")
	m.UnknownResponse()
	m.PluginsDiscovered(3)

	if got := testutil.ToFloat64(m.messagesSent.WithLabelValues("event")); got != 2 {
		t.Errorf("messages_sent{event} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.staleResponses.WithLabelValues("goto-definition")); got != 1 {
		t.Errorf("stale_responses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.unknownResponses); got != 1 {
		t.Errorf("unknown_responses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pluginsDiscovered); got != 3 {
		t.Errorf("discovered = %v, want 3", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.MessageSent("event")
	m.ResponseReceived("format")
	m.StaleResponse("format")
	m.UnknownResponse()
	m.PluginsDiscovered(1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.MessageSent("request")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `oxbow_plugin_messages_sent_total{type="request"} 1`) {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
