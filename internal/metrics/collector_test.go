package dot1xmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	dot1xmetrics "github.com/go8021x/go8021x/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := dot1xmetrics.NewCollector(reg)

	if c.PortStatus == nil {
		t.Error("PortStatus is nil")
	}
	if c.EAPOLFramesRx == nil {
		t.Error("EAPOLFramesRx is nil")
	}
	if c.RadiusCryptoFailures == nil {
		t.Error("RadiusCryptoFailures is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestPortStatusGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := dot1xmetrics.NewCollector(reg)

	c.SetPortStatus(1, true)
	if val := gaugeValue(t, c.PortStatus, "1", "current"); val != 1 {
		t.Errorf("PortStatus(1) = %v, want 1", val)
	}

	c.SetPortStatus(1, false)
	if val := gaugeValue(t, c.PortStatus, "1", "current"); val != 0 {
		t.Errorf("PortStatus(1) after unauthorize = %v, want 0", val)
	}
}

func TestEAPOLFrameCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := dot1xmetrics.NewCollector(reg)

	c.IncEAPOLFramesRx(1, "EAP")
	c.IncEAPOLFramesRx(1, "EAP")
	c.IncEAPOLFramesRx(1, "Start")

	if val := counterValue(t, c.EAPOLFramesRx, "1", "EAP"); val != 2 {
		t.Errorf("EAPOLFramesRx(EAP) = %v, want 2", val)
	}
	if val := counterValue(t, c.EAPOLFramesRx, "1", "Start"); val != 1 {
		t.Errorf("EAPOLFramesRx(Start) = %v, want 1", val)
	}
}

func TestAuthOutcomeCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := dot1xmetrics.NewCollector(reg)

	c.IncAuthEntersConnecting(2)
	c.IncAuthEntersAuthenticating(2)
	c.IncAuthSuccesses(2)
	c.IncAuthFailures(2)
	c.IncAuthFailures(2)
	c.IncAuthReauths(2)

	if val := counterValue(t, c.AuthEntersConnecting, "2"); val != 1 {
		t.Errorf("AuthEntersConnecting = %v, want 1", val)
	}
	if val := counterValue(t, c.AuthFailures, "2"); val != 2 {
		t.Errorf("AuthFailures = %v, want 2", val)
	}
	if val := counterValue(t, c.AuthReauths, "2"); val != 1 {
		t.Errorf("AuthReauths = %v, want 1", val)
	}
}

func TestSessionTerminationCounter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := dot1xmetrics.NewCollector(reg)

	c.IncSessionTermination(3, "SupplicantLogoff")
	c.IncSessionTermination(3, "SupplicantLogoff")
	c.IncSessionTermination(3, "ReauthFailed")

	if val := counterValue(t, c.SessionTerminations, "3", "SupplicantLogoff"); val != 2 {
		t.Errorf("SessionTerminations(SupplicantLogoff) = %v, want 2", val)
	}
	if val := counterValue(t, c.SessionTerminations, "3", "ReauthFailed"); val != 1 {
		t.Errorf("SessionTerminations(ReauthFailed) = %v, want 1", val)
	}
}

func TestRadiusCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := dot1xmetrics.NewCollector(reg)

	c.IncRadiusRetransWhile(1)
	c.IncRadiusAAATimeout(1)
	c.IncRadiusCryptoFailure(1)
	c.IncRadiusCryptoFailure(1)

	if val := counterValue(t, c.RadiusRetransWhile, "1"); val != 1 {
		t.Errorf("RadiusRetransWhile = %v, want 1", val)
	}
	if val := counterValue(t, c.RadiusCryptoFailures, "1"); val != 2 {
		t.Errorf("RadiusCryptoFailures = %v, want 2", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
