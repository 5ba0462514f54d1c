// Package dot1xmetrics exposes Prometheus counters and gauges for the
// 802.1X authenticator and supplicant daemons.
package dot1xmetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "go8021x"
	subsystem = "port"
)

// Label names for per-port metrics.
const (
	labelPort   = "port"
	labelStatus = "status"
	labelCause  = "cause"
)

// -------------------------------------------------------------------------
// Collector — Prometheus 802.1X Metrics
// -------------------------------------------------------------------------

// Collector holds all 802.1X Prometheus metrics (spec.md Section 4.1 EAPOL
// counters and SPEC_FULL.md Section 6's supplemented MIB counters:
// dot1xAuthEntersConnecting, dot1xAuthEapLogoffsWhileConnecting,
// dot1xAuthAaaTimeout, and friends).
type Collector struct {
	// PortStatus tracks authPortStatus per port: 1 if Authorized, 0 if
	// Unauthorized (invariant 5 of spec.md Section 8).
	PortStatus *prometheus.GaugeVec

	// EAPOLFramesRx/Tx count EAPOL frames by type, per port.
	EAPOLFramesRx *prometheus.CounterVec
	EAPOLFramesTx *prometheus.CounterVec

	// EAPOLInvalidFrames counts frames dropped for a bad destination
	// address or protocol version (spec.md Section 4.1).
	EAPOLInvalidFrames *prometheus.CounterVec

	// EAPOLLengthErrors counts frames dropped for Packet Body Length
	// exceeding the received body (spec.md Section 8 testable property).
	EAPOLLengthErrors *prometheus.CounterVec

	// AuthSessions counts PAE FSM transitions into CONNECTING and
	// AUTHENTICATING, labeled per port.
	AuthEntersConnecting     *prometheus.CounterVec
	AuthEntersAuthenticating *prometheus.CounterVec

	// AuthOutcomes counts terminal authentication outcomes per port.
	AuthSuccesses *prometheus.CounterVec
	AuthFailures  *prometheus.CounterVec
	AuthReauths   *prometheus.CounterVec

	// SessionTerminations counts PAE sessions ending, labeled by
	// sessionTerminateCause (spec.md Section 4.4).
	SessionTerminations *prometheus.CounterVec

	// RadiusRetransWhile counts RADIUS request retransmissions awaiting
	// an AAA reply, per port.
	RadiusRetransWhile *prometheus.CounterVec

	// RadiusAAATimeouts counts full-authenticator FSM AAA_TIMEOUT events
	// per port.
	RadiusAAATimeouts *prometheus.CounterVec

	// RadiusCryptoFailures counts Message-Authenticator or Response
	// Authenticator verification failures per port (spec.md Section 4.9).
	RadiusCryptoFailures *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.PortStatus,
		c.EAPOLFramesRx,
		c.EAPOLFramesTx,
		c.EAPOLInvalidFrames,
		c.EAPOLLengthErrors,
		c.AuthEntersConnecting,
		c.AuthEntersAuthenticating,
		c.AuthSuccesses,
		c.AuthFailures,
		c.AuthReauths,
		c.SessionTerminations,
		c.RadiusRetransWhile,
		c.RadiusAAATimeouts,
		c.RadiusCryptoFailures,
	)

	return c
}

func newMetrics() *Collector {
	portLabels := []string{labelPort}
	statusLabels := []string{labelPort, labelStatus}
	causeLabels := []string{labelPort, labelCause}
	frameLabels := []string{labelPort, "type"}

	return &Collector{
		PortStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "status", Help: "authPortStatus per port (1=Authorized, 0=Unauthorized).",
		}, statusLabels),

		EAPOLFramesRx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "eapol_frames_received_total", Help: "EAPOL frames received, by port and frame type.",
		}, frameLabels),

		EAPOLFramesTx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "eapol_frames_sent_total", Help: "EAPOL frames transmitted, by port and frame type.",
		}, frameLabels),

		EAPOLInvalidFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "eapol_invalid_frames_total", Help: "EAPOL frames dropped for bad destination or version.",
		}, portLabels),

		EAPOLLengthErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "eapol_length_error_frames_total", Help: "EAPOL frames dropped for Packet Body Length exceeding received bytes.",
		}, portLabels),

		AuthEntersConnecting: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "auth_enters_connecting_total", Help: "Authenticator PAE FSM transitions into CONNECTING.",
		}, portLabels),

		AuthEntersAuthenticating: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "auth_enters_authenticating_total", Help: "Authenticator PAE FSM transitions into AUTHENTICATING.",
		}, portLabels),

		AuthSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "auth_successes_total", Help: "Authentication successes while AUTHENTICATING.",
		}, portLabels),

		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "auth_failures_total", Help: "Authentication failures while AUTHENTICATING.",
		}, portLabels),

		AuthReauths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "auth_reauths_total", Help: "Reauthentications while AUTHENTICATED.",
		}, portLabels),

		SessionTerminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "session_terminations_total", Help: "PAE sessions ended, labeled by sessionTerminateCause.",
		}, causeLabels),

		RadiusRetransWhile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "radius_retransmissions_total", Help: "RADIUS Access-Request retransmissions awaiting an AAA reply.",
		}, portLabels),

		RadiusAAATimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "radius_aaa_timeouts_total", Help: "Full-authenticator FSM AAA_TIMEOUT events.",
		}, portLabels),

		RadiusCryptoFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "radius_crypto_failures_total", Help: "Message-Authenticator or Response Authenticator verification failures.",
		}, portLabels),
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func portLabel(portIndex int) string { return strconv.Itoa(portIndex) }

// SetPortStatus records the current authPortStatus for a port.
func (c *Collector) SetPortStatus(portIndex int, authorized bool) {
	c.PortStatus.WithLabelValues(portLabel(portIndex), "current").Set(boolToFloat(authorized))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// IncEAPOLFramesRx increments the received-frame counter for a port and
// frame type.
func (c *Collector) IncEAPOLFramesRx(portIndex int, frameType string) {
	c.EAPOLFramesRx.WithLabelValues(portLabel(portIndex), frameType).Inc()
}

// IncEAPOLFramesTx increments the transmitted-frame counter for a port
// and frame type.
func (c *Collector) IncEAPOLFramesTx(portIndex int, frameType string) {
	c.EAPOLFramesTx.WithLabelValues(portLabel(portIndex), frameType).Inc()
}

// IncEAPOLInvalidFrames increments the invalid-frame counter for a port.
func (c *Collector) IncEAPOLInvalidFrames(portIndex int) {
	c.EAPOLInvalidFrames.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncEAPOLLengthErrors increments the length-error counter for a port.
func (c *Collector) IncEAPOLLengthErrors(portIndex int) {
	c.EAPOLLengthErrors.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncAuthEntersConnecting increments the CONNECTING-entry counter.
func (c *Collector) IncAuthEntersConnecting(portIndex int) {
	c.AuthEntersConnecting.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncAuthEntersAuthenticating increments the AUTHENTICATING-entry counter.
func (c *Collector) IncAuthEntersAuthenticating(portIndex int) {
	c.AuthEntersAuthenticating.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncAuthSuccesses increments the authentication-success counter.
func (c *Collector) IncAuthSuccesses(portIndex int) {
	c.AuthSuccesses.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncAuthFailures increments the authentication-failure counter.
func (c *Collector) IncAuthFailures(portIndex int) {
	c.AuthFailures.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncAuthReauths increments the reauthentication counter.
func (c *Collector) IncAuthReauths(portIndex int) {
	c.AuthReauths.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncSessionTermination increments the termination-cause counter.
func (c *Collector) IncSessionTermination(portIndex int, cause string) {
	c.SessionTerminations.WithLabelValues(portLabel(portIndex), cause).Inc()
}

// IncRadiusRetransWhile increments the RADIUS retransmission counter.
func (c *Collector) IncRadiusRetransWhile(portIndex int) {
	c.RadiusRetransWhile.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncRadiusAAATimeout increments the AAA timeout counter.
func (c *Collector) IncRadiusAAATimeout(portIndex int) {
	c.RadiusAAATimeouts.WithLabelValues(portLabel(portIndex)).Inc()
}

// IncRadiusCryptoFailure increments the RADIUS crypto-verification
// failure counter.
func (c *Collector) IncRadiusCryptoFailure(portIndex int) {
	c.RadiusCryptoFailures.WithLabelValues(portLabel(portIndex)).Inc()
}
