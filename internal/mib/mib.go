// Package mib binds the "SNMP/MIB bindings" collaborator named as out of
// scope by spec.md Section 1 to the object names of RFC 2856 (IEEE
// 802.1X PAE MIB): it does not implement an SNMP agent, only the stable
// object-name vocabulary and a read-only per-port snapshot used by
// internal/server and internal/metrics so both surfaces report the same
// counters under the same names.
package mib

import "github.com/go8021x/go8021x/internal/dot1x"

// CounterName identifies one dot1xAuthConfigTable/dot1xAuthStatsTable
// object from RFC 2856.
type CounterName string

// Counter object names from RFC 2856's dot1xAuthStatsTable and
// dot1xAuthDiagTable, reused verbatim so operators already familiar with
// a commercial switch's MIB walk recognize the same names here.
const (
	EapolFramesRx            CounterName = "dot1xAuthEapolFramesRx"
	EapolFramesTx            CounterName = "dot1xAuthEapolFramesTx"
	EapolStartFramesRx       CounterName = "dot1xAuthEapolStartFramesRx"
	EapolLogoffFramesRx      CounterName = "dot1xAuthEapolLogoffFramesRx"
	EapolRespIdFramesRx      CounterName = "dot1xAuthEapolRespIdFramesRx"
	EapolRespFramesRx        CounterName = "dot1xAuthEapolRespFramesRx"
	EapolReqIdFramesTx       CounterName = "dot1xAuthEapolReqIdFramesTx"
	EapolReqFramesTx         CounterName = "dot1xAuthEapolReqFramesTx"
	EapolInvalidFramesRx     CounterName = "dot1xAuthInvalidEapolFramesRx"
	EapolLengthErrorFramesRx CounterName = "dot1xAuthEapLengthErrorFramesRx"
	AuthEntersConnecting     CounterName = "dot1xAuthEntersConnecting"
	AuthEntersAuthenticating CounterName = "dot1xAuthEntersAuthenticating"
	AuthSuccessWhileAuth     CounterName = "dot1xAuthAuthSuccessesWhileAuthenticating"
	AuthFailWhileAuth        CounterName = "dot1xAuthAuthFailWhileAuthenticating"
	AuthReauthsWhileAuth     CounterName = "dot1xAuthReauthsWhileAuthenticated"
	AuthRetransWhile         CounterName = "dot1xAuthBackendRetransWhile"
	AuthAaaTimeout           CounterName = "dot1xAuthAaaTimeout"
)

// AllCounterNames enumerates every CounterName, in the order a table-walk
// would present the dot1xAuthStatsTable.
var AllCounterNames = []CounterName{
	EapolFramesRx, EapolFramesTx, EapolStartFramesRx, EapolLogoffFramesRx,
	EapolRespIdFramesRx, EapolRespFramesRx, EapolReqIdFramesTx, EapolReqFramesTx,
	EapolInvalidFramesRx, EapolLengthErrorFramesRx,
	AuthEntersConnecting, AuthEntersAuthenticating,
	AuthSuccessWhileAuth, AuthFailWhileAuth, AuthReauthsWhileAuth,
	AuthRetransWhile, AuthAaaTimeout,
}

// PortSnapshot is a read-only, RFC 2856-shaped view of one authenticator
// port's MIB state.
type PortSnapshot struct {
	PortIndex int
	PAEState  string
	Status    string
	Counters  map[CounterName]uint64
}

// Snapshot builds a PortSnapshot from a live authenticator port.
func Snapshot(p *dot1x.Port) PortSnapshot {
	return fromCounters(p.Index, p.PAE.State.String(), p.PAE.AuthPortStatus, p.Counters)
}

// FromContextSnapshot builds a PortSnapshot from a dot1x.Context.Snapshot
// entry, used by internal/server which only holds the lock-protected
// read-only view, never the live *dot1x.Port.
func FromContextSnapshot(ps dot1x.PortSnapshot) PortSnapshot {
	return fromCounters(ps.Index, ps.PAEState.String(), ps.AuthPortStatus, ps.Counters)
}

func fromCounters(portIndex int, state string, status dot1x.PortStatus, c dot1x.PortCounters) PortSnapshot {
	return PortSnapshot{
		PortIndex: portIndex,
		PAEState:  state,
		Status:    portStatusName(status),
		Counters: map[CounterName]uint64{
			EapolFramesRx:            c.FramesRx,
			EapolFramesTx:            c.FramesTx,
			EapolStartFramesRx:       c.StartFramesRx,
			EapolLogoffFramesRx:      c.LogoffFramesRx,
			EapolRespIdFramesRx:      c.RespIDFramesRx,
			EapolRespFramesRx:        c.RespFramesRx,
			EapolReqIdFramesTx:       c.ReqIDFramesTx,
			EapolReqFramesTx:         c.ReqFramesTx,
			EapolInvalidFramesRx:     c.InvalidFramesRx,
			EapolLengthErrorFramesRx: c.LengthErrorFramesRx,
			AuthEntersConnecting:     c.AuthEntersConnecting,
			AuthEntersAuthenticating: c.AuthEntersAuthenticating,
			AuthSuccessWhileAuth:     c.AuthSuccessesWhileAuthenticating,
			AuthFailWhileAuth:        c.AuthFailuresWhileAuthenticating,
			AuthReauthsWhileAuth:     c.AuthReauthsWhileAuthenticated,
			AuthRetransWhile:         c.RadiusRetransWhile,
			AuthAaaTimeout:           c.RadiusAAATimeouts,
		},
	}
}

func portStatusName(s dot1x.PortStatus) string {
	if s == dot1x.PortStatusAuthorized {
		return "authorized"
	}
	return "unauthorized"
}
