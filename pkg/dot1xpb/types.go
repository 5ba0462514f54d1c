package dot1xpb

import "time"

// PortState is the wire enum for a port's PAE authorization outcome
// (spec.md Section 4.4).
type PortState int32

const (
	PortStateUnspecified PortState = iota
	PortStateUnauthorized
	PortStateAuthorized
)

func (s PortState) String() string {
	switch s {
	case PortStateUnauthorized:
		return "UNAUTHORIZED"
	case PortStateAuthorized:
		return "AUTHORIZED"
	default:
		return "UNSPECIFIED"
	}
}

// PortControlMode is the wire enum for the administrative PortControl
// setting (spec.md Section 3).
type PortControlMode int32

const (
	PortControlUnspecified PortControlMode = iota
	PortControlForceUnauthorized
	PortControlForceAuthorized
	PortControlAuto
)

func (m PortControlMode) String() string {
	switch m {
	case PortControlForceUnauthorized:
		return "FORCE_UNAUTHORIZED"
	case PortControlForceAuthorized:
		return "FORCE_AUTHORIZED"
	case PortControlAuto:
		return "AUTO"
	default:
		return "UNSPECIFIED"
	}
}

// CommitPhase distinguishes a dry-run validation pass from a committed
// write, mirroring `authenticatorMgmtSet*(..., commit)` in the original
// CycloneEAP source.
type CommitPhase int32

const (
	CommitPhaseUnspecified CommitPhase = iota
	CommitPhaseVerifyOnly
	CommitPhaseCommit
)

// Port is the wire representation of one authenticator port, combining
// PAE state with its RFC 2856 MIB counters.
type Port struct {
	Index        int           `json:"index"`
	PAEState     string        `json:"pae_state"`
	Status       PortState     `json:"status"`
	PortControl  PortControlMode `json:"port_control"`
	SupplicantMAC string       `json:"supplicant_mac,omitempty"`
	Counters     map[string]uint64 `json:"counters"`
}

// ListPortsRequest has no fields; every port is always listed.
type ListPortsRequest struct{}

// ListPortsResponse returns every managed port.
type ListPortsResponse struct {
	Ports []*Port `json:"ports"`
}

// GetPortRequest identifies a single port by its 1-based index.
type GetPortRequest struct {
	Index int `json:"index"`
}

// GetPortResponse returns the requested port.
type GetPortResponse struct {
	Port *Port `json:"port"`
}

// SetPortRequest changes a port's administrative PortControl, two-phase
// per SPEC_FULL.md Section 4.12.
type SetPortRequest struct {
	Index       int             `json:"index"`
	PortControl PortControlMode `json:"port_control"`
	Phase       CommitPhase     `json:"phase"`
}

// SetPortResponse returns the port as it stands after the request (for a
// CommitPhaseVerifyOnly request, as it WOULD stand).
type SetPortResponse struct {
	Port *Port `json:"port"`
}

// WatchPortEventsRequest optionally requests the current state of every
// port as synthetic "added" events before streaming live changes.
type WatchPortEventsRequest struct {
	IncludeCurrent bool `json:"include_current"`
}

// PortEventType distinguishes why a PortEvent was emitted.
type PortEventType int32

const (
	PortEventUnspecified PortEventType = iota
	PortEventCurrent
	PortEventStateChange
)

func (t PortEventType) String() string {
	switch t {
	case PortEventCurrent:
		return "CURRENT"
	case PortEventStateChange:
		return "STATE_CHANGE"
	default:
		return "UNSPECIFIED"
	}
}

// PortEvent is one message of the WatchPortEvents stream.
type PortEvent struct {
	Type          PortEventType `json:"type"`
	Port          *Port         `json:"port"`
	PreviousState string        `json:"previous_state,omitempty"`
	Cause         string        `json:"cause,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}
