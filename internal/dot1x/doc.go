// Package dot1x implements the core of IEEE 802.1X Port-Based Network
// Access Control (802.1X-2004/2010) and the EAP state machines of RFC 4137:
// the authenticator's per-port PAE, backend-authentication and reauth-timer
// FSMs, the supplicant's PAE and backend FSMs, the shared EAP
// full-authenticator and EAP peer FSMs, the EAPOL frame codec, and the
// RADIUS Access-Request builder / Access-Accept|Reject|Challenge validator.
//
// Sockets, the switch driver, the TLS stack, and configuration plumbing are
// external collaborators; this package only defines the interfaces it needs
// from them (FrameSender, RadiusSender, SwitchPort).
package dot1x

import "errors"

// PAEGroupMAC is the 802.1X PAE group destination address (802.1X-2004
// Section 7.8), used for all outbound EAPOL frames and installed on the
// CPU-forwarding port by the switch driver.
var PAEGroupMAC = [6]byte{0x01, 0x80, 0xC2, 0x00, 0x00, 0x03}

// EtherTypeEAPOL is the registered EtherType for EAPOL (802.1X-2004
// Section 7.8).
const EtherTypeEAPOL uint16 = 0x888E

// Sentinel errors shared across the package. Protocol-parse errors are
// never returned to callers in the hot path (the offending frame is
// dropped and a counter incremented instead); these are used only for
// management-surface and configuration-boundary failures.
var (
	ErrInvalidPort    = errors.New("dot1x: invalid port index")
	ErrWrongValue     = errors.New("dot1x: value out of range")
	ErrNotRunning     = errors.New("dot1x: context not running")
	ErrAlreadyRunning = errors.New("dot1x: context already running")
	ErrIDExhausted    = errors.New("dot1x: no free radius identifier")
	ErrNoMethod       = errors.New("dot1x: no acceptable eap method")
)
