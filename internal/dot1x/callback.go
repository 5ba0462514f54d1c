package dot1x

import "context"

// FrameSender is the raw EAPOL transport collaborator (spec.md Section 1:
// "the socket/NIC drivers" are out of scope; only this interface is
// specified). Implemented by internal/netio's PAEConn.
type FrameSender interface {
	// SendFrame transmits an EAPOL frame on portIndex (0 for the
	// supplicant's single port) with the given destination MAC.
	SendFrame(ctx context.Context, portIndex int, dstMAC [6]byte, frame []byte) error
}

// RadiusSender is the RADIUS UDP transport collaborator, implemented by
// internal/netio's RadiusConn.
type RadiusSender interface {
	SendRadius(ctx context.Context, packet []byte) error
}

// SwitchPort is the out-of-scope switch driver collaborator named in
// spec.md Section 1 ("the underlying switch driver used to pin the PAE
// group MAC to the CPU port and to set port forwarding state"),
// implemented by internal/switchport.Driver.
type SwitchPort interface {
	InstallPAEGroupFilter(ctx context.Context) error
	RemovePAEGroupFilter(ctx context.Context) error
	SetPortState(ctx context.Context, portIndex int, status PortStatus) error
}
