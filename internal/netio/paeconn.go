package netio

import (
	"context"
	"errors"
	"net/netip"
)

// -------------------------------------------------------------------------
// EAPOL transport — 802.1X-2004 Section 7.1, spec.md Section 1/4.1
// -------------------------------------------------------------------------

// EtherTypeEAPOL is the EAPOL EtherType (802.1X-2004 Section 7.1).
const EtherTypeEAPOL uint16 = 0x888E

// PAEGroupMAC is the 802.1X PAE group address (802.1X-2004 Section 7.1,
// Table 7-1): 01:80:C2:00:00:03.
var PAEGroupMAC = [6]byte{0x01, 0x80, 0xC2, 0x00, 0x00, 0x03}

// ErrSocketClosed indicates an operation on a closed socket.
var ErrSocketClosed = errors.New("dot1x/netio: socket closed")

// FrameMeta is the link-layer metadata attached to a received EAPOL
// frame.
type FrameMeta struct {
	SrcMAC  [6]byte
	DstMAC  [6]byte
	IfIndex int
}

// PAEConn abstracts sending and receiving EAPOL frames on the PAE group
// MAC. Implementations bind an AF_PACKET socket to a single interface and
// join the PAE group multicast membership so frames addressed to
// 01:80:C2:00:00:03 are delivered without being forwarded further by the
// bridge (802.1X-2004 Section 7.1: the PAE address is in the
// "Reserved for future standardization" range bridges must not relay).
type PAEConn interface {
	// ReadFrame reads a single Ethernet frame (EAPOL EtherType only;
	// others are filtered by the BPF/socket filter where supported) into
	// buf, returning the payload length after the 14-byte Ethernet header
	// and link-layer metadata.
	ReadFrame(buf []byte) (n int, meta FrameMeta, err error)

	// WriteFrame sends an EAPOL frame with the given destination MAC
	// (PAEGroupMAC for multicast, or a learned supplicant unicast MAC).
	// payload is the EAPOL PDU (no Ethernet header).
	WriteFrame(dstMAC [6]byte, payload []byte) error

	// Close releases the underlying socket.
	Close() error
}

// RadiusConn abstracts the authenticator's RADIUS UDP client socket.
type RadiusConn interface {
	// ReadPacket reads a single RADIUS response datagram into buf.
	ReadPacket(buf []byte) (n int, from netip.AddrPort, err error)

	// WritePacket sends a RADIUS request datagram to the configured
	// server address.
	WritePacket(buf []byte) error

	Close() error
}
