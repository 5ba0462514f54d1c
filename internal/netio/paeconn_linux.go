//go:build linux

package netio

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// -------------------------------------------------------------------------
// LinuxPAEConn — AF_PACKET EAPOL socket
// -------------------------------------------------------------------------

// ethHeaderLen is the 14-byte Ethernet II header: dst(6) + src(6) + ethertype(2).
const ethHeaderLen = 14

// LinuxPAEConn implements PAEConn using an AF_PACKET raw socket bound to a
// single interface and filtered to EtherType 0x888E (EAPOL), with
// PACKET_ADD_MEMBERSHIP multicast membership in the PAE group address so
// the kernel delivers frames addressed to 01:80:C2:00:00:03 even though
// it is not the interface's own unicast or broadcast address.
type LinuxPAEConn struct {
	fd      int
	ifIndex int
	ifMAC   [6]byte
	mu      sync.Mutex
	closed  bool
}

// htons converts a host-byte-order uint16 to network byte order, as
// required for the AF_PACKET socket protocol argument.
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// NewPAEConn opens an AF_PACKET socket on ifName, filtered to EtherType
// EAPOL, and joins the PAE group multicast membership so both multicast
// and unicast EAPOL frames addressed to this host are delivered.
func NewPAEConn(ifName string) (*LinuxPAEConn, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(EtherTypeEAPOL)))
	if err != nil {
		return nil, fmt.Errorf("open AF_PACKET socket: %w", err)
	}

	ifIndex, ifMAC, err := resolveInterface(ifName)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("resolve interface %s: %w", ifName, err)
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(EtherTypeEAPOL),
		Ifindex:  ifIndex,
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind AF_PACKET socket to %s: %w", ifName, err)
	}

	mreq := unix.PacketMreq{
		Ifindex: int32(ifIndex), //nolint:gosec // ifIndex is a small positive kernel interface index.
		Type:    unix.PACKET_MR_MULTICAST,
		Alen:    6,
	}
	copy(mreq.Address[:6], PAEGroupMAC[:])
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("join PAE group multicast on %s: %w", ifName, err)
	}

	return &LinuxPAEConn{fd: fd, ifIndex: ifIndex, ifMAC: ifMAC}, nil
}

// ReadFrame reads one Ethernet frame, stripping the 14-byte header and
// returning the EAPOL payload plus link-layer metadata.
func (c *LinuxPAEConn) ReadFrame(buf []byte) (int, FrameMeta, error) {
	raw := make([]byte, ethHeaderLen+len(buf))
	n, _, err := unix.Recvfrom(c.fd, raw, 0)
	if err != nil {
		return 0, FrameMeta{}, fmt.Errorf("recvfrom: %w", err)
	}
	if n < ethHeaderLen {
		return 0, FrameMeta{}, fmt.Errorf("frame shorter than ethernet header: %d bytes", n)
	}

	var meta FrameMeta
	copy(meta.DstMAC[:], raw[0:6])
	copy(meta.SrcMAC[:], raw[6:12])
	meta.IfIndex = c.ifIndex

	payload := raw[ethHeaderLen:n]
	copied := copy(buf, payload)
	return copied, meta, nil
}

// WriteFrame sends an Ethernet frame carrying payload with EtherType
// EAPOL to dstMAC.
func (c *LinuxPAEConn) WriteFrame(dstMAC [6]byte, payload []byte) error {
	frame := make([]byte, ethHeaderLen+len(payload))
	copy(frame[0:6], dstMAC[:])
	copy(frame[6:12], c.ifMAC[:])
	binary.BigEndian.PutUint16(frame[12:14], EtherTypeEAPOL)
	copy(frame[ethHeaderLen:], payload)

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(EtherTypeEAPOL),
		Ifindex:  c.ifIndex,
		Halen:    6,
	}
	copy(sa.Addr[:6], dstMAC[:])

	if err := unix.Sendto(c.fd, frame, 0, sa); err != nil {
		return fmt.Errorf("sendto: %w", err)
	}
	return nil
}

// Close releases the underlying socket.
func (c *LinuxPAEConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := unix.Close(c.fd); err != nil {
		return fmt.Errorf("close AF_PACKET socket: %w", err)
	}
	return nil
}

// resolveInterface looks up an interface's kernel index and hardware
// address by name.
func resolveInterface(ifName string) (int, [6]byte, error) {
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return 0, [6]byte{}, fmt.Errorf("lookup interface %s: %w", ifName, err)
	}
	var mac [6]byte
	copy(mac[:], iface.HardwareAddr)
	return iface.Index, mac, nil
}
