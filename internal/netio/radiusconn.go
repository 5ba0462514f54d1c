package netio

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
)

// -------------------------------------------------------------------------
// RADIUS client socket — RFC 2865 Section 2
// -------------------------------------------------------------------------

// UDPRadiusConn implements RadiusConn over a connected UDP socket to a
// single RADIUS server (spec.md Section 4.8: the authenticator acts as a
// RADIUS client in pass-through mode).
type UDPRadiusConn struct {
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

// DialRadiusConn opens a UDP socket connected to serverAddr (host:port,
// conventionally port 1812).
func DialRadiusConn(serverAddr string) (*UDPRadiusConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve radius server %s: %w", serverAddr, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial radius server %s: %w", serverAddr, err)
	}

	return &UDPRadiusConn{conn: conn}, nil
}

// ReadPacket reads a single RADIUS response datagram.
func (c *UDPRadiusConn) ReadPacket(buf []byte) (int, netip.AddrPort, error) {
	n, addr, err := c.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return 0, netip.AddrPort{}, fmt.Errorf("read radius packet: %w", err)
	}
	return n, addr, nil
}

// WritePacket sends a RADIUS request datagram to the connected server.
func (c *UDPRadiusConn) WritePacket(buf []byte) error {
	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("write radius packet: %w", err)
	}
	return nil
}

// Close releases the underlying socket.
func (c *UDPRadiusConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close radius socket: %w", err)
	}
	return nil
}
