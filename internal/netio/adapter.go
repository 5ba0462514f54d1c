package netio

import (
	"context"
	"fmt"
)

// -------------------------------------------------------------------------
// dot1x collaborator adapters
// -------------------------------------------------------------------------

// PAEFrameSender adapts a single PAEConn into the dot1x.FrameSender
// interface. The authenticator owns one PAEConn per managed trunk
// interface; portIndex is carried only for logging/metrics since the
// socket itself is not port-scoped (802.1X ports are logical, multiplexed
// over one physical EAPOL socket per interface in the common single-port
// or tagged-VLAN deployment this daemon targets).
type PAEFrameSender struct {
	conn PAEConn
}

// NewPAEFrameSender wraps conn as a dot1x.FrameSender.
func NewPAEFrameSender(conn PAEConn) *PAEFrameSender {
	return &PAEFrameSender{conn: conn}
}

// SendFrame writes frame as an EAPOL payload to dstMAC. portIndex is
// currently unused beyond being accepted for interface conformance; a
// multi-port authenticator binding one socket per switch port would
// route on it instead.
func (s *PAEFrameSender) SendFrame(ctx context.Context, portIndex int, dstMAC [6]byte, frame []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := s.conn.WriteFrame(dstMAC, frame); err != nil {
		return fmt.Errorf("send eapol frame on port %d: %w", portIndex, err)
	}
	return nil
}

// RadiusPacketSender adapts a RadiusConn into the dot1x.RadiusSender
// interface used by the backend authentication state machine.
type RadiusPacketSender struct {
	conn RadiusConn
}

// NewRadiusPacketSender wraps conn as a dot1x.RadiusSender.
func NewRadiusPacketSender(conn RadiusConn) *RadiusPacketSender {
	return &RadiusPacketSender{conn: conn}
}

// SendRadius writes packet to the configured RADIUS server.
func (s *RadiusPacketSender) SendRadius(ctx context.Context, packet []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := s.conn.WritePacket(packet); err != nil {
		return fmt.Errorf("send radius packet: %w", err)
	}
	return nil
}
