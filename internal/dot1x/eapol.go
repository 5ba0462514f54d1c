package dot1x

import (
	"encoding/binary"
	"errors"
)

// -------------------------------------------------------------------------
// EAPOL frame — 802.1X-2004 Section 7.8, spec.md Section 3/4.1
// -------------------------------------------------------------------------

// PacketType is the EAPOL Packet Type field (802.1X-2004 Table 7-3).
type PacketType uint8

const (
	PacketTypeEAP              PacketType = 0
	PacketTypeStart            PacketType = 1
	PacketTypeLogoff           PacketType = 2
	PacketTypeKey              PacketType = 3
	PacketTypeEncapASFAlert    PacketType = 4
	PacketTypeMKA              PacketType = 5
	PacketTypeAnnouncement     PacketType = 6
	PacketTypeAnnouncementReq  PacketType = 7
	PacketTypeAnnouncementResp PacketType = 8
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeEAP:
		return "EAP-Packet"
	case PacketTypeStart:
		return "EAPOL-Start"
	case PacketTypeLogoff:
		return "EAPOL-Logoff"
	case PacketTypeKey:
		return "EAPOL-Key"
	case PacketTypeEncapASFAlert:
		return "EAPOL-Encapsulated-ASF-Alert"
	case PacketTypeMKA:
		return "EAPOL-MKA"
	case PacketTypeAnnouncement:
		return "EAPOL-Announcement"
	case PacketTypeAnnouncementReq:
		return "EAPOL-Announcement-Req"
	case PacketTypeAnnouncementResp:
		return "EAPOL-Announcement-Resp"
	default:
		return "Unknown"
	}
}

// eapolHeaderSize is the fixed EAPOL header size in bytes: protocol
// version (1) + packet type (1) + body length (2).
const eapolHeaderSize = 4

// ProtocolVersion is the EAPOL protocol version written on transmit
// (spec.md Section 4.1: "EAPOL protocolVersion is set to 2 on output").
const ProtocolVersion uint8 = 2

// Sentinel errors for EAPOL decode. Per spec.md Section 7 these are never
// surfaced past the demux boundary; callers increment a counter and drop.
var (
	ErrEAPOLTooShort   = errors.New("dot1x: eapol frame shorter than header")
	ErrEAPOLBadDest    = errors.New("dot1x: eapol frame destination not PAE")
	ErrEAPOLLengthOver = errors.New("dot1x: eapol body length exceeds frame")
)

// EAPOLFrame is a decoded EAPOL PDU (spec.md Section 3).
type EAPOLFrame struct {
	ProtocolVersion uint8
	Type            PacketType
	Body            []byte
}

// DecodeEAPOL parses the EAPOL header out of buf, which must already have
// had the Ethernet header and EtherType stripped. It truncates Body to the
// declared Packet Body Length; if that length exceeds the available bytes
// it returns ErrEAPOLLengthOver and the caller must increment
// eapLengthErrorFramesRx and drop the frame without using Body.
func DecodeEAPOL(buf []byte) (EAPOLFrame, error) {
	if len(buf) < eapolHeaderSize {
		return EAPOLFrame{}, ErrEAPOLTooShort
	}

	f := EAPOLFrame{
		ProtocolVersion: buf[0],
		Type:            PacketType(buf[1]),
	}
	bodyLen := binary.BigEndian.Uint16(buf[2:4])
	avail := buf[eapolHeaderSize:]

	if int(bodyLen) > len(avail) {
		return f, ErrEAPOLLengthOver
	}

	f.Body = avail[:bodyLen]
	return f, nil
}

// EncodeEAPOL serializes f into dst (header + body) using ProtocolVersion
// (spec.md Section 4.1: "EAPOL protocolVersion is set to 2 on output").
// dst must have capacity for eapolHeaderSize+len(f.Body); EncodeEAPOL
// returns the number of bytes written.
func EncodeEAPOL(dst []byte, t PacketType, body []byte) int {
	dst[0] = ProtocolVersion
	dst[1] = byte(t)
	binary.BigEndian.PutUint16(dst[2:4], uint16(len(body)))
	n := copy(dst[eapolHeaderSize:], body)
	return eapolHeaderSize + n
}

// EAPOLEncodedLen returns the total wire length of an EAPOL PDU carrying
// the given body.
func EAPOLEncodedLen(body []byte) int {
	return eapolHeaderSize + len(body)
}

// MatchesPAEDestination reports whether dst is either the PAE group
// address or ownMAC, per spec.md Section 4.1 ("drop frames whose
// destination is neither the PAE group address nor the local PAE
// unicast").
func MatchesPAEDestination(dst, ownMAC [6]byte) bool {
	return dst == PAEGroupMAC || dst == ownMAC
}

// EAPOLStats holds the per-port EAPOL counters named in spec.md Section 4.1.
type EAPOLStats struct {
	FramesRx            uint64
	FramesTx            uint64
	StartFramesRx       uint64
	LogoffFramesRx      uint64
	RespIDFramesRx      uint64
	RespFramesRx        uint64
	ReqIDFramesTx       uint64
	ReqFramesTx         uint64
	InvalidFramesRx     uint64
	LengthErrorFramesRx uint64
	LastFrameVersion    uint8
}
