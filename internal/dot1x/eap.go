package dot1x

import (
	"encoding/binary"
	"errors"
)

// -------------------------------------------------------------------------
// EAP packet — RFC 3748 Section 4, spec.md Section 3
// -------------------------------------------------------------------------

// Code is the EAP Code field (RFC 3748 Section 4.1).
type Code uint8

const (
	CodeRequest  Code = 1
	CodeResponse Code = 2
	CodeSuccess  Code = 3
	CodeFailure  Code = 4
)

func (c Code) String() string {
	switch c {
	case CodeRequest:
		return "Request"
	case CodeResponse:
		return "Response"
	case CodeSuccess:
		return "Success"
	case CodeFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// MethodType is the EAP Type field, present only on Request/Response
// (RFC 3748 Section 5).
type MethodType uint8

const (
	MethodIdentity     MethodType = 1
	MethodNotification MethodType = 2
	MethodNak          MethodType = 3 // Legacy Nak, response-only
	MethodMD5Challenge MethodType = 4
	MethodTLS          MethodType = 13
)

func (m MethodType) String() string {
	switch m {
	case MethodIdentity:
		return "Identity"
	case MethodNotification:
		return "Notification"
	case MethodNak:
		return "Nak"
	case MethodMD5Challenge:
		return "MD5-Challenge"
	case MethodTLS:
		return "TLS"
	default:
		return "Unknown"
	}
}

// eapHeaderSize is Code(1) + Identifier(1) + Length(2).
const eapHeaderSize = 4

// ErrEAPTooShort indicates a packet shorter than the minimum EAP header,
// or one whose Length field does not include the Type byte when required.
// Per spec.md Section 7 this is never surfaced past the demux boundary.
var ErrEAPTooShort = errors.New("dot1x: eap packet shorter than header")

// Packet is a decoded EAP packet (spec.md Section 3).
//
// Length is authoritative; per spec.md Section 3 "octets beyond it are
// link-layer padding and ignored" — TypeData is truncated to Length on
// decode.
type Packet struct {
	Code       Code
	Identifier uint8
	Type       MethodType // valid only when Code is Request or Response
	TypeData   []byte
}

// DecodePacket parses buf as an EAP packet. buf is the EAPOL body with no
// further framing. Length is authoritative over len(buf); a declared
// length shorter than the header, or than the minimum required for a
// Request/Response with a Type byte, is rejected.
func DecodePacket(buf []byte) (Packet, error) {
	if len(buf) < eapHeaderSize {
		return Packet{}, ErrEAPTooShort
	}

	p := Packet{
		Code:       Code(buf[0]),
		Identifier: buf[1],
	}
	length := int(binary.BigEndian.Uint16(buf[2:4]))
	if length > len(buf) {
		length = len(buf)
	}

	switch p.Code {
	case CodeRequest, CodeResponse:
		if length < eapHeaderSize+1 {
			return Packet{}, ErrEAPTooShort
		}
		p.Type = MethodType(buf[4])
		p.TypeData = buf[eapHeaderSize+1 : length]
	default:
		p.TypeData = nil
	}

	return p, nil
}

// EncodeRequestResponse serializes a Request or Response EAP packet into
// dst, returning the number of bytes written. dst must have capacity for
// eapHeaderSize+1+len(typeData).
func EncodeRequestResponse(dst []byte, code Code, id uint8, typ MethodType, typeData []byte) int {
	length := eapHeaderSize + 1 + len(typeData)
	dst[0] = byte(code)
	dst[1] = id
	binary.BigEndian.PutUint16(dst[2:4], uint16(length))
	dst[4] = byte(typ)
	copy(dst[5:], typeData)
	return length
}

// EncodeSuccessFailure serializes a Success or Failure EAP packet (no
// Type field, no body — RFC 3748 Section 4.2/4.3: length is always 4).
func EncodeSuccessFailure(dst []byte, code Code, id uint8) int {
	dst[0] = byte(code)
	dst[1] = id
	binary.BigEndian.PutUint16(dst[2:4], uint16(eapHeaderSize))
	return eapHeaderSize
}

// RequestResponseLen returns the wire length of a Request/Response
// carrying typeData.
func RequestResponseLen(typeData []byte) int {
	return eapHeaderSize + 1 + len(typeData)
}

// nextID advances a port/peer EAP identifier per spec.md Section 4.3:
// "from sentinel 'none' produces 0, otherwise (id+1) mod 256".
// hasCur is false when cur represents the sentinel "none".
func nextID(cur uint8, hasCur bool) uint8 {
	if !hasCur {
		return 0
	}
	return uint8((int(cur) + 1) % 256)
}
