package dot1x

import (
	"encoding/binary"
	"errors"
)

// -------------------------------------------------------------------------
// RADIUS packet — RFC 2865/2869/3579, spec.md Section 3/4.8/4.9
// -------------------------------------------------------------------------

// RadiusCode is the RADIUS packet Code field (RFC 2865 Section 3).
// Only the codes named in spec.md Section 3 are handled; others are
// rejected by the validator.
type RadiusCode uint8

const (
	RadiusCodeAccessRequest   RadiusCode = 1
	RadiusCodeAccessAccept    RadiusCode = 2
	RadiusCodeAccessReject    RadiusCode = 3
	RadiusCodeAccessChallenge RadiusCode = 11
)

func (c RadiusCode) String() string {
	switch c {
	case RadiusCodeAccessRequest:
		return "Access-Request"
	case RadiusCodeAccessAccept:
		return "Access-Accept"
	case RadiusCodeAccessReject:
		return "Access-Reject"
	case RadiusCodeAccessChallenge:
		return "Access-Challenge"
	default:
		return "Unknown"
	}
}

// RadiusAttrType is the RADIUS attribute Type field (RFC 2865 Section 5).
type RadiusAttrType uint8

const (
	AttrUserName           RadiusAttrType = 1
	AttrNASIPAddress       RadiusAttrType = 4
	AttrNASPort            RadiusAttrType = 5
	AttrServiceType        RadiusAttrType = 6
	AttrFramedMTU          RadiusAttrType = 12
	AttrState              RadiusAttrType = 24
	AttrCalledStationID    RadiusAttrType = 30
	AttrCallingStationID   RadiusAttrType = 31
	AttrNASPortType        RadiusAttrType = 61
	AttrEAPMessage         RadiusAttrType = 79
	AttrMessageAuthenticator RadiusAttrType = 80
	AttrNASPortID          RadiusAttrType = 87
	AttrNASIPv6Address     RadiusAttrType = 95
)

// ServiceTypeFramed is RFC 2865 Section 5.6 value 2 ("Framed").
const ServiceTypeFramed uint32 = 2

// NASPortTypeEthernet is RFC 2865 Section 5.41 value 15.
const NASPortTypeEthernet uint32 = 15

// FramedMTU is the EAP fragment cap used by the request builder
// (spec.md Section 4.8: "Framed-MTU=1000 (the EAP fragment cap)").
const FramedMTU uint32 = 1000

// radiusHeaderSize is Code(1)+Identifier(1)+Length(2)+Authenticator(16).
const radiusHeaderSize = 20

// maxAttrValueLen is the maximum attribute value length (RFC 2865
// Section 5: 2-byte type+length header, value <= 253 bytes).
const maxAttrValueLen = 253

// Sentinel errors for RADIUS decode (spec.md Section 8: "A RADIUS packet
// whose declared Length < 20, or > received bytes, is dropped").
var (
	ErrRadiusTooShort  = errors.New("dot1x: radius packet shorter than header")
	ErrRadiusBadLength = errors.New("dot1x: radius declared length exceeds received bytes")
)

// RadiusAttr is a single decoded RADIUS attribute (TLV).
type RadiusAttr struct {
	Type  RadiusAttrType
	Value []byte
}

// RadiusPacket is a decoded RADIUS packet (spec.md Section 3).
type RadiusPacket struct {
	Code          RadiusCode
	Identifier    uint8
	Authenticator [16]byte
	Attrs         []RadiusAttr
}

// DecodeRadius parses buf as a RADIUS packet. It truncates to the declared
// Length and rejects packets shorter than the 20-byte header or whose
// declared Length exceeds len(buf), per spec.md Section 8.
func DecodeRadius(buf []byte) (RadiusPacket, error) {
	if len(buf) < radiusHeaderSize {
		return RadiusPacket{}, ErrRadiusTooShort
	}

	length := int(binary.BigEndian.Uint16(buf[2:4]))
	if length < radiusHeaderSize || length > len(buf) {
		return RadiusPacket{}, ErrRadiusBadLength
	}
	buf = buf[:length]

	p := RadiusPacket{
		Code:       RadiusCode(buf[0]),
		Identifier: buf[1],
	}
	copy(p.Authenticator[:], buf[4:20])

	rest := buf[radiusHeaderSize:]
	for len(rest) >= 2 {
		t := RadiusAttrType(rest[0])
		l := int(rest[1])
		if l < 2 || l > len(rest) {
			break
		}
		p.Attrs = append(p.Attrs, RadiusAttr{Type: t, Value: rest[2:l]})
		rest = rest[l:]
	}

	return p, nil
}

// Find returns the value of the first attribute of type t, and whether it
// was present.
func (p RadiusPacket) Find(t RadiusAttrType) ([]byte, bool) {
	for _, a := range p.Attrs {
		if a.Type == t {
			return a.Value, true
		}
	}
	return nil, false
}

// EAPMessage concatenates the value fields of every EAP-Message attribute
// in order, reconstructing the original EAP packet (spec.md Section 4.9:
// "Concatenate the value fields of all EAP-Message attributes in order").
func (p RadiusPacket) EAPMessage() []byte {
	var out []byte
	for _, a := range p.Attrs {
		if a.Type == AttrEAPMessage {
			out = append(out, a.Value...)
		}
	}
	return out
}

// RadiusBuilder incrementally assembles a RADIUS packet for encoding.
// Grounded on the append-attribute, then-fixup-length pattern required by
// spec.md Section 4.8's ordered attribute list.
type RadiusBuilder struct {
	code          RadiusCode
	id            uint8
	authenticator [16]byte
	buf           []byte
}

// NewRadiusBuilder starts a new packet with an empty attribute list and
// the fixed 20-byte header reserved.
func NewRadiusBuilder(code RadiusCode, id uint8, authenticator [16]byte) *RadiusBuilder {
	b := &RadiusBuilder{code: code, id: id, authenticator: authenticator}
	b.buf = make([]byte, radiusHeaderSize, 512)
	return b
}

// AddAttr appends a single TLV attribute. value must be <= 253 bytes;
// longer values must be split by the caller (as EAP-Message fragments are).
func (b *RadiusBuilder) AddAttr(t RadiusAttrType, value []byte) {
	if len(value) > maxAttrValueLen {
		value = value[:maxAttrValueLen]
	}
	b.buf = append(b.buf, byte(t), byte(len(value)+2))
	b.buf = append(b.buf, value...)
}

// AddEAPMessage splits data into <=253-byte EAP-Message attributes and
// appends them in order (spec.md Section 4.8: "one or more EAP-Message
// attributes, each carrying <=253 bytes ... split in order and contiguous").
func (b *RadiusBuilder) AddEAPMessage(data []byte) {
	if len(data) == 0 {
		b.AddAttr(AttrEAPMessage, nil)
		return
	}
	for len(data) > 0 {
		n := len(data)
		if n > maxAttrValueLen {
			n = maxAttrValueLen
		}
		b.AddAttr(AttrEAPMessage, data[:n])
		data = data[n:]
	}
}

// Uint32Attr encodes a 4-byte big-endian integer attribute value.
func Uint32Attr(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// Finish writes the header (code, id, length, authenticator) and returns
// the complete packet bytes. It does not compute Message-Authenticator or
// the Response Authenticator; callers apply those afterward via
// radiusauth.go so the HMAC/MD5 is computed over the final bytes.
func (b *RadiusBuilder) Finish() []byte {
	binary.BigEndian.PutUint16(b.buf[2:4], uint16(len(b.buf)))
	b.buf[0] = byte(b.code)
	b.buf[1] = b.id
	copy(b.buf[4:20], b.authenticator[:])
	return b.buf
}

// MessageAuthenticatorOffset locates the value-field offset of the first
// Message-Authenticator attribute in a built packet, or -1 if absent. Used
// to zero the field before HMAC and to overwrite it afterward.
func MessageAuthenticatorOffset(packet []byte) int {
	rest := packet[radiusHeaderSize:]
	off := radiusHeaderSize
	for len(rest) >= 2 {
		t := RadiusAttrType(rest[0])
		l := int(rest[1])
		if l < 2 || l > len(rest) {
			return -1
		}
		if t == AttrMessageAuthenticator {
			return off + 2
		}
		rest = rest[l:]
		off += l
	}
	return -1
}
