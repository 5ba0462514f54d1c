package dot1x

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // RFC 2865/3579 mandate MD5/HMAC-MD5 on the wire.
	"crypto/subtle"
)

// -------------------------------------------------------------------------
// RADIUS authenticator cryptography — RFC 2104, RFC 3579 Section 3.2,
// spec.md Section 4.8/4.9
// -------------------------------------------------------------------------

const messageAuthenticatorLen = 16

// SignMessageAuthenticator computes the HMAC-MD5 Message-Authenticator
// over packet (with the Message-Authenticator value field zeroed, per
// spec.md Section 3: "computed over the full packet with that attribute's
// value field zeroed") and writes the result in place at the attribute's
// value offset. off must be the offset returned by
// MessageAuthenticatorOffset; it is a no-op if off < 0.
func SignMessageAuthenticator(packet []byte, off int, secret []byte) {
	if off < 0 || off+messageAuthenticatorLen > len(packet) {
		return
	}

	for i := range messageAuthenticatorLen {
		packet[off+i] = 0
	}

	mac := hmac.New(md5.New, secret)
	mac.Write(packet)
	sum := mac.Sum(nil)
	copy(packet[off:off+messageAuthenticatorLen], sum)
}

// VerifyMessageAuthenticator recomputes the HMAC-MD5 Message-Authenticator
// of a received packet, substituting reqAuthenticator into the 16
// Authenticator octets as spec.md Section 4.9 requires ("compute HMAC-MD5
// with the Message-Authenticator's value field zeroed and the
// request-authenticator substituted into the 16 authenticator octets"),
// and reports whether it matches the attribute's received value.
func VerifyMessageAuthenticator(packet []byte, off int, reqAuthenticator [16]byte, secret []byte) bool {
	if off < 0 || off+messageAuthenticatorLen > len(packet) {
		return false
	}

	work := make([]byte, len(packet))
	copy(work, packet)
	copy(work[4:20], reqAuthenticator[:])
	for i := range messageAuthenticatorLen {
		work[off+i] = 0
	}

	mac := hmac.New(md5.New, secret)
	mac.Write(work)
	sum := mac.Sum(nil)

	return subtle.ConstantTimeCompare(sum, packet[off:off+messageAuthenticatorLen]) == 1
}

// ResponseAuthenticator computes the RADIUS Response Authenticator (RFC
// 2865 Section 3): MD5(Code || Identifier || Length || reqAuthenticator ||
// Attributes || shared-secret). respPacket must have the Authenticator
// field still populated with the server's value in bytes [4:20); they are
// substituted with reqAuthenticator for the computation.
func ResponseAuthenticator(respPacket []byte, reqAuthenticator [16]byte, secret []byte) [16]byte {
	h := md5.New() //nolint:gosec // RFC 2865 Section 3 mandates MD5.
	h.Write(respPacket[0:4])
	h.Write(reqAuthenticator[:])
	h.Write(respPacket[20:])
	h.Write(secret)

	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyResponseAuthenticator reports whether respPacket's Authenticator
// field (bytes [4:20)) matches the expected Response Authenticator given
// the original request's Authenticator and the shared secret.
func VerifyResponseAuthenticator(respPacket []byte, reqAuthenticator [16]byte, secret []byte) bool {
	if len(respPacket) < radiusHeaderSize {
		return false
	}
	want := ResponseAuthenticator(respPacket, reqAuthenticator, secret)
	return subtle.ConstantTimeCompare(want[:], respPacket[4:20]) == 1
}
