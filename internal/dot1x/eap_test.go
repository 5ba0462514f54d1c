package dot1x

import (
	"bytes"
	"testing"
)

func TestEAPRequestResponseRoundTrip(t *testing.T) {
	data := []byte("hello")
	var buf [64]byte
	n := EncodeRequestResponse(buf[:], CodeRequest, 7, MethodIdentity, data)

	p, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Code != CodeRequest || p.Identifier != 7 || p.Type != MethodIdentity {
		t.Fatalf("unexpected header: %+v", p)
	}
	if !bytes.Equal(p.TypeData, data) {
		t.Fatalf("typedata = %v, want %v", p.TypeData, data)
	}
}

func TestEAPSuccessFailureRoundTrip(t *testing.T) {
	var buf [4]byte
	n := EncodeSuccessFailure(buf[:], CodeSuccess, 9)
	p, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Code != CodeSuccess || p.Identifier != 9 {
		t.Fatalf("unexpected: %+v", p)
	}
	if len(p.TypeData) != 0 {
		t.Fatalf("expected no typedata, got %v", p.TypeData)
	}
}

func TestDecodePacketTooShort(t *testing.T) {
	if _, err := DecodePacket([]byte{1, 2}); err != ErrEAPTooShort {
		t.Fatalf("err = %v, want ErrEAPTooShort", err)
	}
}

func TestDecodePacketLengthAuthoritative(t *testing.T) {
	var buf [64]byte
	n := EncodeRequestResponse(buf[:], CodeRequest, 1, MethodIdentity, []byte("abcdef"))
	// append link-layer padding beyond declared length.
	padded := append(buf[:n:n], 0xAA, 0xBB, 0xCC)
	p, err := DecodePacket(padded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(p.TypeData, []byte("abcdef")) {
		t.Fatalf("typedata = %v, want abcdef (padding should be ignored)", p.TypeData)
	}
}

func TestNextID(t *testing.T) {
	if got := nextID(0, false); got != 0 {
		t.Errorf("nextID(none) = %d, want 0", got)
	}
	if got := nextID(254, true); got != 255 {
		t.Errorf("nextID(254) = %d, want 255", got)
	}
	if got := nextID(255, true); got != 0 {
		t.Errorf("nextID(255) = %d, want wraparound to 0", got)
	}
}
