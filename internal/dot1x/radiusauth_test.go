package dot1x

import "testing"

func buildSignedRequest(t *testing.T, secret []byte) ([]byte, [16]byte) {
	t.Helper()
	auth, err := randomAuthenticator()
	if err != nil {
		t.Fatalf("randomAuthenticator: %v", err)
	}
	b := NewRadiusBuilder(RadiusCodeAccessRequest, 5, auth)
	b.AddAttr(AttrUserName, []byte("alice"))
	b.AddAttr(AttrMessageAuthenticator, make([]byte, 16))
	raw := b.Finish()

	off := MessageAuthenticatorOffset(raw)
	SignMessageAuthenticator(raw, off, secret)
	return raw, auth
}

func TestSignAndVerifyMessageAuthenticator(t *testing.T) {
	secret := []byte("sharedsecret")
	raw, auth := buildSignedRequest(t, secret)

	off := MessageAuthenticatorOffset(raw)
	if !VerifyMessageAuthenticator(raw, off, auth, secret) {
		t.Fatal("expected signature to verify")
	}

	// Tamper with a byte outside the Message-Authenticator field.
	raw[radiusHeaderSize] ^= 0xFF
	if VerifyMessageAuthenticator(raw, off, auth, secret) {
		t.Fatal("expected tampered packet to fail verification")
	}
}

func TestVerifyMessageAuthenticatorWrongSecret(t *testing.T) {
	raw, auth := buildSignedRequest(t, []byte("correct-secret"))
	off := MessageAuthenticatorOffset(raw)
	if VerifyMessageAuthenticator(raw, off, auth, []byte("wrong-secret")) {
		t.Fatal("expected verification to fail with wrong secret")
	}
}

func TestResponseAuthenticatorRoundTrip(t *testing.T) {
	secret := []byte("sharedsecret")
	reqAuth, err := randomAuthenticator()
	if err != nil {
		t.Fatalf("randomAuthenticator: %v", err)
	}

	b := NewRadiusBuilder(RadiusCodeAccessAccept, 5, [16]byte{})
	b.AddAttr(AttrServiceType, Uint32Attr(ServiceTypeFramed))
	raw := b.Finish()

	respAuth := ResponseAuthenticator(raw, reqAuth, secret)
	copy(raw[4:20], respAuth[:])

	if !VerifyResponseAuthenticator(raw, reqAuth, secret) {
		t.Fatal("expected response authenticator to verify")
	}

	raw[20] ^= 0xFF // tamper with an attribute byte
	if VerifyResponseAuthenticator(raw, reqAuth, secret) {
		t.Fatal("expected tampered response to fail verification")
	}
}
