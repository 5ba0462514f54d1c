//go:build integration

package integration_test

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/go8021x/go8021x/internal/dot1x"
)

// -------------------------------------------------------------------------
// In-memory bridge — delivers EAPOL frames between a Context and a
// Supplicant directly, simulating the wire without a real AF_PACKET
// socket, so the exchange below runs as fast virtual time instead of
// against a kernel interface.
// -------------------------------------------------------------------------

// authToSuppSender is the Context's FrameSender; it decodes each
// outbound EAPOL frame and hands it to the supplicant's receive channel.
type authToSuppSender struct {
	out chan<- dot1x.EAPOLFrame
}

func (s *authToSuppSender) SendFrame(ctx context.Context, _ int, _ [6]byte, frame []byte) error {
	f, err := dot1x.DecodeEAPOL(frame)
	if err != nil {
		return nil //nolint:nilerr // malformed frames are dropped, not a transport failure.
	}
	select {
	case s.out <- f:
	case <-ctx.Done():
	}
	return nil
}

// suppToAuthSender is the Supplicant's FrameSender; it decodes each
// outbound EAPOL frame and hands it to the authenticator's event channel,
// attributing it to port 1 and a fixed supplicant MAC.
type suppToAuthSender struct {
	srcMAC [6]byte
	out    chan<- dot1x.EAPOLEvent
}

func (s *suppToAuthSender) SendFrame(ctx context.Context, _ int, _ [6]byte, frame []byte) error {
	f, err := dot1x.DecodeEAPOL(frame)
	if err != nil {
		return nil //nolint:nilerr // malformed frames are dropped, not a transport failure.
	}
	select {
	case s.out <- dot1x.EAPOLEvent{PortIndex: 1, Frame: f, SrcMAC: s.srcMAC}:
	case <-ctx.Done():
	}
	return nil
}

// -------------------------------------------------------------------------
// Fake RADIUS server — a minimal pass-through-compatible MD5-Challenge
// validator, built entirely on this package's exported RADIUS/EAP
// primitives (the same ones port.go's BuildAccessRequest/
// HandleAccessResponse use), to exercise the real wire codecs and
// cryptography rather than a stub.
// -------------------------------------------------------------------------

type fakeRadiusServer struct {
	secret    []byte
	password  string
	out       chan<- []byte
	challenge []byte
}

func (f *fakeRadiusServer) SendRadius(ctx context.Context, raw []byte) error {
	pkt, err := dot1x.DecodeRadius(raw)
	if err != nil {
		return nil //nolint:nilerr // malformed requests are dropped, not a transport failure.
	}
	ep, err := dot1x.DecodePacket(pkt.EAPMessage())
	if err != nil {
		return nil //nolint:nilerr // see above.
	}

	var code dot1x.RadiusCode
	var eapOut []byte

	switch {
	case ep.Code == dot1x.CodeResponse && ep.Type == dot1x.MethodIdentity:
		challenge := make([]byte, 16)
		if _, err := rand.Read(challenge); err != nil {
			return err
		}
		f.challenge = challenge

		typeData := make([]byte, 17)
		typeData[0] = 16
		copy(typeData[1:], challenge)

		dst := make([]byte, dot1x.RequestResponseLen(typeData))
		n := dot1x.EncodeRequestResponse(dst, dot1x.CodeRequest, ep.Identifier+1, dot1x.MethodMD5Challenge, typeData)
		eapOut = dst[:n]
		code = dot1x.RadiusCodeAccessChallenge

	case ep.Code == dot1x.CodeResponse && ep.Type == dot1x.MethodMD5Challenge:
		dst := make([]byte, 4)
		if dot1x.VerifyResponse(ep.Identifier, f.password, f.challenge, ep.TypeData) {
			n := dot1x.EncodeSuccessFailure(dst, dot1x.CodeSuccess, ep.Identifier)
			eapOut = dst[:n]
			code = dot1x.RadiusCodeAccessAccept
		} else {
			n := dot1x.EncodeSuccessFailure(dst, dot1x.CodeFailure, ep.Identifier)
			eapOut = dst[:n]
			code = dot1x.RadiusCodeAccessReject
		}

	default:
		return nil
	}

	b := dot1x.NewRadiusBuilder(code, pkt.Identifier, [16]byte{})
	b.AddEAPMessage(eapOut)
	b.AddAttr(dot1x.AttrMessageAuthenticator, make([]byte, 16))
	resp := b.Finish()

	off := dot1x.MessageAuthenticatorOffset(resp)
	copy(resp[4:20], pkt.Authenticator[:])
	dot1x.SignMessageAuthenticator(resp, off, f.secret)
	respAuth := dot1x.ResponseAuthenticator(resp, pkt.Authenticator, f.secret)
	copy(resp[4:20], respAuth[:])

	select {
	case f.out <- resp:
	case <-ctx.Done():
	}
	return nil
}

// TestDatapathSupplicantAuthenticates drives a complete EAP-MD5 exchange
// between a Supplicant and an authenticator Context bridged entirely
// in-memory, with RADIUS Access-Requests answered by a fake server that
// performs real MD5-Challenge validation. It exercises the full
// authenticator chain: EAPOL demux, the full-authenticator and backend
// FSMs, RADIUS request/response framing and cryptography, and the
// resulting switch-port authorization callback.
func TestDatapathSupplicantAuthenticates(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		logger := slog.New(slog.DiscardHandler)
		secret := []byte("radiussecret")

		eapolCh := make(chan dot1x.EAPOLEvent, 16)
		suppRecvCh := make(chan dot1x.EAPOLFrame, 16)
		radiusCh := make(chan []byte, 16)

		var switchMu switchState
		dctx, err := dot1x.NewContext(dot1x.ContextConfig{
			NumPorts:       1,
			PortControl:    dot1x.PortControlAuto,
			Secret:         secret,
			ServerAddrType: dot1x.AttrNASIPAddress,
			ServerAddrAttr: []byte{10, 0, 0, 1},
			IfaceName:      "eth-test",
			ServerTimeout:  30,
			MaxRetrans:     2,
			ReAuthPeriod:   3600,
		}, &authToSuppSender{out: suppRecvCh}, &fakeRadiusServer{secret: secret, password: "hunter2", out: radiusCh}, &switchMu, logger)
		if err != nil {
			t.Fatalf("NewContext: %v", err)
		}
		if err := dctx.Start(t.Context()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		supp := dot1x.NewSupplicant(dot1x.SupplicantConfig{
			Username:      "alice",
			Password:      "hunter2",
			StartPeriod:   3,
			MaxStart:      3,
			HeldPeriod:    10,
			AuthPeriod:    5,
			ClientTimeout: 5,
			Acceptable:    []dot1x.MethodType{dot1x.MethodMD5Challenge},
		}, &suppToAuthSender{srcMAC: [6]byte{0x02, 0, 0, 0, 0, 1}, out: eapolCh}, logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go dctx.Run(ctx, eapolCh, radiusCh)
		go supp.Run(ctx, suppRecvCh)

		for range 60 {
			time.Sleep(time.Second)
			synctest.Wait()

			snaps := dctx.Snapshot()
			if len(snaps) == 1 && snaps[0].AuthPortStatus == dot1x.PortStatusAuthorized {
				break
			}
		}

		snaps := dctx.Snapshot()
		if len(snaps) != 1 || snaps[0].AuthPortStatus != dot1x.PortStatusAuthorized {
			t.Fatalf("port authorization = %+v, want Authorized", snaps)
		}
		if !switchMu.authorized.Load() {
			t.Error("switch-port driver never observed an Authorized SetPortState call")
		}
	})
}

// switchState is a minimal SwitchPort recording whether any port ever
// reached Authorized, the observable side effect a real switch driver
// would apply as a VLAN/ACL change.
type switchState struct {
	authorized atomic.Bool
}

func (s *switchState) InstallPAEGroupFilter(context.Context) error { return nil }
func (s *switchState) RemovePAEGroupFilter(context.Context) error  { return nil }
func (s *switchState) SetPortState(_ context.Context, _ int, status dot1x.PortStatus) error {
	if status == dot1x.PortStatusAuthorized {
		s.authorized.Store(true)
	}
	return nil
}
