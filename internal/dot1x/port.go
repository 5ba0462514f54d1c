package dot1x

import (
	"fmt"
	"log/slog"
)

// -------------------------------------------------------------------------
// Port — authenticator-side unit of state (spec.md Section 3)
// -------------------------------------------------------------------------

// PortCounters are the per-port MIB-style counters named in spec.md
// Section 4.1 and supplemented per SPEC_FULL.md Section 6 from
// ieee8021_pae_mib_impl.c / ieee8021_pae_mib_impl_auth.c.
type PortCounters struct {
	EAPOLStats

	AuthEntersConnecting             uint64
	AuthEntersAuthenticating         uint64
	AuthSuccessesWhileAuthenticating uint64
	AuthFailuresWhileAuthenticating  uint64
	AuthReauthsWhileAuthenticated    uint64

	RadiusRetransWhile   uint64 // dot1xAuthRetransWhile
	RadiusAAATimeouts    uint64 // dot1xAuthAaaTimeout
	RadiusCryptoFailures uint64
}

// RadiusInFlight holds the RADIUS request currently outstanding for this
// port (spec.md Section 3: "aaaReqId, aaaReqData, reqAuthenticator[16],
// serverState[<=64], serverStateLen").
type RadiusInFlight struct {
	HasReqID         bool
	ReqID            uint8
	ReqData          []byte // the EAP response bytes carried as EAP-Message
	ReqAuthenticator [16]byte
	ServerState      []byte // <= 64 bytes, echoed verbatim
}

// Port is one authenticator port (spec.md Section 3: "the unit of
// state"). It owns the Authenticator PAE, Backend Authentication,
// Reauth-timer, and EAP full-authenticator sub-FSMs and drives them to a
// fixpoint on every external event, per spec.md Section 5/9.
type Port struct {
	Index int

	SrcMAC        [6]byte
	SupplicantMAC [6]byte
	SupplicantSet bool

	PAE      AuthPAEVars
	Backend  BackendVars
	Reauth   ReauthVars
	FullAuth FullAuthVars

	Counters PortCounters

	RADIUS RadiusInFlight

	identity string

	logger *slog.Logger
}

// NewPort creates a port at its initial lifecycle state: portControl =
// ForceAuth, sessionTerminateCause = PortFailure, driven into INITIALIZE
// (spec.md Section 3: "Lifecycle").
func NewPort(index int, ifMAC [6]byte, logger *slog.Logger) *Port {
	p := &Port{
		Index:  index,
		SrcMAC: derivePortMAC(ifMAC, index),
		logger: logger.With(slog.Int("port", index)),
	}
	p.PAE.PortControl = PortControlForceAuth
	p.PAE.PortMode = PortControlForceAuth
	p.PAE.TermCause = CausePortFailure
	p.PAE.Initialize = true
	p.FullAuth.MaxRetrans = 4
	return p
}

// RunFixpoint re-evaluates every sub-FSM until a full sweep makes no
// change, per spec.md Section 5: "the FSM engine runs as a fixpoint loop
// driven by a per-context busy flag". maxSweeps bounds pathological
// oscillation; legitimate convergence happens in a handful of sweeps.
func (p *Port) RunFixpoint() {
	const maxSweeps = 64

	p.wireCrossFSM()

	for sweep := 0; sweep < maxSweeps; sweep++ {
		busy := false

		if p.PAE.Evaluate() {
			busy = true
		}
		if p.Backend.Evaluate() {
			busy = true
		}
		if p.Reauth.Evaluate() {
			busy = true
		}
		if p.FullAuth.Evaluate() {
			busy = true
		}

		p.wireCrossFSM()

		if !busy {
			return
		}
	}

	p.logger.Warn("fixpoint did not converge", slog.Int("max_sweeps", maxSweeps))
}

// wireCrossFSM copies the small set of signals the sub-FSMs exchange,
// mirroring the shared-variable coupling of 802.1X-2004's pseudocode
// (authSuccess/authFail/authTimeout flow Backend -> PAE and Reauth ->
// PAE's reAuthenticate input).
func (p *Port) wireCrossFSM() {
	p.PAE.AuthSuccess = p.Backend.AuthSuccess
	p.PAE.AuthFail = p.Backend.AuthFail
	p.PAE.AuthTimeout = p.Backend.AuthTimeout

	p.Backend.PortEnabled = p.PAE.PortEnabled
	p.Backend.Initialize = p.PAE.Initialize

	p.Reauth.PortControl = p.PAE.PortControl
	p.Reauth.AuthPortStatus = p.PAE.AuthPortStatus
	p.Reauth.Initialize = p.PAE.Initialize
	if p.Reauth.ReAuthenticate {
		p.PAE.ReAuthenticate = true
		p.Reauth.ReAuthenticate = false
	}

	p.FullAuth.PortEnabled = p.PAE.PortEnabled
	p.FullAuth.Initialize = p.PAE.Initialize

	// Backend's REQUEST/RESPONSE surface the full-authenticator FSM's
	// eapReq/eapResp to the wire layer.
	p.Backend.EapReq = p.FullAuth.EapReq

	// The pass-through AAA result (spec.md Section 4.5's SUCCESS/FAIL,
	// reached once RADIUS returns Access-Accept/Access-Reject/timeout)
	// drives the Backend Authentication FSM into SUCCESS/FAIL, which in
	// turn raises authSuccess/authFail for the Authenticator PAE above.
	if p.FullAuth.BackendSuccess {
		p.Backend.AAASuccess = true
		p.FullAuth.BackendSuccess = false
	}
	if p.FullAuth.BackendFail {
		p.Backend.AAAFail = true
		p.FullAuth.BackendFail = false
	}
}

// Tick runs the once-per-second timer decrements for every sub-FSM that
// owns one (spec.md Section 5: "All timers are 1 Hz integer counters
// decremented in the tick handler").
func (p *Port) Tick() {
	p.PAE.TickQuiet()
	p.Backend.Tick()
	p.Reauth.Tick()
	if p.FullAuth.RetransWhile > 0 {
		p.FullAuth.RetransWhile--
	}
}

// OnLinkUp/OnLinkDown implement spec.md Section 5: "an up-transition
// zeros the per-session counters and sets cause=NotTerminatedYet; a
// down-transition sets cause=PortFailure".
func (p *Port) OnLinkUp() {
	p.PAE.PortEnabled = true
	p.PAE.TermCause = CauseNotTerminatedYet
	p.Counters = PortCounters{}
}

func (p *Port) OnLinkDown() {
	p.PAE.PortEnabled = false
	p.PAE.TermCause = CausePortFailure
}

// HandleEAPOL classifies an inbound EAPOL frame addressed to this port
// and updates the relevant FSM input flags, per spec.md Section 4.1/4.2.
func (p *Port) HandleEAPOL(frame EAPOLFrame) {
	p.Counters.FramesRx++
	p.Counters.LastFrameVersion = frame.ProtocolVersion

	switch frame.Type {
	case PacketTypeStart:
		p.Counters.StartFramesRx++
		p.PAE.EapolStart = true

	case PacketTypeLogoff:
		p.Counters.LogoffFramesRx++
		p.PAE.EapolLogoff = true

	case PacketTypeEAP:
		pkt, err := DecodePacket(frame.Body)
		if err != nil {
			p.Counters.InvalidFramesRx++
			return
		}
		if pkt.Code == CodeResponse {
			p.Counters.RespFramesRx++
			if pkt.Type == MethodIdentity {
				p.Counters.RespIDFramesRx++
				p.identity = string(pkt.TypeData)
			}
		}
		p.FullAuth.RxResp = true
		p.FullAuth.RespID, p.FullAuth.hasRespID = pkt.Identifier, true
		p.Backend.EapResp = true

	default:
		p.Counters.InvalidFramesRx++
	}
}

// Identity returns the identity captured from the most recent
// EAP-Response/Identity, for use by BuildAccessRequest.
func (p *Port) Identity() string {
	if len(p.identity) > 64 {
		return p.identity[:64]
	}
	return p.identity
}

// BuildAccessRequest implements spec.md Section 4.8: allocates a RADIUS
// identifier unique among ports in AAA_IDLE, assembles the attribute set
// in the specified order, and signs the Message-Authenticator. ids is the
// shared context-wide allocator; serverIP/bridgeMAC/ifName are supplied
// by the caller (Context) since they are context-scoped, not per-port.
func (p *Port) BuildAccessRequest(ids *RadiusIDAllocator, secret []byte, serverAddrAttr []byte, serverAddrType RadiusAttrType, bridgeMAC [6]byte, ifName string) ([]byte, error) {
	id, err := ids.Allocate()
	if err != nil {
		return nil, fmt.Errorf("build access-request for port %d: %w", p.Index, err)
	}

	authr, err := randomAuthenticator()
	if err != nil {
		ids.Release(id)
		return nil, fmt.Errorf("build access-request for port %d: %w", p.Index, err)
	}

	p.RADIUS.HasReqID = true
	p.RADIUS.ReqID = id
	p.RADIUS.ReqAuthenticator = authr

	b := NewRadiusBuilder(RadiusCodeAccessRequest, id, authr)
	b.AddAttr(AttrUserName, []byte(p.Identity()))
	b.AddAttr(AttrServiceType, Uint32Attr(ServiceTypeFramed))
	b.AddAttr(AttrFramedMTU, Uint32Attr(FramedMTU))
	b.AddAttr(serverAddrType, serverAddrAttr)
	b.AddAttr(AttrNASPort, Uint32Attr(uint32(p.Index)))
	b.AddAttr(AttrNASPortType, Uint32Attr(NASPortTypeEthernet))
	b.AddAttr(AttrNASPortID, []byte(fmt.Sprintf("%s_%d", ifName, p.Index)))
	b.AddAttr(AttrCalledStationID, []byte(macString(bridgeMAC)))
	b.AddAttr(AttrCallingStationID, []byte(macString(p.SupplicantMAC)))
	if len(p.RADIUS.ServerState) > 0 {
		b.AddAttr(AttrState, p.RADIUS.ServerState)
	}
	b.AddEAPMessage(p.RADIUS.ReqData)
	b.AddAttr(AttrMessageAuthenticator, make([]byte, messageAuthenticatorLen))

	packet := b.Finish()
	off := MessageAuthenticatorOffset(packet)
	SignMessageAuthenticator(packet, off, secret)

	return packet, nil
}

// HandleAccessResponse implements spec.md Section 4.9: cryptographic
// validation, State capture, and reassembly of EAP-Message attributes.
// It reports whether the reply was accepted (validation failures are
// silently discarded per spec.md Section 7).
func (p *Port) HandleAccessResponse(raw []byte, secret []byte) bool {
	pkt, err := DecodeRadius(raw)
	if err != nil {
		return false
	}
	switch pkt.Code {
	case RadiusCodeAccessAccept, RadiusCodeAccessReject, RadiusCodeAccessChallenge:
	default:
		return false
	}
	if !p.RADIUS.HasReqID || pkt.Identifier != p.RADIUS.ReqID {
		return false
	}

	if !VerifyResponseAuthenticator(raw, p.RADIUS.ReqAuthenticator, secret) {
		p.Counters.RadiusCryptoFailures++
		return false
	}

	maVal, ok := pkt.Find(AttrMessageAuthenticator)
	if !ok || len(maVal) != messageAuthenticatorLen {
		p.Counters.RadiusCryptoFailures++
		return false
	}
	off := MessageAuthenticatorOffset(raw)
	if !VerifyMessageAuthenticator(raw, off, p.RADIUS.ReqAuthenticator, secret) {
		p.Counters.RadiusCryptoFailures++
		return false
	}

	if state, ok := pkt.Find(AttrState); ok {
		if len(state) > 64 {
			state = state[:64]
		}
		p.RADIUS.ServerState = append([]byte(nil), state...)
	}

	eapMsg := pkt.EAPMessage()
	ep, err := DecodePacket(eapMsg)

	switch pkt.Code {
	case RadiusCodeAccessAccept:
		p.FullAuth.AAASuccess = true
	case RadiusCodeAccessReject:
		p.FullAuth.AAAFail = true
	case RadiusCodeAccessChallenge:
		if err == nil && ep.Code == CodeRequest {
			p.FullAuth.AAAEapReq = true
			p.FullAuth.ReqData = eapMsg
		} else {
			p.FullAuth.AAAEapNoReq = true
		}
	}

	p.RADIUS.HasReqID = false
	return true
}
