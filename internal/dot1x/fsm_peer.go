package dot1x

// -------------------------------------------------------------------------
// EAP peer FSM — RFC 4137 Section 4, spec.md Section 4.2
// -------------------------------------------------------------------------

// PeerState is a state of the EAP peer FSM.
type PeerState int

const (
	PeerDisabled PeerState = iota
	PeerInitialize
	PeerIdle
	PeerReceived
	PeerMethod
	PeerGetMethod
	PeerIdentity
	PeerNotification
	PeerRetransmit
	PeerDiscard
	PeerSendResponse
	PeerSuccess
	PeerFailure
)

func (s PeerState) String() string {
	names := [...]string{
		"DISABLED", "INITIALIZE", "IDLE", "RECEIVED", "METHOD", "GET_METHOD",
		"IDENTITY", "NOTIFICATION", "RETRANSMIT", "DISCARD", "SEND_RESPONSE",
		"SUCCESS", "FAILURE",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// ParsedPacket is the peer FSM's classification of an inbound EAP packet
// (spec.md Section 4.2: "the parser classifies it").
type ParsedPacket struct {
	RxReq     bool
	RxSuccess bool
	RxFailure bool
	ReqID     uint8
	ReqMethod MethodType
}

// ClassifyPeerPacket implements the peer-side classifier: "if Code=Request
// with type field, set rxReq, capture reqId and reqMethod; if Code=Success
// set rxSuccess; if Code=Failure set rxFailure; on parse failure clear all
// three" (spec.md Section 4.2).
func ClassifyPeerPacket(buf []byte) (ParsedPacket, bool) {
	p, err := DecodePacket(buf)
	if err != nil {
		return ParsedPacket{}, false
	}
	switch p.Code {
	case CodeRequest:
		return ParsedPacket{RxReq: true, ReqID: p.Identifier, ReqMethod: p.Type}, true
	case CodeSuccess:
		return ParsedPacket{RxSuccess: true}, true
	case CodeFailure:
		return ParsedPacket{RxFailure: true}, true
	default:
		return ParsedPacket{}, false
	}
}

// PeerVars holds the EAP peer FSM's state and variables (spec.md Section
// 3: "rxReq, rxSuccess, rxFailure, reqId, reqMethod, selectedMethod,
// methodState, lastId, lastRespData, allowCanned").
type PeerVars struct {
	State PeerState

	PortEnabled bool
	EapRestart  bool

	RxReq     bool
	RxSuccess bool
	RxFailure bool
	ReqID     uint8
	ReqMethod MethodType

	HasSelectedMethod bool
	SelectedMethod    MethodType
	MethodState       MethodState
	Decision          Decision

	HasLastID  bool
	LastID     uint8

	LastRespData []byte
	RespData     []byte // staged outbound response for SEND_RESPONSE

	AllowNotifications bool
	AllowCanned        bool

	AltAccept bool
	AltReject bool

	IdleWhile  int
	ClientTimeout int

	EapSuccess bool
	EapFail    bool

	// ReqData is the current Request's type-data, set by the caller
	// before each Evaluate pass that may land in METHOD/GET_METHOD.
	ReqData []byte
}

// methodAvailable reports whether m is compiled in and configured,
// per spec.md Section 4.2's GET_METHOD gating.
func methodAvailable(m MethodType, hasMD5Password, hasTLSInit bool) bool {
	switch m {
	case MethodIdentity, MethodNotification:
		return true
	case MethodMD5Challenge:
		return hasMD5Password
	case MethodTLS:
		return hasTLSInit
	default:
		return false
	}
}

// PeerPolicy configures the peer FSM's method-selection inputs, kept
// separate from PeerVars so the pure Evaluate step stays a plain
// state/variable machine.
type PeerPolicy struct {
	HasMD5Password bool
	HasTLSInit     bool
	// Acceptable lists methods in configured preference order for
	// Legacy-Nak, per SPEC_FULL.md Section 6's supplemented feature.
	Acceptable []MethodType
}

// Evaluate runs one pass of the EAP peer FSM. methods is the caller's
// method table (kept in Supplicant); IDENTITY and METHOD look up their
// implementation in it, while Nak responses are built here directly.
func (v *PeerVars) Evaluate(policy PeerPolicy, methods map[MethodType]EAPMethod) bool {
	switch {
	case !v.PortEnabled:
		if v.State != PeerDisabled {
			v.State = PeerDisabled
			return true
		}
		return false
	case v.EapRestart && v.PortEnabled:
		if v.State != PeerInitialize {
			v.State = PeerInitialize
			return true
		}
	}

	switch v.State {
	case PeerInitialize:
		v.HasSelectedMethod = false
		v.MethodState = MethodStateCont
		v.Decision = DecisionFail
		v.HasLastID = false
		v.EapRestart = false
		v.State = PeerIdle
		return true

	case PeerIdle:
		switch {
		case v.AltAccept && v.Decision != DecisionFail:
			v.State = PeerSuccess
			return true
		case v.AltReject:
			v.State = PeerFailure
			return true
		case v.IdleWhile == 0 && v.Decision == DecisionUncondSucc:
			v.State = PeerSuccess
			return true
		case v.IdleWhile == 0 && v.Decision != DecisionUncondSucc:
			v.State = PeerFailure
			return true
		case v.AltAccept && v.MethodState != MethodStateCont && v.Decision == DecisionFail:
			v.State = PeerFailure
			return true
		case v.RxReq || v.RxSuccess || v.RxFailure:
			v.State = PeerReceived
			return true
		}

	case PeerReceived:
		v.State = v.dispatch(policy)
		return true

	case PeerGetMethod:
		m := v.selectMethod(policy)
		if m == 0 {
			v.RespData = make([]byte, max(1, len(policy.Acceptable)))
			n := BuildNak(v.RespData, policy.Acceptable)
			v.RespData = v.RespData[:n]
			v.State = PeerSendResponse
			return true
		}
		v.SelectedMethod, v.HasSelectedMethod = m, true
		v.MethodState = MethodStateCont
		v.State = PeerMethod
		return true

	case PeerIdentity:
		id, ok := methods[MethodIdentity].(*IdentityMethod)
		var n int
		var dst [256]byte
		if ok {
			n = id.Build(dst[:], v.ReqID)
		}
		v.RespData = append([]byte(nil), dst[:n]...)
		v.State = PeerSendResponse
		return true

	case PeerNotification:
		v.State = PeerSendResponse
		return true

	case PeerMethod:
		method, ok := methods[v.SelectedMethod]
		if !ok || !method.Check(v.ReqData) {
			v.State = PeerDiscard
			return true
		}
		v.MethodState, v.Decision = method.Process(v.ReqData)
		var dst [4096]byte
		n := method.Build(dst[:], v.ReqID)
		v.RespData = append([]byte(nil), dst[:n]...)
		v.State = PeerSendResponse
		return true

	case PeerRetransmit:
		v.RespData = v.LastRespData
		v.State = PeerSendResponse
		return true

	case PeerSendResponse:
		v.LastRespData = v.RespData
		v.LastID, v.HasLastID = v.ReqID, true
		v.IdleWhile = v.ClientTimeout
		v.State = PeerIdle
		return true

	case PeerSuccess:
		v.EapSuccess = true
		// absorbing except via global guard

	case PeerFailure:
		v.EapFail = true
		// absorbing except via global guard

	case PeerDiscard:
		v.State = PeerIdle
		return true

	case PeerDisabled:
		// stays until portEnabled
	}

	return false
}

// dispatch implements spec.md Section 4.2's RECEIVED dispatch table,
// conditions evaluated top-to-bottom, first match wins.
func (v *PeerVars) dispatch(policy PeerPolicy) PeerState {
	newID := !v.HasLastID || v.ReqID != v.LastID

	switch {
	case v.RxReq && newID && v.HasSelectedMethod && v.ReqMethod == v.SelectedMethod && v.MethodState != MethodStateDone:
		return PeerMethod
	case v.RxReq && newID && !v.HasSelectedMethod && v.ReqMethod != MethodIdentity && v.ReqMethod != MethodNotification:
		return PeerGetMethod
	case v.RxReq && newID && !v.HasSelectedMethod && v.ReqMethod == MethodIdentity:
		return PeerIdentity
	case v.RxReq && newID && v.ReqMethod == MethodNotification && v.AllowNotifications:
		return PeerNotification
	case v.RxReq && !newID:
		return PeerRetransmit
	case v.RxSuccess && v.successAllowed():
		return PeerSuccess
	case v.RxFailure && v.failureAllowed():
		return PeerFailure
	default:
		return PeerDiscard
	}
}

func (v *PeerVars) successAllowed() bool {
	if v.Decision == DecisionFail {
		return false
	}
	if v.HasLastID && v.ReqID == v.LastID {
		return true
	}
	return !v.HasLastID && v.AllowCanned
}

func (v *PeerVars) failureAllowed() bool {
	if v.HasLastID && v.ReqID == v.LastID {
		return true
	}
	return !v.HasLastID && v.AllowCanned
}

// selectMethod picks the first compiled-in and configured method matching
// the current request, or 0 if none is acceptable.
func (v *PeerVars) selectMethod(policy PeerPolicy) MethodType {
	if methodAvailable(v.ReqMethod, policy.HasMD5Password, policy.HasTLSInit) {
		return v.ReqMethod
	}
	return 0
}

// Tick decrements idleWhile; called once per second.
func (v *PeerVars) Tick() {
	if v.IdleWhile > 0 {
		v.IdleWhile--
	}
}
