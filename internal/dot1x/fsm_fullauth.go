package dot1x

// -------------------------------------------------------------------------
// EAP full-authenticator FSM — RFC 4137 Section 5, spec.md Section 4.3
// -------------------------------------------------------------------------

// FullAuthState spans both the "local" and "pass-through" zones of RFC
// 4137 Section 5; which zone is active is implied by the state value.
type FullAuthState int

const (
	FullAuthInitialize FullAuthState = iota
	FullAuthIdle
	FullAuthRetransmit
	FullAuthReceived
	FullAuthNak
	FullAuthSelectAction
	FullAuthIntegrityCheck
	FullAuthMethodResponse
	FullAuthProposeMethod
	FullAuthMethodRequest
	FullAuthDiscard
	FullAuthSendRequest
	FullAuthTimeoutFailure
	FullAuthFailure
	FullAuthSuccess

	FullAuthInitializePassthrough
	FullAuthIdle2
	FullAuthRetransmit2
	FullAuthReceived2
	FullAuthAAARequest
	FullAuthAAAIdle
	FullAuthAAAResponse
	FullAuthDiscard2
	FullAuthSendRequest2
	FullAuthTimeoutFailure2
	FullAuthFailure2
	FullAuthSuccess2
)

func (s FullAuthState) String() string {
	names := [...]string{
		"INITIALIZE", "IDLE", "RETRANSMIT", "RECEIVED", "NAK", "SELECT_ACTION",
		"INTEGRITY_CHECK", "METHOD_RESPONSE", "PROPOSE_METHOD", "METHOD_REQUEST",
		"DISCARD", "SEND_REQUEST", "TIMEOUT_FAILURE", "FAILURE", "SUCCESS",
		"INITIALIZE_PASSTHROUGH", "IDLE2", "RETRANSMIT2", "RECEIVED2",
		"AAA_REQUEST", "AAA_IDLE", "AAA_RESPONSE", "DISCARD2", "SEND_REQUEST2",
		"TIMEOUT_FAILURE2", "FAILURE2", "SUCCESS2",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// AuthDecision is the SELECT_ACTION input/output named in spec.md Section
// 4.3 ("decision (CONTINUE, SUCCESS, FAILURE, PASSTHROUGH)").
type AuthDecision int

const (
	AuthDecisionContinue AuthDecision = iota
	AuthDecisionSuccess
	AuthDecisionFailure
	AuthDecisionPassthrough
)

// defaultRetransTimeout is the method-provided timeout hint default
// (spec.md Section 4.3: "default 5 s").
const defaultRetransTimeout = 5

// FullAuthVars holds the EAP full-authenticator FSM's state (spec.md
// Section 4.3). The local policy is minimal per spec.md Section 9's Open
// Question: it always issues an Identity request then hands off to
// pass-through.
type FullAuthVars struct {
	State FullAuthState

	PortEnabled bool
	Initialize  bool

	EapReq     bool // request ready for the backend to deliver
	EapResp    bool // response delivered by the backend
	EapNoReq   bool
	EapRestart bool

	RxResp    bool
	RespID    uint8
	hasRespID bool

	AAAEapReq   bool
	AAAEapNoReq bool
	AAASuccess  bool
	AAAFail     bool
	AAATimeout  bool

	Decision AuthDecision

	CurrentID    uint8
	hasCurrentID bool

	RetransCount int
	MaxRetrans   int
	RetransWhile int

	LastReqData []byte
	ReqData     []byte // staged outbound request (Identity, or AAA-provided)

	MethodState MethodState

	KeyRun bool

	// BackendSuccess/BackendFail flag a terminal pass-through AAA result
	// for Port.wireCrossFSM to relay into BackendVars; each is cleared by
	// wireCrossFSM in the same sweep it relays, so the signal is an edge,
	// not a level.
	BackendSuccess bool
	BackendFail    bool
}

// advanceID advances CurrentID per spec.md Section 4.3's identifier discipline.
func (v *FullAuthVars) advanceID() {
	v.CurrentID = nextID(v.CurrentID, v.hasCurrentID)
	v.hasCurrentID = true
}

// Evaluate runs one pass of the EAP full-authenticator FSM across both
// zones. Returns true if anything changed, for the fixpoint scheduler.
func (v *FullAuthVars) Evaluate() bool {
	if !v.PortEnabled || v.Initialize {
		if v.State != FullAuthInitialize {
			v.reset()
			return true
		}
		return false
	}

	switch v.State {
	case FullAuthInitialize:
		v.reset()
		v.State = FullAuthSelectAction
		return true

	case FullAuthIdle:
		if v.RxResp {
			v.State = FullAuthReceived
			return true
		}
		if v.RetransWhile == 0 {
			v.State = FullAuthRetransmit
			return true
		}

	case FullAuthRetransmit:
		if v.RetransCount > v.MaxRetrans {
			v.State = FullAuthTimeoutFailure
			return true
		}
		v.ReqData = v.LastReqData
		v.EapReq = true
		v.RetransCount++
		v.RetransWhile = defaultRetransTimeout
		v.State = FullAuthIdle
		return true

	case FullAuthReceived:
		if v.hasRespID && v.RespID == v.CurrentID {
			v.State = FullAuthIntegrityCheck
		} else {
			v.State = FullAuthDiscard
		}
		return true

	case FullAuthIntegrityCheck:
		// Local policy handles only Identity; Identity responses are
		// always accepted and handed to SELECT_ACTION via pass-through.
		v.State = FullAuthMethodResponse
		return true

	case FullAuthMethodResponse:
		v.MethodState = MethodStateDone
		v.Decision = AuthDecisionPassthrough
		v.State = FullAuthSelectAction
		return true

	case FullAuthDiscard:
		v.EapResp = false
		v.EapNoReq = true
		v.State = FullAuthIdle
		return true

	case FullAuthNak:
		v.State = FullAuthSelectAction
		return true

	case FullAuthSelectAction:
		switch v.Decision {
		case AuthDecisionSuccess:
			v.State = FullAuthSuccess
		case AuthDecisionFailure:
			v.State = FullAuthFailure
		case AuthDecisionPassthrough:
			v.State = FullAuthInitializePassthrough
		default:
			v.State = FullAuthProposeMethod
		}
		return true

	case FullAuthProposeMethod:
		v.advanceID()
		v.State = FullAuthMethodRequest
		return true

	case FullAuthMethodRequest:
		v.LastReqData = v.ReqData
		v.RetransCount = 0
		v.State = FullAuthSendRequest
		return true

	case FullAuthSendRequest:
		v.EapReq = true
		v.RetransWhile = defaultRetransTimeout
		v.RxResp = false
		v.State = FullAuthIdle
		return true

	case FullAuthTimeoutFailure:
		v.State = FullAuthFailure

	case FullAuthFailure, FullAuthSuccess:
		// Absorbing per spec.md Section 7; cleared only by initialize
		// or !portEnabled, handled by the global guard above.

	// ---- pass-through zone ----
	case FullAuthInitializePassthrough:
		v.advanceID()
		v.State = FullAuthAAAIdle
		return true

	case FullAuthAAAIdle:
		switch {
		case v.RxResp:
			v.State = FullAuthReceived2
			return true
		case v.AAAEapReq:
			v.State = FullAuthAAARequest
			return true
		case v.AAATimeout:
			v.State = FullAuthTimeoutFailure2
			return true
		case v.AAASuccess:
			v.AAASuccess = false
			v.BackendSuccess = true
			v.State = FullAuthSuccess2
			return true
		case v.AAAFail:
			v.AAAFail = false
			v.BackendFail = true
			v.State = FullAuthFailure2
			return true
		}

	case FullAuthReceived2:
		if v.hasRespID && v.RespID == v.CurrentID {
			v.State = FullAuthAAAResponse
		} else {
			v.State = FullAuthDiscard2
		}
		return true

	case FullAuthAAAResponse:
		v.AAAEapReq, v.AAAEapNoReq = false, false
		v.State = FullAuthAAAIdle
		return true

	case FullAuthDiscard2:
		v.EapResp = false
		v.EapNoReq = true
		v.State = FullAuthAAAIdle
		return true

	case FullAuthAAARequest:
		v.LastReqData = v.ReqData
		v.advanceID()
		v.State = FullAuthSendRequest2
		return true

	case FullAuthSendRequest2:
		v.EapReq = true
		v.RetransWhile = defaultRetransTimeout
		v.RxResp = false
		v.State = FullAuthIdle2
		return true

	case FullAuthIdle2:
		switch {
		case v.RxResp:
			v.State = FullAuthReceived2
			return true
		case v.RetransWhile == 0:
			v.State = FullAuthRetransmit2
			return true
		}

	case FullAuthRetransmit2:
		if v.RetransCount > v.MaxRetrans {
			v.State = FullAuthTimeoutFailure2
			return true
		}
		v.ReqData = v.LastReqData
		v.EapReq = true
		v.RetransCount++
		v.RetransWhile = defaultRetransTimeout
		v.State = FullAuthIdle2
		return true

	case FullAuthTimeoutFailure2:
		v.BackendFail = true
		v.State = FullAuthFailure2

	case FullAuthFailure2:
		// absorbing

	case FullAuthSuccess2:
		v.KeyRun = true
		// absorbing
	}

	return false
}

func (v *FullAuthVars) reset() {
	*v = FullAuthVars{
		State:       FullAuthInitialize,
		PortEnabled: v.PortEnabled,
		MaxRetrans:  v.MaxRetrans,
	}
}
