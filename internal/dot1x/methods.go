package dot1x

import (
	"crypto/md5" //nolint:gosec // RFC 3748 Section 5.5 mandates MD5 for this method.
	"crypto/subtle"
)

// MethodState reflects RFC 4137 Section 4.2's per-method state, tracked on
// both the supplicant's chosen method and (conceptually) the
// authenticator's local policy.
type MethodState int

const (
	MethodStateCont MethodState = iota
	MethodStateMayCont
	MethodStateDone
)

// Decision is the method's verdict, consumed by the peer and
// full-authenticator FSMs' SELECT_ACTION logic.
type Decision int

const (
	DecisionFail Decision = iota
	DecisionCondSucc
	DecisionUncondSucc
)

// EAPMethod is the pluggable per-method contract invoked from METHOD state
// in the EAP peer FSM (spec.md Section 4.2: "invokes the chosen method's
// check ..., process ..., and build").
type EAPMethod interface {
	// Type returns the EAP method type byte this implementation handles.
	Type() MethodType

	// Check reports whether reqData is well-formed for this method; an
	// invalid request is silently dropped by the caller.
	Check(reqData []byte) bool

	// Process consumes a Request's type data and returns the updated
	// method state and decision.
	Process(reqData []byte) (MethodState, Decision)

	// Build writes this method's Response type-data into dst and
	// returns the number of bytes written.
	Build(dst []byte, id uint8) int
}

// -------------------------------------------------------------------------
// Identity — RFC 3748 Section 5.1
// -------------------------------------------------------------------------

// IdentityMethod answers EAP-Request/Identity with a configured identity
// string (spec.md Section 4.2, dispatch rule 3).
type IdentityMethod struct {
	Identity string
}

func (m *IdentityMethod) Type() MethodType { return MethodIdentity }

func (m *IdentityMethod) Check(_ []byte) bool { return true }

func (m *IdentityMethod) Process(_ []byte) (MethodState, Decision) {
	return MethodStateDone, DecisionCondSucc
}

func (m *IdentityMethod) Build(dst []byte, _ uint8) int {
	return copy(dst, m.Identity)
}

// -------------------------------------------------------------------------
// Notification — RFC 3748 Section 5.2
// -------------------------------------------------------------------------

// NotificationMethod acknowledges an EAP-Request/Notification with an
// empty response (spec.md Section 4.2, dispatch rule 4).
type NotificationMethod struct{}

func (m *NotificationMethod) Type() MethodType { return MethodNotification }

func (m *NotificationMethod) Check(_ []byte) bool { return true }

func (m *NotificationMethod) Process(_ []byte) (MethodState, Decision) {
	return MethodStateCont, DecisionCondSucc
}

func (m *NotificationMethod) Build(_ []byte, _ uint8) int { return 0 }

// -------------------------------------------------------------------------
// MD5-Challenge — RFC 3748 Section 5.5
// -------------------------------------------------------------------------

// MD5ChallengeMethod implements the MD5-Challenge method. It requires a
// non-empty password (spec.md Section 4.2: "MD5-Challenge requires a
// non-empty password").
type MD5ChallengeMethod struct {
	Password string

	challenge []byte
}

func (m *MD5ChallengeMethod) Type() MethodType { return MethodMD5Challenge }

// Check validates the MD5-Challenge Request layout: a value-size octet
// followed by that many octets of challenge value.
func (m *MD5ChallengeMethod) Check(reqData []byte) bool {
	if len(reqData) < 1 {
		return false
	}
	valueSize := int(reqData[0])
	return len(reqData) >= 1+valueSize && valueSize > 0
}

// Process records the Request's challenge value for Build, which computes
// MD5(id || password || challenge) per RFC 1994 Section 2 / RFC 3748
// Section 5.5 as a CHAP-style response; it is always CONT then DONE on the
// next Success/Failure from the peer, so this method itself reports
// DONE+CondSucc once a syntactically valid challenge is processed (the
// peer FSM's decision is ultimately bound by the EAP Success/Failure the
// authenticator sends).
func (m *MD5ChallengeMethod) Process(reqData []byte) (MethodState, Decision) {
	valueSize := int(reqData[0])
	m.challenge = append(m.challenge[:0], reqData[1:1+valueSize]...)

	return MethodStateDone, DecisionCondSucc
}

// Build writes the CHAP-style Response: a 1-byte value-size (16) followed
// by the 16-byte MD5 digest over the Request identifier id, the password
// and the recorded challenge.
func (m *MD5ChallengeMethod) Build(dst []byte, id uint8) int {
	h := md5.New() //nolint:gosec // RFC 3748 Section 5.5 mandates MD5.
	h.Write([]byte{id})
	h.Write([]byte(m.Password))
	h.Write(m.challenge)
	dst[0] = 16
	copy(dst[1:], h.Sum(nil))
	return 17
}

// VerifyResponse is used on the authenticator's local-policy path (an
// Open Question per spec.md Section 9 notes richer local policies are
// "conceivable but not implemented" — this helper exists for a future
// local-MD5 authenticator and is otherwise unused by the pass-through
// full-authenticator FSM, which always delegates to AAA).
func VerifyResponse(id uint8, password string, challenge, response []byte) bool {
	if len(response) != 17 || int(response[0]) != 16 {
		return false
	}
	h := md5.New() //nolint:gosec // RFC 3748 Section 5.5 mandates MD5.
	h.Write([]byte{id})
	h.Write([]byte(password))
	h.Write(challenge)
	want := h.Sum(nil)
	return subtle.ConstantTimeCompare(want, response[1:]) == 1
}

// -------------------------------------------------------------------------
// TLS — RFC 5216 (referenced as "EAP-TLS" throughout spec.md)
// -------------------------------------------------------------------------

// TLS flag bits (RFC 5216 Section 3.1).
const (
	tlsFlagLengthIncluded = 1 << 7
	tlsFlagMoreFragments  = 1 << 6
	tlsFlagStart          = 1 << 5
)

// TLSInitFunc starts (or resumes) a TLS handshake producing the first
// outbound record; it is the out-of-scope TLS stack collaborator named in
// spec.md Section 1, bound here as a callback so this package never
// depends on crypto/tls directly.
type TLSInitFunc func() (startFlight []byte, err error)

// TLSStepFunc feeds one inbound TLS record/fragment-reassembled flight to
// the TLS stack and returns the next outbound flight (possibly empty) and
// whether the handshake is complete.
type TLSStepFunc func(in []byte) (out []byte, done bool, err error)

// TLSMethod implements EAP-TLS fragmentation and reassembly (spec.md
// Section 3: "a bidirectional fragment-reassembly buffer pair ... one
// transmit buffer with separate read/write cursors ... one receive buffer
// holding the current fragment"), delegating the handshake itself to
// Init/Step.
type TLSMethod struct {
	Init TLSInitFunc
	Step TLSStepFunc

	rx       []byte // reassembly buffer for a fragmented incoming flight
	rxTotal  int    // declared total length from the first fragment's TLS Length field
	tx       []byte // pending outbound flight awaiting fragmentation
	txCursor int     // read cursor into tx
	started  bool
	done     bool
}

func (m *TLSMethod) Type() MethodType { return MethodTLS }

// Check validates the TLS flags/length-field layout only; deeper
// malformed-record handling is delegated to the TLS stack via Step.
func (m *TLSMethod) Check(reqData []byte) bool {
	return len(reqData) >= 1
}

// Process reassembles fragments, and on completion of an inbound flight
// invokes Step (or Init, for the first Start request) to obtain the next
// outbound flight.
func (m *TLSMethod) Process(reqData []byte) (MethodState, Decision) {
	flags := reqData[0]
	body := reqData[1:]

	if flags&tlsFlagStart != 0 {
		m.rx, m.rxTotal = nil, 0
		m.started = true
		out, err := m.Init()
		if err != nil {
			return MethodStateDone, DecisionFail
		}
		m.tx, m.txCursor = out, 0
		return MethodStateCont, DecisionCondSucc
	}

	if flags&tlsFlagLengthIncluded != 0 && len(body) >= 4 {
		if m.rx == nil {
			m.rxTotal = int(body[0])<<24 | int(body[1])<<16 | int(body[2])<<8 | int(body[3])
		}
		body = body[4:]
	}
	m.rx = append(m.rx, body...)

	if flags&tlsFlagMoreFragments != 0 {
		// Ack-only fragment: acknowledge with an empty Response and
		// keep reassembling.
		m.tx, m.txCursor = nil, 0
		return MethodStateCont, DecisionCondSucc
	}

	out, done, err := m.Step(m.rx)
	m.rx, m.rxTotal = nil, 0
	if err != nil {
		return MethodStateDone, DecisionFail
	}
	m.tx, m.txCursor = out, 0
	m.done = done

	if done && len(out) == 0 {
		return MethodStateDone, DecisionUncondSucc
	}
	return MethodStateCont, DecisionCondSucc
}

// Build fragments m.tx starting at txCursor into dst, setting the More
// Fragments flag when additional fragments remain. Each fragment carries
// at most defaultFragCap (1000) bytes of TLS data; the cap is fixed and is
// not derived from the link MTU.
func (m *TLSMethod) Build(dst []byte, _ uint8) int {
	const defaultFragCap = 1000

	remaining := m.tx[m.txCursor:]
	n := len(remaining)
	more := false
	if n > defaultFragCap {
		n = defaultFragCap
		more = true
	}

	var flags byte
	if more {
		flags |= tlsFlagMoreFragments
	}
	dst[0] = flags
	copy(dst[1:], remaining[:n])
	m.txCursor += n

	return 1 + n
}

// -------------------------------------------------------------------------
// Legacy-Nak — RFC 3748 Section 5.3.1
// -------------------------------------------------------------------------

// BuildNak writes a Legacy-Nak Response listing acceptable in order
// (spec.md Section 4.2: "build a Legacy-Nak response listing
// locally-acceptable methods in order, with a single zero byte if none",
// and Section 8: "A Legacy-Nak response with no acceptable methods lists
// exactly one byte = 0").
func BuildNak(dst []byte, acceptable []MethodType) int {
	if len(acceptable) == 0 {
		dst[0] = 0
		return 1
	}
	n := 0
	for _, t := range acceptable {
		dst[n] = byte(t)
		n++
	}
	return n
}
