package dot1x

import (
	"context"
	"log/slog"
	"time"
)

// -------------------------------------------------------------------------
// Supplicant — peer context (spec.md Section 3: "Supplicant context")
// -------------------------------------------------------------------------

// SupplicantConfig configures a Supplicant at construction (spec.md
// Section 6's supplicant-side policy timers).
type SupplicantConfig struct {
	IfaceMAC [6]byte
	Username string
	Password string // optional, enables MD5-Challenge

	TLSInit TLSInitFunc // optional, enables EAP-TLS
	TLSStep TLSStepFunc

	StartPeriod   int
	MaxStart      int
	HeldPeriod    int
	AuthPeriod    int
	ClientTimeout int
	AllowCanned   bool
	PortValid     bool

	// Acceptable is the configured method preference order for
	// Legacy-Nak, per SPEC_FULL.md Section 6's supplemented feature.
	Acceptable []MethodType
}

// Supplicant is the single-port EAP peer context (spec.md Section 3).
type Supplicant struct {
	cfg SupplicantConfig

	PAE     SuppPAEVars
	Backend SuppBackendVars
	Peer    PeerVars

	methods map[MethodType]EAPMethod
	policy  PeerPolicy

	frames FrameSender
	logger *slog.Logger

	running bool
}

// NewSupplicant creates a Supplicant with the configured methods wired
// in (spec.md Section 4.2: GET_METHOD gating on password/TLS-init
// availability).
func NewSupplicant(cfg SupplicantConfig, frames FrameSender, logger *slog.Logger) *Supplicant {
	s := &Supplicant{
		cfg:     cfg,
		frames:  frames,
		logger:  logger.With(slog.String("component", "dot1x.supplicant")),
		methods: make(map[MethodType]EAPMethod),
		policy: PeerPolicy{
			HasMD5Password: cfg.Password != "",
			HasTLSInit:     cfg.TLSInit != nil,
			Acceptable:     cfg.Acceptable,
		},
	}

	s.methods[MethodIdentity] = &IdentityMethod{Identity: cfg.Username}
	s.methods[MethodNotification] = &NotificationMethod{}
	if cfg.Password != "" {
		s.methods[MethodMD5Challenge] = &MD5ChallengeMethod{Password: cfg.Password}
	}
	if cfg.TLSInit != nil {
		s.methods[MethodTLS] = &TLSMethod{Init: cfg.TLSInit, Step: cfg.TLSStep}
	}

	s.PAE.StartPeriod = cfg.StartPeriod
	s.PAE.MaxStart = cfg.MaxStart
	s.PAE.HeldPeriod = cfg.HeldPeriod
	s.PAE.PortValid = cfg.PortValid
	s.Backend.AuthPeriod = cfg.AuthPeriod
	s.Peer.ClientTimeout = cfg.ClientTimeout
	s.Peer.AllowCanned = cfg.AllowCanned
	s.Peer.PortEnabled = true
	s.Peer.EapRestart = true

	return s
}

// acceptableMethods returns methods in configured preference order
// (SPEC_FULL.md Section 6: "EAP method Nak ordering from config").
func (s *Supplicant) acceptableMethods() []MethodType {
	var out []MethodType
	for _, m := range s.cfg.Acceptable {
		if _, ok := s.methods[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// RunFixpoint re-evaluates every sub-FSM until quiescent, mirroring
// Port.RunFixpoint.
func (s *Supplicant) RunFixpoint() {
	const maxSweeps = 64

	s.wireCrossFSM()

	for sweep := 0; sweep < maxSweeps; sweep++ {
		busy := false

		if s.PAE.Evaluate() {
			busy = true
		}
		if s.Backend.Evaluate() {
			busy = true
		}
		s.policy.Acceptable = s.acceptableMethods()
		if s.Peer.Evaluate(s.policy, s.methods) {
			busy = true
		}

		s.wireCrossFSM()

		if !busy {
			return
		}
	}

	s.logger.Warn("fixpoint did not converge")
}

func (s *Supplicant) wireCrossFSM() {
	s.PAE.PortEnabled = s.Peer.PortEnabled
	s.PAE.AuthSuccess = s.Backend.AuthSuccess
	s.PAE.AuthFail = s.Backend.AuthFail
	s.PAE.AuthTimeout = s.Backend.AuthTimeout

	s.Backend.PortEnabled = s.Peer.PortEnabled
	s.Backend.EapSuccess = s.Peer.EapSuccess
	s.Backend.EapFail = s.Peer.EapFail

	s.Peer.PortEnabled = s.PAE.State != SuppPAELogoff && s.PAE.State != SuppPAEDisconnected
}

// Tick runs the once-per-second timer decrements.
func (s *Supplicant) Tick() {
	s.PAE.Tick()
	s.Backend.Tick()
	s.Peer.Tick()
}

// HandleEAPOL classifies an inbound EAP packet and feeds the peer FSM
// (spec.md Section 4.2).
func (s *Supplicant) HandleEAPOL(frame EAPOLFrame) {
	if frame.Type != PacketTypeEAP {
		return
	}
	pkt, err := DecodePacket(frame.Body)
	if err != nil {
		return
	}

	s.Peer.RxReq, s.Peer.RxSuccess, s.Peer.RxFailure = false, false, false
	switch pkt.Code {
	case CodeRequest:
		s.Peer.RxReq = true
		s.Peer.ReqID = pkt.Identifier
		s.Peer.ReqMethod = pkt.Type
		s.Peer.ReqData = pkt.TypeData
	case CodeSuccess:
		s.Peer.RxSuccess = true
	case CodeFailure:
		s.Peer.RxFailure = true
	}

	s.RunFixpoint()
}

// Run drives the supplicant's worker loop (spec.md Section 5), emitting
// EAPOL-Start/Logoff under PAE-FSM control and EAP responses staged by
// the peer FSM.
func (s *Supplicant) Run(ctx context.Context, recv <-chan EAPOLFrame) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-recv:
			if !ok {
				return
			}
			s.HandleEAPOL(f)
			s.drainEffects(ctx)
		case <-ticker.C:
			s.Tick()
			s.RunFixpoint()
			s.drainEffects(ctx)
		}
	}
}

func (s *Supplicant) drainEffects(ctx context.Context) {
	if s.PAE.EapolStartPending {
		var frame [4]byte
		n := EncodeEAPOL(frame[:], PacketTypeStart, nil)
		_ = s.frames.SendFrame(ctx, 0, PAEGroupMAC, frame[:n])
		s.PAE.EapolStartPending = false
	}
	if s.PAE.EapolLogoffPending {
		var frame [4]byte
		n := EncodeEAPOL(frame[:], PacketTypeLogoff, nil)
		_ = s.frames.SendFrame(ctx, 0, PAEGroupMAC, frame[:n])
		s.PAE.EapolLogoffPending = false
	}
	if len(s.Peer.RespData) > 0 && s.Peer.State == PeerIdle {
		respType := s.Peer.SelectedMethod
		switch {
		case s.Peer.ReqMethod == MethodIdentity || s.Peer.ReqMethod == MethodNotification:
			respType = s.Peer.ReqMethod
		case !s.Peer.HasSelectedMethod:
			respType = MethodNak
		}
		var dst [4096]byte
		n := EncodeRequestResponse(dst[:], CodeResponse, s.Peer.LastID, respType, s.Peer.RespData)
		var frame [4100]byte
		fn := EncodeEAPOL(frame[:], PacketTypeEAP, dst[:n])
		_ = s.frames.SendFrame(ctx, 0, PAEGroupMAC, frame[:fn])
		s.Peer.RespData = nil
	}
}

// Logoff requests an administrative EAPOL-Logoff (the D-Bus
// Logoff() method of SPEC_FULL.md Section 4.13).
func (s *Supplicant) Logoff() {
	s.PAE.UserLogoff = true
	s.RunFixpoint()
}

// Reauthenticate requests an administrative restart (the D-Bus
// Reauthenticate() method of SPEC_FULL.md Section 4.13).
func (s *Supplicant) Reauthenticate() {
	s.PAE.UserLogoff = false
	s.PAE.State = SuppPAERestart
	s.Peer.EapRestart = true
	s.RunFixpoint()
}
