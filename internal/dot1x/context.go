package dot1x

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// -------------------------------------------------------------------------
// Context — authenticator manager (spec.md Section 3/5)
// -------------------------------------------------------------------------

// ContextConfig configures a Context at construction (spec.md Section 6's
// recognized options, applied uniformly to every port unless overridden
// per-port through the management surface).
type ContextConfig struct {
	IfaceMAC [6]byte
	BridgeMAC [6]byte
	IfaceName string
	NumPorts  int

	ServerAddrAttr []byte
	ServerAddrType RadiusAttrType
	Secret         []byte

	PortControl  PortControl
	QuietPeriod  int
	ServerTimeout int
	MaxRetrans   int
	ReAuthMax    int
	ReAuthPeriod int
	ReAuthEnabled bool
}

// Context is the authenticator manager: interface reference, the array
// of ports, server network reference, PRNG/identifier allocator, and the
// mutex that serializes all event and management processing (spec.md
// Section 3: "Authenticator context").
type Context struct {
	mu sync.Mutex

	cfg ContextConfig

	Ports []*Port
	ids   *RadiusIDAllocator

	frames FrameSender
	radius RadiusSender
	sw     SwitchPort

	lastTick time.Time
	running  bool

	logger *slog.Logger

	stateChanges chan PortStateChange
}

// PortStateChange is emitted on every PAE state transition for the
// management surface's WatchPortEvents (SPEC_FULL.md Section 4.12).
type PortStateChange struct {
	PortIndex int
	State     AuthPAEState
	Status    PortStatus
	Cause     TerminateCause
}

// NewContext creates a Context with NumPorts ports, all driven into
// INITIALIZE (spec.md Section 3: "Lifecycle").
func NewContext(cfg ContextConfig, frames FrameSender, radius RadiusSender, sw SwitchPort, logger *slog.Logger) (*Context, error) {
	if cfg.NumPorts <= 0 {
		return nil, fmt.Errorf("new context: %w", ErrInvalidPort)
	}

	c := &Context{
		cfg:          cfg,
		ids:          NewRadiusIDAllocator(),
		frames:       frames,
		radius:       radius,
		sw:           sw,
		logger:       logger.With(slog.String("component", "dot1x.context")),
		stateChanges: make(chan PortStateChange, 256),
	}

	for i := 1; i <= cfg.NumPorts; i++ {
		p := NewPort(i, cfg.IfaceMAC, c.logger)
		p.PAE.PortControl = cfg.PortControl
		p.PAE.QuietPeriod = cfg.QuietPeriod
		p.Backend.ServerTimeout = cfg.ServerTimeout
		p.FullAuth.MaxRetrans = cfg.MaxRetrans
		p.PAE.ReAuthMax = cfg.ReAuthMax
		p.Reauth.ReAuthPeriod = cfg.ReAuthPeriod
		p.Reauth.ReAuthEnabled = cfg.ReAuthEnabled
		c.Ports = append(c.Ports, p)
	}

	return c, nil
}

// Start opens the PAE group filter on the switch driver and marks the
// context running (spec.md Section 3: "started once (opens sockets and
// spawns the tick task)"; socket opening itself is the caller's
// responsibility via internal/netio, this method owns only the switch
// filter and port initialization).
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	if c.sw != nil {
		if err := c.sw.InstallPAEGroupFilter(ctx); err != nil {
			return fmt.Errorf("start context: %w", err)
		}
	}

	for _, p := range c.Ports {
		p.OnLinkUp()
		p.RunFixpoint()
	}

	c.lastTick = time.Now()
	c.running = true
	return nil
}

// Stop reverses Start (spec.md Section 3: "stopped once (reverses the
// above)").
func (c *Context) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}

	var err error
	if c.sw != nil {
		err = c.sw.RemovePAEGroupFilter(ctx)
	}
	c.running = false
	close(c.stateChanges)
	if err != nil {
		return fmt.Errorf("stop context: %w", err)
	}
	return nil
}

// StateChanges returns the channel of port FSM state transitions for the
// management surface's WatchPortEvents.
func (c *Context) StateChanges() <-chan PortStateChange {
	return c.stateChanges
}

// Run is the worker task body (spec.md Section 5): wait on socket
// readiness with a 1 Hz deadline, process ready sockets under the
// context mutex, and run the tick handler once per second. recvEAPOL and
// recvRADIUS are the caller's demultiplexed channels from
// internal/netio; both are drained opportunistically each loop.
func (c *Context) Run(ctx context.Context, recvEAPOL <-chan EAPOLEvent, recvRADIUS <-chan []byte) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-recvEAPOL:
			if !ok {
				return
			}
			c.onEAPOL(ev)
		case raw, ok := <-recvRADIUS:
			if !ok {
				return
			}
			c.onRADIUS(raw)
		case <-ticker.C:
			c.onTick()
		}
	}
}

// EAPOLEvent carries a decoded EAPOL frame plus the ingress port index,
// as supplied by internal/netio's demultiplexer.
type EAPOLEvent struct {
	PortIndex int
	Frame     EAPOLFrame
	SrcMAC    [6]byte
}

func (c *Context) onEAPOL(ev EAPOLEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	port := c.portByIndex(ev.PortIndex)
	if port == nil {
		return
	}
	if !port.SupplicantSet {
		port.SupplicantMAC = ev.SrcMAC
		port.SupplicantSet = true
	}

	port.HandleEAPOL(ev.Frame)
	port.RunFixpoint()
	c.drainEffects(port)
}

func (c *Context) onRADIUS(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, port := range c.Ports {
		if port.FullAuth.State != FullAuthAAAIdle || !port.RADIUS.HasReqID {
			continue
		}
		id := port.RADIUS.ReqID
		if port.HandleAccessResponse(raw, c.cfg.Secret) {
			c.ids.Release(id)
			port.RunFixpoint()
			c.drainEffects(port)
			return
		}
	}
}

func (c *Context) onTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, port := range c.Ports {
		port.Tick()
		if port.Backend.State == BackendResponse && port.Backend.AWhile == 0 {
			port.Counters.RadiusAAATimeouts++
		}
		port.RunFixpoint()
		c.drainEffects(port)
	}
	c.lastTick = time.Now()
}

// drainEffects sends any pending outbound work a RunFixpoint pass staged:
// canned EAP Success/Failure, EAP requests queued by the backend FSM,
// and RADIUS Access-Requests queued by the full-authenticator FSM's
// entry into AAA_REQUEST. It also publishes PAE state changes and
// applies the switch-port authorization state.
func (c *Context) drainEffects(port *Port) {
	ctx := context.Background()

	if port.FullAuth.EapReq {
		c.sendEAPRequest(ctx, port)
		port.FullAuth.EapReq = false
	}

	if port.FullAuth.State == FullAuthAAAIdle && port.FullAuth.AAAEapReq && !port.RADIUS.HasReqID {
		c.sendAccessRequest(ctx, port)
		port.FullAuth.AAAEapReq = false
	}

	if port.PAE.State == AuthPAEForceAuth || port.PAE.State == AuthPAEForceUnauth {
		c.sendCanned(ctx, port)
	}

	if c.sw != nil {
		_ = c.sw.SetPortState(ctx, port.Index, port.PAE.AuthPortStatus)
	}

	select {
	case c.stateChanges <- PortStateChange{
		PortIndex: port.Index,
		State:     port.PAE.State,
		Status:    port.PAE.AuthPortStatus,
		Cause:     port.PAE.TermCause,
	}:
	default:
	}
}

// sendEAPRequest transmits the request staged by the full-authenticator
// FSM. The local zone (spec.md Section 4.3's minimal Identity-only
// policy) stages only Identity type-data in ReqData and needs it
// EAP-encoded; the pass-through zone stages the AAA server's own
// already-framed EAP-Request packet in ReqData (port.go's RADIUS
// response handler) and it must go out verbatim, not re-wrapped as a
// second EAP-Request/Identity.
func (c *Context) sendEAPRequest(ctx context.Context, port *Port) {
	var dst [256]byte
	var n int
	if port.FullAuth.State == FullAuthIdle2 {
		n = copy(dst[:], port.FullAuth.ReqData)
	} else {
		n = EncodeRequestResponse(dst[:], CodeRequest, port.FullAuth.CurrentID, MethodIdentity, port.FullAuth.ReqData)
		port.Counters.ReqIDFramesTx++
	}
	var frame [260]byte
	fn := EncodeEAPOL(frame[:], PacketTypeEAP, dst[:n])
	port.Counters.ReqFramesTx++
	_ = c.frames.SendFrame(ctx, port.Index, PAEGroupMAC, frame[:fn])
}

func (c *Context) sendAccessRequest(ctx context.Context, port *Port) {
	packet, err := port.BuildAccessRequest(c.ids, c.cfg.Secret, c.cfg.ServerAddrAttr, c.cfg.ServerAddrType, c.cfg.BridgeMAC, c.cfg.IfaceName)
	if err != nil {
		c.logger.Warn("build access-request failed", slog.Int("port", port.Index), slog.Any("error", err))
		return
	}
	if err := c.radius.SendRadius(ctx, packet); err != nil {
		c.logger.Warn("send access-request failed", slog.Int("port", port.Index), slog.Any("error", err))
	}
}

func (c *Context) sendCanned(ctx context.Context, port *Port) {
	code := CodeSuccess
	if port.PAE.State == AuthPAEForceUnauth {
		code = CodeFailure
	}
	var dst [4]byte
	EncodeSuccessFailure(dst[:], code, port.PAE.CannedIdentifier())
	var frame [8]byte
	fn := EncodeEAPOL(frame[:], PacketTypeEAP, dst[:])
	_ = c.frames.SendFrame(ctx, port.Index, PAEGroupMAC, frame[:fn])
}

func (c *Context) portByIndex(idx int) *Port {
	for _, p := range c.Ports {
		if p.Index == idx {
			return p
		}
	}
	return nil
}

// -------------------------------------------------------------------------
// Management surface — spec.md Section 4.10/6, two-phase commit
// -------------------------------------------------------------------------

// ErrMgmt wraps a management-surface validation failure so callers can
// distinguish it from resource/transport errors.
var ErrMgmt = errors.New("dot1x: management request rejected")

// SetQuietPeriod implements the two-phase "verify-only then commit"
// setter for quietPeriod (spec.md Section 4.10: bounds [0,65535]).
func (c *Context) SetQuietPeriod(portIndex, value int, commit bool) error {
	if value < 0 || value > 65535 {
		return fmt.Errorf("set quiet period: %w: %w", ErrMgmt, ErrWrongValue)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	port := c.portByIndex(portIndex)
	if port == nil {
		return fmt.Errorf("set quiet period: %w: %w", ErrMgmt, ErrInvalidPort)
	}
	if commit {
		port.PAE.QuietPeriod = value
		port.RunFixpoint()
		c.drainEffects(port)
	}
	return nil
}

// SetServerTimeout is the two-phase setter for serverTimeout (bounds
// [1,3600]).
func (c *Context) SetServerTimeout(portIndex, value int, commit bool) error {
	if value < 1 || value > 3600 {
		return fmt.Errorf("set server timeout: %w: %w", ErrMgmt, ErrWrongValue)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	port := c.portByIndex(portIndex)
	if port == nil {
		return fmt.Errorf("set server timeout: %w: %w", ErrMgmt, ErrInvalidPort)
	}
	if commit {
		port.Backend.ServerTimeout = value
	}
	return nil
}

// SetReAuthPeriod is the two-phase setter for reAuthPeriod (bounds
// [10,86400]).
func (c *Context) SetReAuthPeriod(portIndex, value int, commit bool) error {
	if value < ReAuthPeriodMin || value > ReAuthPeriodMax {
		return fmt.Errorf("set reauth period: %w: %w", ErrMgmt, ErrWrongValue)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	port := c.portByIndex(portIndex)
	if port == nil {
		return fmt.Errorf("set reauth period: %w: %w", ErrMgmt, ErrInvalidPort)
	}
	if commit {
		port.Reauth.ReAuthPeriod = value
	}
	return nil
}

// SetPortControl is the two-phase setter for portControl.
func (c *Context) SetPortControl(portIndex int, value PortControl, commit bool) error {
	if value != PortControlForceUnauth && value != PortControlForceAuth && value != PortControlAuto {
		return fmt.Errorf("set port control: %w: %w", ErrMgmt, ErrWrongValue)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	port := c.portByIndex(portIndex)
	if port == nil {
		return fmt.Errorf("set port control: %w: %w", ErrMgmt, ErrInvalidPort)
	}
	if commit {
		port.PAE.PortControl = value
		port.RunFixpoint()
		c.drainEffects(port)
	}
	return nil
}

// Initialize implements spec.md Section 4.10: "Setting initialize=true on
// a port runs authenticatorInitPortFsm(port) and then clears initialize
// ... cause becomes PortReinit".
func (c *Context) Initialize(portIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	port := c.portByIndex(portIndex)
	if port == nil {
		return fmt.Errorf("initialize port: %w: %w", ErrMgmt, ErrInvalidPort)
	}
	port.PAE.Initialize = true
	port.PAE.TermCause = CausePortReinit
	port.RunFixpoint()
	port.PAE.Initialize = false
	port.RunFixpoint()
	c.drainEffects(port)
	return nil
}

// ReAuthenticate implements spec.md Section 4.10: "self-clearing when
// read" — the flag is consumed by the Authenticator PAE FSM's next
// Evaluate pass.
func (c *Context) ReAuthenticate(portIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	port := c.portByIndex(portIndex)
	if port == nil {
		return fmt.Errorf("reauthenticate port: %w: %w", ErrMgmt, ErrInvalidPort)
	}
	port.PAE.ReAuthenticate = true
	port.RunFixpoint()
	c.drainEffects(port)
	return nil
}

// SetLinkState implements spec.md Section 5's tick-handler link-state
// polling for callers that observe link transitions out-of-band (e.g. a
// netlink interface monitor): "an up-transition zeros the per-session
// counters and sets cause=NotTerminatedYet; a down-transition sets
// cause=PortFailure." All ports on this context share the one monitored
// interface in the current single-trunk deployment, so a transition is
// applied uniformly across every port.
func (c *Context) SetLinkState(up bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, port := range c.Ports {
		if up {
			port.OnLinkUp()
		} else {
			port.OnLinkDown()
		}
		port.RunFixpoint()
		c.drainEffects(port)
	}
}

// PortSnapshot is a read-only view of a port's state for the management
// surface and for tests.
type PortSnapshot struct {
	Index          int
	PAEState       AuthPAEState
	AuthPortStatus PortStatus
	TermCause      TerminateCause
	Counters       PortCounters
}

// Snapshot returns a read-only view of every port's current state.
func (c *Context) Snapshot() []PortSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PortSnapshot, 0, len(c.Ports))
	for _, p := range c.Ports {
		out = append(out, PortSnapshot{
			Index:          p.Index,
			PAEState:       p.PAE.State,
			AuthPortStatus: p.PAE.AuthPortStatus,
			TermCause:      p.PAE.TermCause,
			Counters:       p.Counters,
		})
	}
	return out
}
