package dot1x_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/go8021x/go8021x/internal/dot1x"
)

type noopFrameSender struct{}

func (noopFrameSender) SendFrame(context.Context, int, [6]byte, []byte) error { return nil }

type noopRadiusSender struct{}

func (noopRadiusSender) SendRadius(context.Context, []byte) error { return nil }

type noopSwitchPort struct{}

func (noopSwitchPort) InstallPAEGroupFilter(context.Context) error               { return nil }
func (noopSwitchPort) RemovePAEGroupFilter(context.Context) error                { return nil }
func (noopSwitchPort) SetPortState(context.Context, int, dot1x.PortStatus) error { return nil }

func newTestContext(t *testing.T) *dot1x.Context {
	t.Helper()
	dctx, err := dot1x.NewContext(dot1x.ContextConfig{
		NumPorts:      2,
		PortControl:   dot1x.PortControlAuto,
		Secret:        []byte("testing123"),
		ServerTimeout: 30,
	}, noopFrameSender{}, noopRadiusSender{}, noopSwitchPort{}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if err := dctx.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = dctx.Stop(context.Background()) })
	return dctx
}

// TestContextSetLinkStateDownSetsPortFailure exercises spec.md Section 5's
// link-state polling: a reported link-down transition must drive every
// port's termination cause to PortFailure and disable it, and a
// subsequent link-up must clear that cause and re-enable the port without
// requiring any EAPOL traffic to observe the change.
func TestContextSetLinkStateDownSetsPortFailure(t *testing.T) {
	dctx := newTestContext(t)

	dctx.SetLinkState(false)
	for _, snap := range dctx.Snapshot() {
		if snap.TermCause != dot1x.CausePortFailure {
			t.Errorf("port %d TermCause after link down = %v, want CausePortFailure", snap.Index, snap.TermCause)
		}
	}

	dctx.SetLinkState(true)
	for _, snap := range dctx.Snapshot() {
		if snap.TermCause != dot1x.CauseNotTerminatedYet {
			t.Errorf("port %d TermCause after link up = %v, want CauseNotTerminatedYet", snap.Index, snap.TermCause)
		}
	}
}
