package server_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/go8021x/go8021x/internal/dot1x"
	"github.com/go8021x/go8021x/internal/server"
	"github.com/go8021x/go8021x/pkg/dot1xpb"
)

// -------------------------------------------------------------------------
// Test helpers
// -------------------------------------------------------------------------

type noopFrameSender struct{}

func (noopFrameSender) SendFrame(context.Context, int, [6]byte, []byte) error { return nil }

type noopRadiusSender struct{}

func (noopRadiusSender) SendRadius(context.Context, []byte) error { return nil }

type noopSwitchPort struct{}

func (noopSwitchPort) InstallPAEGroupFilter(context.Context) error { return nil }
func (noopSwitchPort) RemovePAEGroupFilter(context.Context) error  { return nil }
func (noopSwitchPort) SetPortState(context.Context, int, dot1x.PortStatus) error {
	return nil
}

func newTestContext(t *testing.T, numPorts int) *dot1x.Context {
	t.Helper()
	cfg := dot1x.ContextConfig{
		NumPorts:      numPorts,
		PortControl:   dot1x.PortControlAuto,
		QuietPeriod:   60,
		ServerTimeout: 30,
		MaxRetrans:    2,
		ReAuthMax:     2,
	}
	dctx, err := dot1x.NewContext(cfg, noopFrameSender{}, noopRadiusSender{}, noopSwitchPort{}, slog.Default())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return dctx
}

func newTestServer(t *testing.T, numPorts int) (*dot1x.Context, *httptest.Server) {
	t.Helper()
	dctx := newTestContext(t, numPorts)
	_, handler := server.New(dctx, slog.Default())
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return dctx, ts
}

// -------------------------------------------------------------------------
// Tests
// -------------------------------------------------------------------------

func TestListPorts(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, 2)
	client := dot1xpb.NewDot1xServiceClient(ts.Client(), ts.URL)

	resp, err := client.ListPorts(context.Background(), connect.NewRequest(&dot1xpb.ListPortsRequest{}))
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if len(resp.Msg.Ports) != 2 {
		t.Fatalf("expected 2 ports, got %d", len(resp.Msg.Ports))
	}
}

func TestGetPortNotFound(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, 1)
	client := dot1xpb.NewDot1xServiceClient(ts.Client(), ts.URL)

	_, err := client.GetPort(context.Background(), connect.NewRequest(&dot1xpb.GetPortRequest{Index: 99}))
	if err == nil {
		t.Fatal("expected error for unknown port")
	}
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected CodeNotFound, got %v", connect.CodeOf(err))
	}
}

func TestGetPortMissingIndex(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, 1)
	client := dot1xpb.NewDot1xServiceClient(ts.Client(), ts.URL)

	_, err := client.GetPort(context.Background(), connect.NewRequest(&dot1xpb.GetPortRequest{Index: 0}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected CodeInvalidArgument, got %v", connect.CodeOf(err))
	}
}

func TestSetPortVerifyOnlyDoesNotCommit(t *testing.T) {
	t.Parallel()

	dctx, ts := newTestServer(t, 1)
	client := dot1xpb.NewDot1xServiceClient(ts.Client(), ts.URL)

	req := connect.NewRequest(&dot1xpb.SetPortRequest{
		Index:       1,
		PortControl: dot1xpb.PortControlForceAuthorized,
		Phase:       dot1xpb.CommitPhaseVerifyOnly,
	})
	if _, err := client.SetPort(context.Background(), req); err != nil {
		t.Fatalf("SetPort (verify-only): %v", err)
	}

	snaps := dctx.Snapshot()
	if snaps[0].AuthPortStatus == dot1x.PortStatusAuthorized {
		t.Error("verify-only SetPort must not commit the change")
	}
}

func TestSetPortCommitChangesPortControl(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, 1)
	client := dot1xpb.NewDot1xServiceClient(ts.Client(), ts.URL)

	req := connect.NewRequest(&dot1xpb.SetPortRequest{
		Index:       1,
		PortControl: dot1xpb.PortControlForceAuthorized,
		Phase:       dot1xpb.CommitPhaseCommit,
	})
	resp, err := client.SetPort(context.Background(), req)
	if err != nil {
		t.Fatalf("SetPort (commit): %v", err)
	}
	if resp.Msg.Port.Status != dot1xpb.PortStateAuthorized {
		t.Errorf("expected AUTHORIZED, got %v", resp.Msg.Port.Status)
	}
}

func TestSetPortInvalidControl(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, 1)
	client := dot1xpb.NewDot1xServiceClient(ts.Client(), ts.URL)

	req := connect.NewRequest(&dot1xpb.SetPortRequest{
		Index:       1,
		PortControl: dot1xpb.PortControlUnspecified,
		Phase:       dot1xpb.CommitPhaseCommit,
	})
	_, err := client.SetPort(context.Background(), req)
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected CodeInvalidArgument, got %v", connect.CodeOf(err))
	}
}

func TestWatchPortEventsIncludeCurrent(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, 1)
	client := dot1xpb.NewDot1xServiceClient(ts.Client(), ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.WatchPortEvents(ctx, connect.NewRequest(&dot1xpb.WatchPortEventsRequest{IncludeCurrent: true}))
	if err != nil {
		t.Fatalf("WatchPortEvents: %v", err)
	}
	defer stream.Close()

	if !stream.Receive() {
		t.Fatalf("expected at least one event, got error: %v", stream.Err())
	}
	ev := stream.Msg()
	if ev.Type != dot1xpb.PortEventCurrent {
		t.Errorf("expected PortEventCurrent, got %v", ev.Type)
	}
}
