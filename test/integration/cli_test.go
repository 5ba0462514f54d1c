//go:build integration

package integration_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/go8021x/go8021x/internal/dot1x"
	"github.com/go8021x/go8021x/internal/server"
	"github.com/go8021x/go8021x/pkg/dot1xpb"
)

// cliTestEnv bundles an in-process authenticator Context and ConnectRPC
// client, the same wiring dot1xctl uses against a running dot1xd.
type cliTestEnv struct {
	client dot1xpb.Dot1xServiceClient
	ctx    *dot1x.Context
}

func newCLITestEnv(t *testing.T, numPorts int) *cliTestEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	dctx, err := dot1x.NewContext(dot1x.ContextConfig{
		NumPorts:    numPorts,
		PortControl: dot1x.PortControlAuto,
		Secret:      []byte("testing123"),
	}, noopFrameSender{}, noopRadiusSender{}, noopSwitchPort{}, logger)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if err := dctx.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = dctx.Stop(t.Context()) })

	path, handler := server.New(dctx, logger)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &cliTestEnv{
		client: dot1xpb.NewDot1xServiceClient(srv.Client(), srv.URL),
		ctx:    dctx,
	}
}

// TestCLIPortListShowSet exercises the full list/show/set lifecycle a
// dot1xctl operator would drive, validating that dot1xpb.Port JSON
// output carries the fields dot1xctl's table/JSON formatters print.
func TestCLIPortListShowSet(t *testing.T) {
	env := newCLITestEnv(t, 1)
	ctx := t.Context()

	listResp, err := env.client.ListPorts(ctx, connect.NewRequest(&dot1xpb.ListPortsRequest{}))
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if got := len(listResp.Msg.Ports); got != 1 {
		t.Fatalf("ListPorts count = %d, want 1", got)
	}
	if listResp.Msg.Ports[0].Status != dot1xpb.PortStateUnauthorized {
		t.Errorf("fresh port status = %s, want UNAUTHORIZED", listResp.Msg.Ports[0].Status)
	}

	if _, err := env.client.SetPort(ctx, connect.NewRequest(&dot1xpb.SetPortRequest{
		Index:       1,
		PortControl: dot1xpb.PortControlForceAuthorized,
		Phase:       dot1xpb.CommitPhaseCommit,
	})); err != nil {
		t.Fatalf("SetPort commit: %v", err)
	}

	getResp, err := env.client.GetPort(ctx, connect.NewRequest(&dot1xpb.GetPortRequest{Index: 1}))
	if err != nil {
		t.Fatalf("GetPort: %v", err)
	}
	if getResp.Msg.Port.Status != dot1xpb.PortStateAuthorized {
		t.Fatalf("GetPort.Status = %s, want AUTHORIZED", getResp.Msg.Port.Status)
	}
}

// TestCLIOutputFormats verifies that a Port marshals to JSON with the
// field names dot1xctl's --format json path documents.
func TestCLIOutputFormats(t *testing.T) {
	env := newCLITestEnv(t, 1)
	ctx := t.Context()

	listResp, err := env.client.ListPorts(ctx, connect.NewRequest(&dot1xpb.ListPortsRequest{}))
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	port := listResp.Msg.Ports[0]

	data, err := json.MarshalIndent(port, "", "  ")
	if err != nil {
		t.Fatalf("JSON marshal: %v", err)
	}
	out := string(data)

	for _, field := range []string{`"index"`, `"pae_state"`, `"status"`, `"port_control"`} {
		if !strings.Contains(out, field) {
			t.Errorf("JSON output missing field %s: %s", field, out)
		}
	}
}

// TestCLISetPortInvalidControl verifies that an out-of-range PortControl
// value is rejected by the management surface's validation rather than
// silently accepted.
func TestCLISetPortInvalidControl(t *testing.T) {
	env := newCLITestEnv(t, 1)

	_, err := env.client.SetPort(t.Context(), connect.NewRequest(&dot1xpb.SetPortRequest{
		Index:       1,
		PortControl: dot1xpb.PortControlMode(99),
		Phase:       dot1xpb.CommitPhaseCommit,
	}))
	if err == nil {
		t.Fatal("SetPort with invalid PortControl should fail")
	}
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("SetPort invalid control code = %s, want invalid_argument", connect.CodeOf(err))
	}
}

// TestCLIGetPortMissingIndex verifies the zero-value GetPortRequest is
// rejected rather than resolved to port 0.
func TestCLIGetPortMissingIndex(t *testing.T) {
	env := newCLITestEnv(t, 1)

	_, err := env.client.GetPort(t.Context(), connect.NewRequest(&dot1xpb.GetPortRequest{}))
	if err == nil {
		t.Fatal("GetPort with no index should fail")
	}
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("GetPort missing index code = %s, want invalid_argument", connect.CodeOf(err))
	}
}
