package server_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/go8021x/go8021x/internal/server"
	"github.com/go8021x/go8021x/pkg/dot1xpb"
)

// panicHandler wraps a minimal Dot1xServiceHandler that panics on
// ListPorts calls, used to test the RecoveryInterceptor.
type panicHandler struct{}

func (panicHandler) ListPorts(context.Context, *connect.Request[dot1xpb.ListPortsRequest]) (*connect.Response[dot1xpb.ListPortsResponse], error) {
	panic("intentional test panic")
}

func (panicHandler) GetPort(context.Context, *connect.Request[dot1xpb.GetPortRequest]) (*connect.Response[dot1xpb.GetPortResponse], error) {
	return connect.NewResponse(&dot1xpb.GetPortResponse{}), nil
}

func (panicHandler) SetPort(context.Context, *connect.Request[dot1xpb.SetPortRequest]) (*connect.Response[dot1xpb.SetPortResponse], error) {
	return connect.NewResponse(&dot1xpb.SetPortResponse{}), nil
}

func (panicHandler) WatchPortEvents(context.Context, *connect.Request[dot1xpb.WatchPortEventsRequest], *connect.ServerStream[dot1xpb.PortEvent]) error {
	return nil
}

// setupServerWithInterceptors creates a test server backed by a real
// dot1x.Context, with the given ConnectRPC handler options.
func setupServerWithInterceptors(
	t *testing.T,
	opts ...connect.HandlerOption,
) dot1xpb.Dot1xServiceClient {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	dctx := newTestContext(t, 1)

	path, handler := server.New(dctx, logger, opts...)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return dot1xpb.NewDot1xServiceClient(srv.Client(), srv.URL)
}

// setupPanicServer creates a test server that panics on ListPorts, using
// the given handler options (interceptors).
func setupPanicServer(
	t *testing.T,
	opts ...connect.HandlerOption,
) dot1xpb.Dot1xServiceClient {
	t.Helper()

	path, handler := dot1xpb.NewDot1xServiceHandler(panicHandler{}, opts...)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return dot1xpb.NewDot1xServiceClient(srv.Client(), srv.URL)
}

// -------------------------------------------------------------------------
// TestLoggingInterceptor
// -------------------------------------------------------------------------

func TestLoggingInterceptorSuccess(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client := setupServerWithInterceptors(t, server.LoggingInterceptorOption(logger))

	resp, err := client.ListPorts(context.Background(), connect.NewRequest(&dot1xpb.ListPortsRequest{}))
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if resp == nil {
		t.Fatal("response is nil")
	}
}

func TestLoggingInterceptorError(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client := setupServerWithInterceptors(t, server.LoggingInterceptorOption(logger))

	_, err := client.GetPort(context.Background(), connect.NewRequest(&dot1xpb.GetPortRequest{Index: 99999}))
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != connect.CodeNotFound {
		t.Errorf("code = %s, want NotFound", connectErr.Code())
	}
}

// -------------------------------------------------------------------------
// TestRecoveryInterceptor
// -------------------------------------------------------------------------

func TestRecoveryInterceptorNoPanic(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client := setupServerWithInterceptors(t, server.RecoveryInterceptorOption(logger))

	resp, err := client.ListPorts(context.Background(), connect.NewRequest(&dot1xpb.ListPortsRequest{}))
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if resp == nil {
		t.Fatal("response is nil")
	}
}

func TestRecoveryInterceptorPanic(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client := setupPanicServer(t, server.RecoveryInterceptorOption(logger))

	_, err := client.ListPorts(context.Background(), connect.NewRequest(&dot1xpb.ListPortsRequest{}))
	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != connect.CodeInternal {
		t.Errorf("code = %s, want Internal", connectErr.Code())
	}
}

// -------------------------------------------------------------------------
// TestBothInterceptors — logging + recovery together
// -------------------------------------------------------------------------

func TestBothInterceptors(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client := setupServerWithInterceptors(t,
		server.LoggingInterceptorOption(logger),
		server.RecoveryInterceptorOption(logger),
	)

	resp, err := client.ListPorts(context.Background(), connect.NewRequest(&dot1xpb.ListPortsRequest{}))
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if resp == nil {
		t.Fatal("response is nil")
	}
}
