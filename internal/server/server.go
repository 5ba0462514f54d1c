// Package server implements the authenticator management RPC surface
// (SPEC_FULL.md Section 4.12) over connectrpc.com/connect.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/go8021x/go8021x/internal/dot1x"
	"github.com/go8021x/go8021x/internal/mib"
	"github.com/go8021x/go8021x/pkg/dot1xpb"
)

// ErrMissingIndex indicates no port index was provided in a request.
var ErrMissingIndex = errors.New("port index must be a positive integer")

// Dot1xServer implements dot1xpb.Dot1xServiceHandler.
//
// Each RPC delegates to the authenticator Context for actual port
// operations. The server is a thin adapter between the RPC API and the
// internal domain.
type Dot1xServer struct {
	ctx    *dot1x.Context
	logger *slog.Logger
}

// verify interface compliance at compile time.
var _ dot1xpb.Dot1xServiceHandler = (*Dot1xServer)(nil)

// New creates a new Dot1xServer and returns its HTTP path prefix and
// handler.
func New(ctx *dot1x.Context, logger *slog.Logger, opts ...connect.HandlerOption) (string, http.Handler) {
	srv := &Dot1xServer{
		ctx:    ctx,
		logger: logger.With(slog.String("component", "server")),
	}
	return dot1xpb.NewDot1xServiceHandler(srv, opts...)
}

// ListPorts returns every managed port.
func (s *Dot1xServer) ListPorts(ctx context.Context, _ *connect.Request[dot1xpb.ListPortsRequest]) (*connect.Response[dot1xpb.ListPortsResponse], error) {
	s.logger.InfoContext(ctx, "ListPorts called")

	snaps := s.ctx.Snapshot()
	ports := make([]*dot1xpb.Port, 0, len(snaps))
	for _, snap := range snaps {
		ports = append(ports, portToProto(snap))
	}

	return connect.NewResponse(&dot1xpb.ListPortsResponse{Ports: ports}), nil
}

// GetPort returns a single port by index.
func (s *Dot1xServer) GetPort(ctx context.Context, req *connect.Request[dot1xpb.GetPortRequest]) (*connect.Response[dot1xpb.GetPortResponse], error) {
	s.logger.InfoContext(ctx, "GetPort called", slog.Int("index", req.Msg.Index))

	if req.Msg.Index <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrMissingIndex)
	}

	for _, snap := range s.ctx.Snapshot() {
		if snap.Index == req.Msg.Index {
			return connect.NewResponse(&dot1xpb.GetPortResponse{Port: portToProto(snap)}), nil
		}
	}

	return nil, connect.NewError(connect.CodeNotFound,
		fmt.Errorf("port %d: %w", req.Msg.Index, dot1x.ErrInvalidPort))
}

// SetPort applies an administrative PortControl change, two-phase
// (verify-only or commit).
func (s *Dot1xServer) SetPort(ctx context.Context, req *connect.Request[dot1xpb.SetPortRequest]) (*connect.Response[dot1xpb.SetPortResponse], error) {
	s.logger.InfoContext(ctx, "SetPort called",
		slog.Int("index", req.Msg.Index),
		slog.Bool("commit", req.Msg.Phase == dot1xpb.CommitPhaseCommit),
	)

	control, err := portControlFromProto(req.Msg.PortControl)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	commit := req.Msg.Phase == dot1xpb.CommitPhaseCommit
	if err := s.ctx.SetPortControl(req.Msg.Index, control, commit); err != nil {
		return nil, mapContextError(err, "set port")
	}

	for _, snap := range s.ctx.Snapshot() {
		if snap.Index == req.Msg.Index {
			return connect.NewResponse(&dot1xpb.SetPortResponse{Port: portToProto(snap)}), nil
		}
	}
	return nil, connect.NewError(connect.CodeNotFound,
		fmt.Errorf("port %d: %w", req.Msg.Index, dot1x.ErrInvalidPort))
}

// WatchPortEvents streams port state changes (server-side streaming).
func (s *Dot1xServer) WatchPortEvents(
	ctx context.Context,
	req *connect.Request[dot1xpb.WatchPortEventsRequest],
	stream *connect.ServerStream[dot1xpb.PortEvent],
) error {
	s.logger.InfoContext(ctx, "WatchPortEvents called",
		slog.Bool("include_current", req.Msg.IncludeCurrent),
	)

	if req.Msg.IncludeCurrent {
		for _, snap := range s.ctx.Snapshot() {
			ev := &dot1xpb.PortEvent{
				Type:      dot1xpb.PortEventCurrent,
				Port:      portToProto(snap),
				Timestamp: time.Now(),
			}
			if err := stream.Send(ev); err != nil {
				return fmt.Errorf("send current port event: %w", err)
			}
		}
	}

	ch := s.ctx.StateChanges()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("watch port events: %w", ctx.Err())
		case sc, ok := <-ch:
			if !ok {
				return nil
			}
			ev := stateChangeToProto(sc)
			if err := stream.Send(ev); err != nil {
				return fmt.Errorf("send port state change event: %w", err)
			}
		}
	}
}

// -------------------------------------------------------------------------
// Internal helpers
// -------------------------------------------------------------------------

func portToProto(snap dot1x.PortSnapshot) *dot1xpb.Port {
	ms := mib.FromContextSnapshot(snap)

	counters := make(map[string]uint64, len(ms.Counters))
	for name, v := range ms.Counters {
		counters[string(name)] = v
	}

	return &dot1xpb.Port{
		Index:       snap.Index,
		PAEState:    ms.PAEState,
		Status:      portStatusToProto(snap.AuthPortStatus),
		PortControl: dot1xpb.PortControlUnspecified,
		Counters:    counters,
	}
}

func portStatusToProto(s dot1x.PortStatus) dot1xpb.PortState {
	if s == dot1x.PortStatusAuthorized {
		return dot1xpb.PortStateAuthorized
	}
	return dot1xpb.PortStateUnauthorized
}

func portControlFromProto(pc dot1xpb.PortControlMode) (dot1x.PortControl, error) {
	switch pc {
	case dot1xpb.PortControlForceUnauthorized:
		return dot1x.PortControlForceUnauth, nil
	case dot1xpb.PortControlForceAuthorized:
		return dot1x.PortControlForceAuth, nil
	case dot1xpb.PortControlAuto:
		return dot1x.PortControlAuto, nil
	default:
		return 0, fmt.Errorf("port_control %d: %w", pc, dot1x.ErrWrongValue)
	}
}

func stateChangeToProto(sc dot1x.PortStateChange) *dot1xpb.PortEvent {
	return &dot1xpb.PortEvent{
		Type: dot1xpb.PortEventStateChange,
		Port: &dot1xpb.Port{
			Index:    sc.PortIndex,
			PAEState: sc.State.String(),
			Status:   portStatusToProto(sc.Status),
		},
		Cause:     sc.Cause.String(),
		Timestamp: time.Now(),
	}
}

// mapContextError translates dot1x.Context management errors into
// appropriate ConnectRPC error codes.
func mapContextError(err error, operation string) *connect.Error {
	switch {
	case errors.Is(err, dot1x.ErrInvalidPort):
		return connect.NewError(connect.CodeNotFound, fmt.Errorf("%s: %w", operation, err))
	case errors.Is(err, dot1x.ErrWrongValue):
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s: %w", operation, err))
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("%s: %w", operation, err))
	}
}
