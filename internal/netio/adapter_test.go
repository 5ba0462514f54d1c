package netio_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"sync"
	"testing"

	"github.com/go8021x/go8021x/internal/netio"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// -------------------------------------------------------------------------
// mock PAEConn / RadiusConn
// -------------------------------------------------------------------------

type mockPAEConn struct {
	mu      sync.Mutex
	written []writtenFrame
	writeErr error
	closed  bool
}

type writtenFrame struct {
	dst     [6]byte
	payload []byte
}

func (m *mockPAEConn) ReadFrame(buf []byte) (int, netio.FrameMeta, error) {
	return 0, netio.FrameMeta{}, errors.New("not implemented in mock")
}

func (m *mockPAEConn) WriteFrame(dstMAC [6]byte, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.written = append(m.written, writtenFrame{dst: dstMAC, payload: cp})
	return nil
}

func (m *mockPAEConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type mockRadiusConn struct {
	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func (m *mockRadiusConn) ReadPacket(buf []byte) (int, netip.AddrPort, error) {
	return 0, netip.AddrPort{}, errors.New("not implemented in mock")
}

func (m *mockRadiusConn) WritePacket(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.written = append(m.written, cp)
	return nil
}

func (m *mockRadiusConn) Close() error { return nil }

// -------------------------------------------------------------------------
// PAEFrameSender
// -------------------------------------------------------------------------

func TestPAEFrameSenderWritesFrame(t *testing.T) {
	t.Parallel()

	mock := &mockPAEConn{}
	sender := netio.NewPAEFrameSender(mock)

	dst := netio.PAEGroupMAC
	payload := []byte{0x01, 0x02, 0x03}

	if err := sender.SendFrame(context.Background(), 0, dst, payload); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if len(mock.written) != 1 {
		t.Fatalf("expected 1 written frame, got %d", len(mock.written))
	}
	if mock.written[0].dst != dst {
		t.Errorf("dst mismatch: got %v want %v", mock.written[0].dst, dst)
	}
	if string(mock.written[0].payload) != string(payload) {
		t.Errorf("payload mismatch: got %v want %v", mock.written[0].payload, payload)
	}
}

func TestPAEFrameSenderPropagatesError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("socket gone")
	mock := &mockPAEConn{writeErr: wantErr}
	sender := netio.NewPAEFrameSender(mock)

	err := sender.SendFrame(context.Background(), 0, netio.PAEGroupMAC, []byte{0x00})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped %v, got %v", wantErr, err)
	}
}

func TestPAEFrameSenderRespectsCancelledContext(t *testing.T) {
	t.Parallel()

	mock := &mockPAEConn{}
	sender := netio.NewPAEFrameSender(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.SendFrame(ctx, 0, netio.PAEGroupMAC, []byte{0x00})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if len(mock.written) != 0 {
		t.Errorf("expected no frame written after cancellation, got %d", len(mock.written))
	}
}

// -------------------------------------------------------------------------
// RadiusPacketSender
// -------------------------------------------------------------------------

func TestRadiusPacketSenderWritesPacket(t *testing.T) {
	t.Parallel()

	mock := &mockRadiusConn{}
	sender := netio.NewRadiusPacketSender(mock)

	packet := []byte{0x01, 0x02, 0x03, 0x04}
	if err := sender.SendRadius(context.Background(), packet); err != nil {
		t.Fatalf("SendRadius: %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if len(mock.written) != 1 {
		t.Fatalf("expected 1 written packet, got %d", len(mock.written))
	}
	if string(mock.written[0]) != string(packet) {
		t.Errorf("packet mismatch: got %v want %v", mock.written[0], packet)
	}
}

func TestRadiusPacketSenderPropagatesError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("no route to host")
	mock := &mockRadiusConn{writeErr: wantErr}
	sender := netio.NewRadiusPacketSender(mock)

	err := sender.SendRadius(context.Background(), []byte{0x00})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped %v, got %v", wantErr, err)
	}
}

// -------------------------------------------------------------------------
// StubInterfaceMonitor
// -------------------------------------------------------------------------

func TestStubInterfaceMonitorEmitsNoEvents(t *testing.T) {
	t.Parallel()

	logger := newTestLogger()
	mon := netio.NewStubInterfaceMonitor(logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx) }()

	select {
	case ev := <-mon.Events():
		t.Fatalf("expected no events, got %+v", ev)
	default:
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := <-mon.Events(); ok {
		t.Error("expected events channel closed after Run returns")
	}

	if err := mon.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
