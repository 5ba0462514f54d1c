package netio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vishvananda/netlink"
)

// -------------------------------------------------------------------------
// Interface Monitor — network interface state change detection
// -------------------------------------------------------------------------

// InterfaceEvent represents a network interface state change. The
// authenticator and supplicant contexts use these to call OnLinkUp /
// OnLinkDown on ports without waiting for EAPOL traffic to reveal a
// dead link (spec.md Section 5: "reacts to link state").
type InterfaceEvent struct {
	IfName  string
	IfIndex int
	Up      bool
}

// InterfaceMonitor watches for network interface state changes and emits
// events when interfaces go up or down.
type InterfaceMonitor interface {
	Run(ctx context.Context) error
	Events() <-chan InterfaceEvent
	Close() error
}

// -------------------------------------------------------------------------
// NetlinkInterfaceMonitor — NETLINK_ROUTE based implementation
// -------------------------------------------------------------------------

// NetlinkInterfaceMonitor subscribes to RTM_NEWLINK/RTM_DELLINK messages
// via github.com/vishvananda/netlink and translates them into
// InterfaceEvents for a single watched interface.
type NetlinkInterfaceMonitor struct {
	ifName string
	events chan InterfaceEvent
	done   chan struct{}
	logger *slog.Logger
}

// NewNetlinkInterfaceMonitor creates a monitor scoped to a single
// interface name (a 802.1X authenticator typically manages one bridge
// or trunk interface carrying all ports' PAE traffic).
func NewNetlinkInterfaceMonitor(ifName string, logger *slog.Logger) *NetlinkInterfaceMonitor {
	return &NetlinkInterfaceMonitor{
		ifName: ifName,
		events: make(chan InterfaceEvent, 16),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "ifmon.netlink"), slog.String("iface", ifName)),
	}
}

// Run subscribes to link updates and translates the ones concerning
// ifName into InterfaceEvents until ctx is cancelled.
func (m *NetlinkInterfaceMonitor) Run(ctx context.Context) error {
	defer close(m.events)

	updates := make(chan netlink.LinkUpdate)
	if err := netlink.LinkSubscribe(updates, m.done); err != nil {
		return fmt.Errorf("subscribe link updates: %w", err)
	}

	m.logger.Info("interface monitor started")

	for {
		select {
		case <-ctx.Done():
			close(m.done)
			m.logger.Info("interface monitor stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Link.Attrs().Name != m.ifName {
				continue
			}
			up := upd.Link.Attrs().Flags&netlink.FlagUp != 0 && upd.Link.Attrs().OperState == netlink.OperUp
			ev := InterfaceEvent{
				IfName:  upd.Link.Attrs().Name,
				IfIndex: upd.Link.Attrs().Index,
				Up:      up,
			}
			select {
			case m.events <- ev:
			case <-ctx.Done():
			}
		}
	}
}

// Events returns the interface state change channel.
func (m *NetlinkInterfaceMonitor) Events() <-chan InterfaceEvent {
	return m.events
}

// Close releases the monitor's netlink subscription.
func (m *NetlinkInterfaceMonitor) Close() error {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	return nil
}

// -------------------------------------------------------------------------
// StubInterfaceMonitor — no-op implementation for tests
// -------------------------------------------------------------------------

// StubInterfaceMonitor is a no-op InterfaceMonitor used in unit tests and
// in environments without CAP_NET_ADMIN.
type StubInterfaceMonitor struct {
	events chan InterfaceEvent
	logger *slog.Logger
}

// NewStubInterfaceMonitor creates a no-op interface monitor.
func NewStubInterfaceMonitor(logger *slog.Logger) *StubInterfaceMonitor {
	return &StubInterfaceMonitor{
		events: make(chan InterfaceEvent, 16),
		logger: logger.With(slog.String("component", "ifmon.stub")),
	}
}

// Run blocks until ctx is cancelled, emitting no events.
func (m *StubInterfaceMonitor) Run(ctx context.Context) error {
	m.logger.Info("stub interface monitor started (no-op)")
	<-ctx.Done()
	close(m.events)
	m.logger.Info("stub interface monitor stopped")
	return nil
}

// Events returns the (always empty) event channel.
func (m *StubInterfaceMonitor) Events() <-chan InterfaceEvent {
	return m.events
}

// Close is a no-op for the stub monitor.
func (m *StubInterfaceMonitor) Close() error {
	return nil
}
