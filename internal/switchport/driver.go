package switchport

import (
	"context"
	"fmt"
	"sync"

	"github.com/ovn-org/libovsdb/ovsdb"

	"github.com/go8021x/go8021x/internal/dot1x"
)

// -------------------------------------------------------------------------
// OVSDB transactor
// -------------------------------------------------------------------------

// Transactor is the subset of github.com/ovn-org/libovsdb/client.Client
// that Driver depends on. The real client satisfies this directly; tests
// substitute a fake.
type Transactor interface {
	Connect(ctx context.Context) error
	Disconnect()
	Transact(ctx context.Context, ops ...ovsdb.Operation) ([]ovsdb.OperationResult, error)
}

// PortName maps a dot1x port index to the OVS Port table row name that
// carries the physical switch port (e.g. "eth0", or a per-port veth in a
// test bridge).
type PortName func(portIndex int) string

// Driver implements dot1x.SwitchPort against an Open vSwitch bridge's
// OVSDB Port table, moving a port between a quarantine VLAN (unauthorized)
// and the production VLAN (authorized).
type Driver struct {
	client         Transactor
	portName       PortName
	quarantineVLAN int
	productionVLAN int

	mu        sync.Mutex
	connected bool
}

// Config holds the VLAN tags used to express authorization state.
type Config struct {
	QuarantineVLAN int
	ProductionVLAN int
}

// NewDriver constructs a Driver. portName resolves a dot1x port index to
// the name of its OVS Port table row.
func NewDriver(client Transactor, portName PortName, cfg Config) *Driver {
	return &Driver{
		client:         client,
		portName:       portName,
		quarantineVLAN: cfg.QuarantineVLAN,
		productionVLAN: cfg.ProductionVLAN,
	}
}

// InstallPAEGroupFilter connects to the OVSDB server. Pinning the PAE
// group MAC (01:80:C2:00:00:03) to the CPU port is the bridge's default
// behavior for addresses in the 802.1D reserved range, so no flow rule is
// installed here beyond establishing the management connection.
func (d *Driver) InstallPAEGroupFilter(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		return nil
	}
	if err := d.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to ovsdb: %w", err)
	}
	d.connected = true
	return nil
}

// RemovePAEGroupFilter disconnects from the OVSDB server.
func (d *Driver) RemovePAEGroupFilter(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil
	}
	d.client.Disconnect()
	d.connected = false
	return nil
}

// SetPortState retags the port's OVS Port row with the VLAN corresponding
// to status.
func (d *Driver) SetPortState(ctx context.Context, portIndex int, status dot1x.PortStatus) error {
	vlan := d.quarantineVLAN
	if status == dot1x.PortStatusAuthorized {
		vlan = d.productionVLAN
	}

	name := d.portName(portIndex)
	op := ovsdb.Operation{
		Op:    ovsdb.OperationUpdate,
		Table: "Port",
		Where: []ovsdb.Condition{
			{Column: "name", Function: ovsdb.ConditionEqual, Value: name},
		},
		Row: ovsdb.Row{"tag": vlan},
	}

	results, err := d.client.Transact(ctx, op)
	if err != nil {
		return fmt.Errorf("retag port %s to vlan %d: %w", name, vlan, err)
	}
	for _, r := range results {
		if r.Error != "" {
			return fmt.Errorf("retag port %s to vlan %d: %s: %s", name, vlan, r.Error, r.Details)
		}
	}
	return nil
}
