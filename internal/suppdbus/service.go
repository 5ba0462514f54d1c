package suppdbus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/go8021x/go8021x/internal/dot1x"
)

const (
	// BusName is the well-known D-Bus name the service requests on the
	// system bus.
	BusName = "org.freedesktop.dot1x"

	// ObjectPath is the single supplicant object's path; unlike
	// wpa_supplicant there is exactly one managed interface per daemon
	// instance, so no per-interface child objects are created.
	ObjectPath = dbus.ObjectPath("/org/freedesktop/dot1x/Supplicant1")

	// InterfaceName is the D-Bus interface exposing methods.
	InterfaceName = "org.freedesktop.dot1x.Supplicant1"
)

// Service wraps a dot1x.Supplicant and exposes it over D-Bus.
type Service struct {
	supp   *dot1x.Supplicant
	logger *slog.Logger
	props  *prop.Properties
}

// NewService constructs a Service for supp.
func NewService(supp *dot1x.Supplicant, logger *slog.Logger) *Service {
	return &Service{
		supp:   supp,
		logger: logger.With(slog.String("component", "suppdbus.service")),
	}
}

// Export requests BusName and exports the Supplicant1 object and its
// State/EAPMethod properties on conn. It does not block on the bus event
// loop; callers run conn's own dispatch (e.g. via (*dbus.Conn).Auth +
// (*dbus.Conn).Hello, already done by ConnectSystemBus).
func (s *Service) Export(conn *dbus.Conn) error {
	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request dbus name %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("dbus name %s already owned", BusName)
	}

	if err := conn.Export(s, ObjectPath, InterfaceName); err != nil {
		return fmt.Errorf("export %s methods: %w", InterfaceName, err)
	}

	propsSpec := map[string]map[string]*prop.Prop{
		InterfaceName: {
			"State": {
				Value:    s.supp.PAE.State.String(),
				Writable: false,
				Emit:     prop.EmitTrue,
				Callback: nil,
			},
			"EAPMethod": {
				Value:    eapMethodName(s.supp),
				Writable: false,
				Emit:     prop.EmitTrue,
				Callback: nil,
			},
		},
	}
	props, err := prop.Export(conn, ObjectPath, propsSpec)
	if err != nil {
		return fmt.Errorf("export %s properties: %w", InterfaceName, err)
	}
	s.props = props

	s.logger.Info("supplicant dbus service exported", slog.String("bus_name", BusName), slog.String("path", string(ObjectPath)))
	return nil
}

// Refresh updates the exported State/EAPMethod property values after a
// state transition. Call after dot1x.Supplicant.RunFixpoint returns.
// Export must have run first; Refresh is a no-op otherwise.
func (s *Service) Refresh() {
	if s.props == nil {
		return
	}
	_ = s.props.Set(InterfaceName, "State", dbus.MakeVariant(s.supp.PAE.State.String()))
	_ = s.props.Set(InterfaceName, "EAPMethod", dbus.MakeVariant(eapMethodName(s.supp)))
}

// Reauthenticate is the D-Bus method triggering an administrative
// restart of the authentication exchange.
func (s *Service) Reauthenticate() *dbus.Error {
	s.supp.Reauthenticate()
	return nil
}

// Logoff is the D-Bus method requesting an administrative EAPOL-Logoff.
func (s *Service) Logoff() *dbus.Error {
	s.supp.Logoff()
	return nil
}

func eapMethodName(supp *dot1x.Supplicant) string {
	if !supp.Peer.HasSelectedMethod {
		return ""
	}
	return supp.Peer.SelectedMethod.String()
}
