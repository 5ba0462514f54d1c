// dot1xsupp -- IEEE 802.1X supplicant (single-port EAP peer).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"

	"github.com/go8021x/go8021x/internal/config"
	"github.com/go8021x/go8021x/internal/dot1x"
	"github.com/go8021x/go8021x/internal/netio"
	"github.com/go8021x/go8021x/internal/suppdbus"
	appversion "github.com/go8021x/go8021x/internal/version"
)

// eapolReadBufSize is sized for the largest EAPOL frame this supplicant
// expects to receive (EAP-TLS fragments included).
const eapolReadBufSize = 1600

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLogger(cfg.Log, logLevel)

	logger.Info("dot1xsupp starting",
		slog.String("version", appversion.Version),
		slog.String("iface", cfg.Supp.IfaceName),
		slog.String("username", cfg.Supp.Username),
	)

	paeConn, err := netio.NewPAEConn(cfg.Supp.IfaceName)
	if err != nil {
		logger.Error("failed to open PAE socket", slog.String("error", err.Error()))
		return 1
	}
	defer paeConn.Close()

	supp, err := newSupplicant(cfg, paeConn, logger)
	if err != nil {
		logger.Error("failed to create supplicant", slog.String("error", err.Error()))
		return 1
	}

	if err := runSupplicant(supp, paeConn, logger); err != nil {
		logger.Error("dot1xsupp exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("dot1xsupp stopped")
	return 0
}

// newSupplicant builds the dot1x.Supplicant, wiring the netio transport
// adapter as its FrameSender collaborator. EAP-TLS is left unconfigured:
// the TLS stack is an external collaborator per spec.md Section 1, and no
// pack example repo ships a standalone EAP-TLS session callback to adopt.
func newSupplicant(cfg *config.Config, pae *netio.LinuxPAEConn, logger *slog.Logger) (*dot1x.Supplicant, error) {
	scfg := dot1x.SupplicantConfig{
		Username:      cfg.Supp.Username,
		Password:      cfg.Supp.Password,
		StartPeriod:   cfg.Supp.StartPeriod,
		MaxStart:      cfg.Supp.MaxStart,
		HeldPeriod:    cfg.Supp.HeldPeriod,
		AuthPeriod:    cfg.Supp.AuthPeriod,
		ClientTimeout: cfg.Supp.ClientTimeout,
		AllowCanned:   cfg.Supp.AllowCanned,
		PortValid:     true,
		Acceptable:    methodsFromStrings(cfg.Supp.Acceptable),
	}

	return dot1x.NewSupplicant(scfg, netio.NewPAEFrameSender(pae), logger), nil
}

func methodsFromStrings(names []string) []dot1x.MethodType {
	out := make([]dot1x.MethodType, 0, len(names))
	for _, n := range names {
		switch n {
		case "identity":
			out = append(out, dot1x.MethodIdentity)
		case "notification":
			out = append(out, dot1x.MethodNotification)
		case "md5":
			out = append(out, dot1x.MethodMD5Challenge)
		case "tls":
			out = append(out, dot1x.MethodTLS)
		}
	}
	return out
}

// runSupplicant runs the EAPOL reader, the supplicant's event loop, and
// its D-Bus control surface (SPEC_FULL.md Section 4.13) until signaled.
func runSupplicant(supp *dot1x.Supplicant, pae *netio.LinuxPAEConn, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, conn := newDBusService(supp, logger)
	if conn != nil {
		defer conn.Close()
	}

	eapolCh := make(chan dot1x.EAPOLFrame, 64)
	errCh := make(chan error, 1)

	go func() {
		errCh <- runEAPOLReader(ctx, pae, eapolCh, logger)
	}()

	supp.Reauthenticate()
	if svc != nil {
		svc.Refresh()
	}

	notifyReady(logger)

	go func() {
		<-ctx.Done()
		notifyStopping(logger)
	}()

	supp.Run(ctx, eapolCh)
	if svc != nil {
		svc.Refresh()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run eapol reader: %w", err)
		}
	default:
	}
	return nil
}

// newDBusService connects the system bus and exports the supplicant's
// D-Bus control surface. Absence of a system bus (e.g. a container
// without dbus-daemon) is not fatal: the supplicant still authenticates,
// it just cannot be driven by a desktop network manager.
func newDBusService(supp *dot1x.Supplicant, logger *slog.Logger) (*suppdbus.Service, *dbus.Conn) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		logger.Warn("dbus system bus unavailable, control surface disabled", slog.String("error", err.Error()))
		return nil, nil
	}

	svc := suppdbus.NewService(supp, logger)
	if err := svc.Export(conn); err != nil {
		logger.Warn("failed to export dbus service, control surface disabled", slog.String("error", err.Error()))
		conn.Close()
		return nil, nil
	}
	return svc, conn
}

// runEAPOLReader reads raw frames from the PAE socket, decodes them, and
// forwards well-formed EAPOL frames to the supplicant's event loop.
func runEAPOLReader(ctx context.Context, pae *netio.LinuxPAEConn, out chan<- dot1x.EAPOLFrame, logger *slog.Logger) error {
	buf := make([]byte, eapolReadBufSize)
	for {
		if ctx.Err() != nil {
			return nil //nolint:nilerr // context cancellation is a clean shutdown, not an error to propagate
		}

		n, _, err := pae.ReadFrame(buf)
		if err != nil {
			if errors.Is(err, netio.ErrSocketClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read eapol frame: %w", err)
		}

		frame, err := dot1x.DecodeEAPOL(buf[:n])
		if err != nil {
			logger.Debug("dropped invalid eapol frame", slog.String("error", err.Error()))
			continue
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return nil
		}
	}
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLogger(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
