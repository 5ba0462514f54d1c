package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/go8021x/go8021x/pkg/dot1xpb"
)

// errUnknownPortControl is returned when --control does not name a
// recognized administrative mode.
var errUnknownPortControl = errors.New("unknown port_control, expected force-unauth, force-auth, or auto")

func portCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "port",
		Short: "Manage 802.1X authenticator ports",
	}

	cmd.AddCommand(portListCmd())
	cmd.AddCommand(portShowCmd())
	cmd.AddCommand(portSetCmd())

	return cmd
}

// --- port list ---

func portListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all authenticator ports",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := client.ListPorts(context.Background(), connect.NewRequest(&dot1xpb.ListPortsRequest{}))
			if err != nil {
				return fmt.Errorf("list ports: %w", err)
			}

			out, err := formatPorts(resp.Msg.Ports, outputFormat)
			if err != nil {
				return fmt.Errorf("format ports: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

// --- port show ---

func portShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <index>",
		Short: "Show details of one authenticator port",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse port index %q: %w", args[0], err)
			}

			resp, err := client.GetPort(context.Background(), connect.NewRequest(&dot1xpb.GetPortRequest{Index: idx}))
			if err != nil {
				return fmt.Errorf("get port: %w", err)
			}

			out, err := formatPort(resp.Msg.Port, outputFormat)
			if err != nil {
				return fmt.Errorf("format port: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

// --- port set ---

func portSetCmd() *cobra.Command {
	var (
		control string
		commit  bool
	)

	cmd := &cobra.Command{
		Use:   "set <index>",
		Short: "Change a port's administrative PortControl",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse port index %q: %w", args[0], err)
			}

			pc, err := parsePortControl(control)
			if err != nil {
				return fmt.Errorf("parse port_control: %w", err)
			}

			phase := dot1xpb.CommitPhaseVerifyOnly
			if commit {
				phase = dot1xpb.CommitPhaseCommit
			}

			resp, err := client.SetPort(context.Background(), connect.NewRequest(&dot1xpb.SetPortRequest{
				Index:       idx,
				PortControl: pc,
				Phase:       phase,
			}))
			if err != nil {
				return fmt.Errorf("set port: %w", err)
			}

			if !commit {
				fmt.Println("Verified; rerun with --commit to apply.")
				return nil
			}

			out, err := formatPort(resp.Msg.Port, outputFormat)
			if err != nil {
				return fmt.Errorf("format port: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&control, "control", "auto", "port_control: force-unauth, force-auth, or auto")
	flags.BoolVar(&commit, "commit", false, "apply the change (otherwise the request is verify-only)")

	return cmd
}

func parsePortControl(s string) (dot1xpb.PortControlMode, error) {
	switch s {
	case "force-unauth":
		return dot1xpb.PortControlForceUnauthorized, nil
	case "force-auth":
		return dot1xpb.PortControlForceAuthorized, nil
	case "auto":
		return dot1xpb.PortControlAuto, nil
	default:
		return dot1xpb.PortControlUnspecified, fmt.Errorf("%w: %q", errUnknownPortControl, s)
	}
}
