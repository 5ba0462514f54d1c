package commands

import (
	"github.com/reeflective/console"
	"github.com/spf13/cobra"
)

// shellCmd launches an interactive console built on reeflective/console,
// exposing the same port/monitor/version subcommands as the one-shot CLI.
func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive dot1xctl console",
		Long:  "Launches a readline-backed interactive console exposing the port, monitor, and version subcommands.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app := console.New("dot1xctl")
			app.NewlineBefore = true
			app.NewlineAfter = true

			menu := app.ActiveMenu()
			menu.Prompt().Primary = func() string { return "dot1xctl > " }
			menu.SetCommands(shellCommands)

			return app.Start()
		},
	}
}

// shellCommands builds a fresh cobra command tree for each console read,
// mirroring the top-level port/monitor/version commands so they can be
// typed directly at the console prompt without the "dot1xctl" prefix.
func shellCommands() *cobra.Command {
	root := &cobra.Command{
		Use:           "",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(portCmd())
	root.AddCommand(monitorCmd())
	root.AddCommand(versionCmd())

	return root
}
