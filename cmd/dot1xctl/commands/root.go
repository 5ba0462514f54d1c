// Package commands implements the dot1xctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/go8021x/go8021x/pkg/dot1xpb"
)

var (
	// client is the ConnectRPC dot1x management service client, initialized
	// in PersistentPreRunE.
	client dot1xpb.Dot1xServiceClient

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the daemon address (host:port) for the ConnectRPC connection.
	serverAddr string
)

// rootCmd is the top-level cobra command for dot1xctl.
var rootCmd = &cobra.Command{
	Use:   "dot1xctl",
	Short: "CLI client for the dot1xd authenticator daemon",
	Long:  "dot1xctl communicates with the dot1xd daemon via ConnectRPC to inspect and administer 802.1X ports.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		client = dot1xpb.NewDot1xServiceClient(
			http.DefaultClient,
			"http://"+serverAddr,
		)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:50051",
		"dot1xd daemon address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(portCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
