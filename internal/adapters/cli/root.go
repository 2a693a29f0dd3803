package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	daemonAddr string
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Artifacts bot - multi-character automation daemon",
		Long: `Artifacts bot runs a scheduler per configured character and exposes a
small HTTP control surface.

Examples:
  artifacts daemon --config config.yaml
  artifacts status
  artifacts control reload-config
  artifacts control clear-order-board`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (defaults to ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", getDefaultDaemonAddr(),
		"Base URL of a running daemon's control API")

	rootCmd.AddCommand(NewDaemonCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewOrdersCommand())
	rootCmd.AddCommand(NewControlCommand())

	return rootCmd
}

// getDefaultDaemonAddr returns the default control API address
func getDefaultDaemonAddr() string {
	if addr := os.Getenv("AB_DAEMON_ADDR"); addr != "" {
		return addr
	}
	return "http://127.0.0.1:8080"
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
