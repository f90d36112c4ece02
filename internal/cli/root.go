// Package cli implements the veritas-cli command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://127.0.0.1:8080"

// NewRoot builds the root command.
func NewRoot(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "veritas-cli",
		Short:         "veritas-cli: score URLs and messages for scam risk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.SetVersionTemplate("veritas-cli {{.Version}}\n")

	cmd.PersistentFlags().String("server", getenvDefault("VERITAS_SERVER", defaultServer), "Veritas server base URL")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newRemoteCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

func serverAddr(cmd *cobra.Command) string {
	addr, _ := cmd.Root().PersistentFlags().GetString("server")
	if addr == "" {
		return defaultServer
	}
	return addr
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
