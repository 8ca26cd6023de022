// README: Operator CLI: offline quotes, migrations, signatures, dev tokens and the API bench.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetrentctl",
		Short:         "FleetRent operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		quoteCmd(),
		migrateCmd(),
		signCmd(),
		verifySignatureCmd(),
		tokenCmd(),
		benchCmd(),
	)
	return root
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
