package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the autoinc command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "autoinc",
		Short:        "Auto-increment counter service",
		Long:         "autoinc issues monotonically advancing integers from named counters shared by many processes.",
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to YAML config file")
	root.PersistentFlags().String("driver", "", "Counter store driver: postgres, sqlite or memory")
	root.PersistentFlags().String("dsn", "", "Counter store connection string")
	root.PersistentFlags().String("table", "", "Counter table name")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewNextCmd())
	root.AddCommand(NewPeekCmd())
	root.AddCommand(NewSetCmd())
	root.AddCommand(NewListCmd())

	return root
}
