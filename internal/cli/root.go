package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/logging"
)

// NewRootCmd builds the meli-analyze command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meli-analyze",
		Short:         "Pricing and competitive-position analytics for Mercado Livre listings",
		Long:          "Runs the listing analytics offline: price resolution, cost breakdown, catalog position, ads efficiency and advisories.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout carries the report
			level, _ := cmd.Flags().GetString("log-level")
			slog.SetDefault(logging.NewLogger(cmd.ErrOrStderr(), level))
		},
	}

	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newReportCmd())
	root.AddCommand(newFeesCmd())
	return root
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
