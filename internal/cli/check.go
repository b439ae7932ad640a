package cli

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single evaluation pass and exit",
	Long:  "Performs one refresh-and-evaluate cycle, logging any findings instead of dispatching them, then exits. Useful for smoke testing configuration and connectivity.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckOnce(cmd.Context())
	},
}
