package cli

import (
	"github.com/spf13/cobra"
)

var (
	includeNoisy bool
	publisherKey string
	ignore       []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring loops",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		if cmd.Flags().Changed("include-noisy") {
			a.Config.Observer.IncludeNoisy = includeNoisy
		}
		if publisherKey != "" {
			a.Config.Observer.PublisherKey = publisherKey
		}
		if len(ignore) > 0 {
			a.Config.Observer.Ignore = append(a.Config.Observer.Ignore, ignore...)
		}
		return a.Run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVarP(&includeNoisy, "include-noisy", "N", false, "Include alerts that may be excessively noisy across all publishers")
	runCmd.Flags().StringVarP(&publisherKey, "publisher-key", "k", "", "Restrict component checks to a single publisher key")
	runCmd.Flags().StringSliceVar(&ignore, "ignore", nil, "Symbol/error patterns to ignore, e.g. 'Crypto.ORCA/USD' or 'FX.*/price-feed-offline'")
}
