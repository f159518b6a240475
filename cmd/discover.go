package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	discoverMax  int
	discoverJSON bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <query>",
	Short: "Run one acquisition batch for a search query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Pipeline.Run(cmd.Context(), args[0], discoverMax)
		if err != nil {
			return eris.Wrap(err, "run batch")
		}

		if discoverJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		zap.L().Info("discovery complete",
			zap.String("campaign_id", report.CampaignID),
			zap.Int("attempted", report.Attempted),
			zap.Int("persisted", report.Persisted),
		)
		for _, item := range report.Items {
			zap.L().Info("item",
				zap.String("url", item.URL),
				zap.String("outcome", string(item.Outcome)),
				zap.String("reason", item.Reason),
			)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&discoverMax, "max", 10, "maximum results to process")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "print the batch report as JSON")
	rootCmd.AddCommand(discoverCmd)
}
