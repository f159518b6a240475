package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Run one follow-up scan immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Scheduler.CheckNow(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(followupCmd)
}
