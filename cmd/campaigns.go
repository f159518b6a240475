package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var campaignsKeepLeads bool

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List and manage campaigns",
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns with lead counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		campaigns, err := env.Store.ListCampaigns(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(campaigns)
	},
}

var campaignsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Store.DeleteCampaign(cmd.Context(), args[0], !campaignsKeepLeads)
	},
}

func init() {
	campaignsDeleteCmd.Flags().BoolVar(&campaignsKeepLeads, "keep-leads", false, "detach the campaign's leads instead of deleting them")
	campaignsCmd.AddCommand(campaignsListCmd, campaignsDeleteCmd)
	rootCmd.AddCommand(campaignsCmd)
}
