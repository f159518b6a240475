package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/store"
)

var (
	leadsCampaign string
	leadsStatus   string
	leadsLimit    int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List and manage leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		leads, err := env.Store.ListLeads(cmd.Context(), store.LeadFilter{
			CampaignID: leadsCampaign,
			Status:     model.LeadStatus(leadsStatus),
			Limit:      leadsLimit,
		})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(leads)
	},
}

var leadsSendCmd = &cobra.Command{
	Use:   "send <id>",
	Short: "Send the outreach email for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}

		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Outreach.SendInitial(cmd.Context(), id, "")
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var leadsRepliedCmd = &cobra.Command{
	Use:   "replied <email>",
	Short: "Mark a lead as replied",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Store.MarkReplied(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsCampaign, "campaign", "", "filter by campaign id")
	leadsListCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by status")
	leadsListCmd.Flags().IntVar(&leadsLimit, "limit", 0, "limit results")
	leadsCmd.AddCommand(leadsListCmd, leadsSendCmd, leadsRepliedCmd)
	rootCmd.AddCommand(leadsCmd)
}
