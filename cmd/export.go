package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/store"
)

var (
	exportOut      string
	exportCampaign string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		leads, err := env.Store.ListLeads(cmd.Context(), store.LeadFilter{
			CampaignID: exportCampaign,
		})
		if err != nil {
			return err
		}

		if err := writeLeadsXLSX(exportOut, leads); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.Int("leads", len(leads)),
		)
		return nil
	},
}

var leadExportHeader = []string{
	"ID", "Email", "Company", "Website", "Phone", "Location", "Industry",
	"Status", "Contact Confidence", "Campaign", "Created", "Last Contacted",
	"Pain Points", "Description",
}

// writeLeadsXLSX writes leads to an XLSX workbook with one header row.
func writeLeadsXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range leadExportHeader {
		header.AddCell().Value = col
	}

	for _, lead := range leads {
		row := sheet.AddRow()
		row.AddCell().Value = strconv.FormatInt(lead.ID, 10)
		row.AddCell().Value = lead.Email
		row.AddCell().Value = lead.CompanyName
		row.AddCell().Value = lead.Profile.WebsiteURL
		row.AddCell().Value = lead.Profile.Phone
		row.AddCell().Value = lead.Profile.Location
		row.AddCell().Value = lead.Profile.Industry
		row.AddCell().Value = string(lead.Status)
		row.AddCell().Value = string(lead.Profile.ContactConfidence)
		row.AddCell().Value = lead.CampaignID
		row.AddCell().Value = lead.CreatedAt.Format(time.RFC3339)
		if lead.LastContactedAt != nil {
			row.AddCell().Value = lead.LastContactedAt.Format(time.RFC3339)
		} else {
			row.AddCell().Value = ""
		}
		row.AddCell().Value = strings.Join(lead.Profile.PainPoints, "; ")
		row.AddCell().Value = lead.Profile.Description
	}

	return eris.Wrap(f.Save(path), "xlsx: save")
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "leads.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportCampaign, "campaign", "", "restrict to one campaign")
	rootCmd.AddCommand(exportCmd)
}
