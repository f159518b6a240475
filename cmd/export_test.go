package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/prospectline/leadgen/internal/model"
)

func TestWriteLeadsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	contacted := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	leads := []model.Lead{
		{
			ID:          1,
			Email:       "info@acme.com",
			CompanyName: "Acme Plumbing",
			CampaignID:  "abc12345",
			Status:      model.LeadStatusEmailed,
			CreatedAt:   time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC),
			Profile: model.CompanyProfile{
				WebsiteURL:        "https://acme.com",
				Phone:             "555-0100",
				Location:          "Austin, TX",
				Industry:          "Home services",
				ContactConfidence: model.ContactObserved,
				PainPoints:        []string{"seasonal demand", "scheduling"},
				Description:       "Plumbing in Austin.",
			},
			LastContactedAt: &contacted,
		},
		{
			ID:        2,
			Email:     "hello@other.com",
			Status:    model.LeadStatusFound,
			CreatedAt: time.Date(2026, 8, 16, 9, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, writeLeadsXLSX(path, leads))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Leads", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	header := sheet.Rows[0]
	require.Len(t, header.Cells, len(leadExportHeader))
	assert.Equal(t, "ID", header.Cells[0].Value)
	assert.Equal(t, "Description", header.Cells[len(header.Cells)-1].Value)

	first := sheet.Rows[1]
	assert.Equal(t, "1", first.Cells[0].Value)
	assert.Equal(t, "info@acme.com", first.Cells[1].Value)
	assert.Equal(t, "Acme Plumbing", first.Cells[2].Value)
	assert.Equal(t, "emailed", first.Cells[7].Value)
	assert.Equal(t, "observed", first.Cells[8].Value)
	assert.Equal(t, "2026-08-20T10:00:00Z", first.Cells[11].Value)
	assert.Equal(t, "seasonal demand; scheduling", first.Cells[12].Value)

	second := sheet.Rows[2]
	assert.Equal(t, "hello@other.com", second.Cells[1].Value)
	assert.Equal(t, "", second.Cells[11].Value, "never contacted")
}

func TestWriteLeadsXLSX_EmptyLeads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, writeLeadsXLSX(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 1, "header only")
}
