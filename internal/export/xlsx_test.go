package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/solar-scout/internal/model"
)

func sampleAnalysis() *model.Analysis {
	price := 95.0
	ppc := 0.065
	return &model.Analysis{
		ID: "an-export-1",
		Request: model.SearchRequest{
			Center:            model.Coordinate{Lat: 30.2672, Lng: -97.7431},
			RadiusKM:          2,
			IncludeLandPrices: true,
		},
		Results: []model.Result{
			{Rank: 1, Lat: 30.27, Lng: -97.75, Score: 0.91, KWHPerDay: 6.2, LandPriceUSDM2: &price, PowerPerCost: &ppc},
			{Rank: 2, Lat: 30.25, Lng: -97.72, Score: 0.85, KWHPerDay: 6.0},
		},
		Warnings:    []string{"land-price API degraded"},
		StartedAt:   time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2026, 8, 1, 9, 0, 10, 0, time.UTC),
	}
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(sampleAnalysis(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	summary := f.Sheet["Summary"]
	require.NotNil(t, summary)
	assert.Equal(t, "Analysis ID", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "an-export-1", summary.Rows[0].Cells[1].String())

	results := f.Sheet["Results"]
	require.NotNil(t, results)
	// Header + 2 result rows.
	require.Len(t, results.Rows, 3)
	assert.Equal(t, "Rank", results.Rows[0].Cells[0].String())

	rank, err := results.Rows[1].Cells[0].Int()
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	// The unpriced row leaves price cells empty.
	assert.Equal(t, "", results.Rows[2].Cells[5].String())
}

func TestWriteXLSX_EmptyResults(t *testing.T) {
	a := sampleAnalysis()
	a.Results = nil

	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(a, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	results := f.Sheet["Results"]
	require.NotNil(t, results)
	assert.Len(t, results.Rows, 1) // header only
}

func TestWriteXLSX_BadPath(t *testing.T) {
	err := WriteXLSX(sampleAnalysis(), filepath.Join(t.TempDir(), "missing-dir", "out.xlsx"))
	assert.Error(t, err)
}
