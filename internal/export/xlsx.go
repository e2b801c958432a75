// Package export writes completed analyses to spreadsheet files for
// downstream review.
package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/solar-scout/internal/model"
)

// resultColumns defines the ordered output columns.
var resultColumns = []string{
	"Rank",
	"Latitude",
	"Longitude",
	"Score",
	"kWh/day per m²",
	"Land Price USD/m²",
	"Power per Cost",
}

// WriteXLSX writes one analysis to an .xlsx workbook: a summary sheet with
// the request parameters and a results sheet with the ranked sites.
func WriteXLSX(a *model.Analysis, outputPath string) error {
	f := xlsx.NewFile()

	if err := writeSummarySheet(f, a); err != nil {
		return err
	}
	if err := writeResultsSheet(f, a); err != nil {
		return err
	}

	if err := f.Save(outputPath); err != nil {
		return eris.Wrapf(err, "export: save %s", outputPath)
	}
	return nil
}

func writeSummarySheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	addPair := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetString(value)
	}

	addPair("Analysis ID", a.ID)
	addPair("Center", fmt.Sprintf("%.4f, %.4f", a.Request.Center.Lat, a.Request.Center.Lng))
	addPair("Radius (km)", fmt.Sprintf("%.2f", a.Request.RadiusKM))
	addPair("Urban penalty", fmt.Sprintf("%t", a.Request.UrbanPenalty))
	addPair("Land prices", fmt.Sprintf("%t", a.Request.IncludeLandPrices))
	addPair("Rank by cost", fmt.Sprintf("%t", a.Request.RankByCost))
	addPair("Started", a.StartedAt.Format("2006-01-02 15:04:05 UTC"))
	addPair("Completed", a.CompletedAt.Format("2006-01-02 15:04:05 UTC"))
	addPair("Results", fmt.Sprintf("%d", len(a.Results)))

	for _, w := range a.Warnings {
		addPair("Warning", w)
	}
	return nil
}

func writeResultsSheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "export: add results sheet")
	}

	header := sheet.AddRow()
	for _, col := range resultColumns {
		header.AddCell().SetString(col)
	}

	for _, r := range a.Results {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Rank)
		row.AddCell().SetFloat(r.Lat)
		row.AddCell().SetFloat(r.Lng)
		row.AddCell().SetFloat(r.Score)
		row.AddCell().SetFloat(r.KWHPerDay)

		if r.LandPriceUSDM2 != nil {
			row.AddCell().SetFloat(*r.LandPriceUSDM2)
		} else {
			row.AddCell().SetString("")
		}
		if r.PowerPerCost != nil {
			row.AddCell().SetFloat(*r.PowerPerCost)
		} else {
			row.AddCell().SetString("")
		}
	}
	return nil
}
