package stats

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXFileName is the spreadsheet artifact.
const XLSXFileName = "lcz_stats.xlsx"

var xlsxHeader = []string{
	"Symbol", "Code", "Description", "Total area (km²)", "Share (%)",
	"Polygons", "Mean (km²)", "Std dev (km²)", "Min (km²)", "Max (km²)",
}

// WriteXLSX exports the records as a single-sheet workbook with one row per
// class plus a totals row.
func WriteXLSX(path string, records []Record) error {
	if len(records) == 0 {
		return eris.New("stats: no records to export")
	}

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("LCZ statistics")
	if err != nil {
		return eris.Wrap(err, "stats: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Symbol)
		row.AddCell().SetInt(r.Code)
		row.AddCell().SetString(r.Description)
		row.AddCell().SetFloatWithFormat(r.TotalAreaKm2, "0.000")
		row.AddCell().SetFloatWithFormat(r.PercentageOfTotal, "0.00")
		row.AddCell().SetInt(r.PolygonCount)
		row.AddCell().SetFloatWithFormat(r.MeanAreaKm2, "0.000")
		row.AddCell().SetFloatWithFormat(r.StdAreaKm2, "0.000")
		row.AddCell().SetFloatWithFormat(r.MinAreaKm2, "0.000")
		row.AddCell().SetFloatWithFormat(r.MaxAreaKm2, "0.000")
	}

	s := Summarize(records)
	totals := sheet.AddRow()
	totals.AddCell().SetString("Total")
	totals.AddCell().SetString("")
	totals.AddCell().SetString(fmt.Sprintf("%d classes", s.ClassCount))
	totals.AddCell().SetFloatWithFormat(s.GrandTotalKm2, "0.000")
	totals.AddCell().SetFloatWithFormat(100, "0.00")
	totals.AddCell().SetInt(s.PolygonCount)

	if err := wb.Save(path); err != nil {
		return eris.Wrap(err, "stats: save workbook")
	}
	return nil
}
