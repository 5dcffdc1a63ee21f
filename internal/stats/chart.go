package stats

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"
)

// ChartFileName is the HTML chart artifact.
const ChartFileName = "lcz_composition.html"

// RenderCharts writes an HTML page with the class composition as a bar chart
// (area per class) and a pie chart (share of total).
func RenderCharts(w io.Writer, place string, records []Record) error {
	if len(records) == 0 {
		return eris.New("stats: no records to chart")
	}
	pd := ToPlotData(records)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "LCZ composition",
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Local Climate Zone composition",
			Subtitle: fmt.Sprintf("%s — area per class (km²)", place),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "km²"}),
	)
	barData := make([]opts.BarData, len(records))
	for i, r := range records {
		barData[i] = opts.BarData{
			Value:     r.TotalAreaKm2,
			ItemStyle: &opts.ItemStyle{Color: r.Color},
		}
	}
	bar.SetXAxis(pd.Labels).AddSeries("area", barData)

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "900px",
			Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Share of analyzed surface",
			Subtitle: place,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	pieData := make([]opts.PieData, len(records))
	for i, r := range records {
		pieData[i] = opts.PieData{
			Name:      r.Symbol,
			Value:     r.TotalAreaKm2,
			ItemStyle: &opts.ItemStyle{Color: r.Color},
		}
	}
	pie.AddSeries("share", pieData,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"30%", "70%"}}),
	)

	page := components.NewPage()
	page.PageTitle = "LCZ composition"
	page.AddCharts(bar, pie)
	if err := page.Render(w); err != nil {
		return eris.Wrap(err, "stats: render charts")
	}
	return nil
}

// SaveCharts renders the composition page to a file.
func SaveCharts(path, place string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "stats: create chart file")
	}
	if err := RenderCharts(f, place, records); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "stats: close chart file")
	}
	return nil
}
