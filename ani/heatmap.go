package ani

import (
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/gonum/floats"
)

// RenderHeatmap writes m as an interactive HTML heatmap.
func RenderHeatmap(m IdentityMatrix, path string) error {
	var data []opts.HeatMapData
	var all []float64
	for i, row := range m.Values {
		for j, v := range row {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
			all = append(all, v)
		}
	}
	low, high := 0.0, 1.0
	if len(all) > 0 {
		low, high = floats.Min(all), floats.Max(all)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Average nucleotide identity"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: m.Names}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min: float32(low),
			Max: float32(high),
			InRange: &opts.VisualMapInRange{
				Color: []string{"#f7fbff", "#6baed6", "#08306b"},
			},
		}),
	)
	hm.SetXAxis(m.Names).AddSeries("ANI", data)

	page := components.NewPage()
	page.AddCharts(hm)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
