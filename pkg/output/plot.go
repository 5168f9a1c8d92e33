package output

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Curve is a y(x) curve with its labels.
type Curve struct {
	Title  string
	Name   string
	XLabel string
	YLabel string
	X      []float64
	Y      []float64
}

func (c Curve) check() error {
	if len(c.X) != len(c.Y) {
		return fmt.Errorf("%d x values for %d y values", len(c.X), len(c.Y))
	}
	if len(c.X) == 0 {
		return fmt.Errorf("empty curve")
	}
	return nil
}

// PlotPNG draws the curve and saves it at path. The format is deduced from
// the extension of path (png, svg, pdf...).
func PlotPNG(path string, c Curve) error {
	if err := c.check(); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(c.X))
	for i := range c.X {
		pts[i] = plotter.XY{X: c.X[i], Y: c.Y[i]}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("NewLine: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(c.Name, line)
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// ChartHTML renders the curve as an interactive HTML line chart into w.
func ChartHTML(w io.Writer, c Curve) error {
	if err := c.check(); err != nil {
		return err
	}

	data := make([]opts.LineData, len(c.X))
	for i := range c.X {
		data[i] = opts.LineData{Value: []interface{}{c.X[i], c.Y[i]}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.Title, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: c.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: c.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: c.YLabel, NameLocation: "middle", NameGap: 50}),
	)
	line.AddSeries(c.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	return line.Render(w)
}
