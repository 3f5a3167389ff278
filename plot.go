package main

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// savePlot renders the load latency series of every backend into one chart.
// The image format follows the file extension.
func savePlot(path string, series []loadSeries) error {
	p := plot.New()
	p.Title.Text = "Insert latency during load"
	p.X.Label.Text = "load progress (%)"
	p.Y.Label.Text = "mean latency (ns)"

	var lines []interface{}
	for _, s := range series {
		if len(s.points) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.points))
		for i, v := range s.points {
			pts[i].X = float64(i+1) * 100 / float64(len(s.points))
			pts[i].Y = v
		}
		lines = append(lines, s.label, pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.Wrap(err, "plot")
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot to %s", path)
	}
	return nil
}
