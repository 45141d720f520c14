package trajectory

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotTopDown saves an x-z view of the camera path to path. The image format follows the
// extension.
func PlotTopDown(path, title string, records []Record) error {
	if len(records) == 0 {
		return errors.New("no poses to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "z"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, 0, len(records))
	for _, rec := range records {
		pts = append(pts, plotter.XY{X: rec.Translation.X, Y: rec.Translation.Z})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "cannot build trajectory line")
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{B: 200, A: 255}
	p.Add(line)

	start, err := plotter.NewScatter(pts[:1])
	if err != nil {
		return errors.Wrap(err, "cannot mark trajectory start")
	}
	start.Color = color.RGBA{G: 160, A: 255}
	p.Add(start)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "cannot save trajectory plot %q", path)
	}
	return nil
}
