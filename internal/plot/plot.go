// Package plot renders the standard diagnostic and result figures of
// an expression analysis as PNG files: dispersion fits, PCA, MA and
// volcano plots, heatmaps, and enrichment dot and ridge plots.
package plot

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Options controls figure dimensions. Zero values fall back to 6x5
// inches.
type Options struct {
	Width  vg.Length
	Height vg.Length
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 6 * vg.Inch
	}
	if h <= 0 {
		h = 5 * vg.Inch
	}
	return w, h
}

// Inches converts a size in inches to the vg length plots use.
func Inches(v float64) vg.Length {
	return vg.Length(v) * vg.Inch
}

var (
	colSignificant = color.RGBA{R: 178, G: 24, B: 43, A: 255}
	colBackground  = color.RGBA{R: 128, G: 128, B: 128, A: 110}
	colGeneWise    = color.RGBA{A: 255}
	colTrend       = color.RGBA{R: 178, G: 24, B: 43, A: 255}
	colFinal       = color.RGBA{R: 33, G: 102, B: 172, A: 255}
	colGuide       = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

var guideDashes = []vg.Length{vg.Points(4), vg.Points(3)}

func savePlot(p *plot.Plot, path string, opts Options) error {
	w, h := opts.size()
	return p.Save(w, h, path)
}

// logAxes puts both axes of a mean-dispersion style figure on log
// scale.
func logAxes(p *plot.Plot) {
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
}
