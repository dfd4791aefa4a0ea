package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
)

// MA draws log2 fold change against mean expression, significant genes
// in red. The mean axis is log scale, so genes with zero counts are
// left out.
func MA(rs deseq.Results, alpha, lfcThreshold float64, path string, opts Options) error {
	var sig, rest plotter.XYs
	minMean, maxMean := math.Inf(1), math.Inf(-1)
	for _, r := range rs {
		if r.BaseMean <= 0 || math.IsNaN(r.Log2FC) {
			continue
		}
		xy := plotter.XY{X: r.BaseMean, Y: r.Log2FC}
		if r.Passes(alpha, lfcThreshold) {
			sig = append(sig, xy)
		} else {
			rest = append(rest, xy)
		}
		if r.BaseMean < minMean {
			minMean = r.BaseMean
		}
		if r.BaseMean > maxMean {
			maxMean = r.BaseMean
		}
	}
	if len(sig)+len(rest) == 0 {
		return fmt.Errorf("ma plot: no expressed genes to draw")
	}

	p := plot.New()
	p.Title.Text = "MA plot"
	p.X.Label.Text = "mean of normalized counts"
	p.Y.Label.Text = "log2 fold change"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	zero, err := plotter.NewLine(plotter.XYs{{X: minMean, Y: 0}, {X: maxMean, Y: 0}})
	if err != nil {
		return fmt.Errorf("ma plot: %w", err)
	}
	zero.LineStyle.Color = colGuide
	zero.LineStyle.Dashes = guideDashes
	p.Add(zero)

	if len(rest) > 0 {
		bg, err := plotter.NewScatter(rest)
		if err != nil {
			return fmt.Errorf("ma plot: %w", err)
		}
		bg.GlyphStyle = draw.GlyphStyle{Color: colBackground, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}
		p.Add(bg)
	}
	if len(sig) > 0 {
		fg, err := plotter.NewScatter(sig)
		if err != nil {
			return fmt.Errorf("ma plot: %w", err)
		}
		fg.GlyphStyle = draw.GlyphStyle{Color: colSignificant, Radius: vg.Points(2), Shape: draw.CircleGlyph{}}
		p.Add(fg)
		p.Legend.Add(fmt.Sprintf("padj < %g, |lfc| >= %g", alpha, lfcThreshold), fg)
		p.Legend.Top = true
	}

	return savePlot(p, path, opts)
}
