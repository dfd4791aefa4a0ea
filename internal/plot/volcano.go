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

// minPAdj floors adjusted p-values before the -log10 transform so
// underflowed tests still land on the canvas.
const minPAdj = 1e-300

// Volcano draws -log10 adjusted p-value against log2 fold change with
// the significance thresholds as dashed guides.
func Volcano(rs deseq.Results, alpha, lfcThreshold float64, path string, opts Options) error {
	var sig, rest plotter.XYs
	minLFC, maxLFC := math.Inf(1), math.Inf(-1)
	maxY := 0.0
	for _, r := range rs {
		if math.IsNaN(r.Log2FC) || math.IsNaN(r.PAdj) {
			continue
		}
		padj := r.PAdj
		if padj < minPAdj {
			padj = minPAdj
		}
		xy := plotter.XY{X: r.Log2FC, Y: -math.Log10(padj)}
		if r.Passes(alpha, lfcThreshold) {
			sig = append(sig, xy)
		} else {
			rest = append(rest, xy)
		}
		if xy.X < minLFC {
			minLFC = xy.X
		}
		if xy.X > maxLFC {
			maxLFC = xy.X
		}
		if xy.Y > maxY {
			maxY = xy.Y
		}
	}
	if len(sig)+len(rest) == 0 {
		return fmt.Errorf("volcano plot: no tested genes to draw")
	}

	p := plot.New()
	p.Title.Text = "Volcano plot"
	p.X.Label.Text = "log2 fold change"
	p.Y.Label.Text = "-log10 adjusted p-value"

	for _, guide := range volcanoGuides(alpha, lfcThreshold, minLFC, maxLFC, maxY) {
		line, err := plotter.NewLine(guide)
		if err != nil {
			return fmt.Errorf("volcano plot: %w", err)
		}
		line.LineStyle.Color = colGuide
		line.LineStyle.Dashes = guideDashes
		p.Add(line)
	}

	if len(rest) > 0 {
		bg, err := plotter.NewScatter(rest)
		if err != nil {
			return fmt.Errorf("volcano plot: %w", err)
		}
		bg.GlyphStyle = draw.GlyphStyle{Color: colBackground, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}
		p.Add(bg)
	}
	if len(sig) > 0 {
		fg, err := plotter.NewScatter(sig)
		if err != nil {
			return fmt.Errorf("volcano plot: %w", err)
		}
		fg.GlyphStyle = draw.GlyphStyle{Color: colSignificant, Radius: vg.Points(2), Shape: draw.CircleGlyph{}}
		p.Add(fg)
		p.Legend.Add(fmt.Sprintf("padj < %g, |lfc| >= %g", alpha, lfcThreshold), fg)
		p.Legend.Top = true
	}

	return savePlot(p, path, opts)
}

// volcanoGuides returns the threshold guide lines: one horizontal at
// the p-value cutoff and, for a nonzero threshold, two verticals at
// the fold-change bounds.
func volcanoGuides(alpha, lfcThreshold, minLFC, maxLFC, maxY float64) []plotter.XYs {
	yCut := -math.Log10(alpha)
	top := math.Max(maxY, yCut)
	guides := []plotter.XYs{
		{{X: minLFC, Y: yCut}, {X: maxLFC, Y: yCut}},
	}
	if lfcThreshold > 0 {
		guides = append(guides,
			plotter.XYs{{X: -lfcThreshold, Y: 0}, {X: -lfcThreshold, Y: top}},
			plotter.XYs{{X: lfcThreshold, Y: 0}, {X: lfcThreshold, Y: top}},
		)
	}
	return guides
}
