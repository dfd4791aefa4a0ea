package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
)

// Dot draws an enrichment dot plot: one row per gene set, best p-value
// on top, dot position giving the gene ratio, dot size the overlap, and
// dot color the adjusted p-value. topN <= 0 draws up to 20 sets.
func Dot(rs []enrich.Result, topN int, path string, opts Options) error {
	if len(rs) == 0 {
		return fmt.Errorf("dot plot: no enrichment results to draw")
	}
	if topN <= 0 {
		topN = 20
	}

	sorted := append([]enrich.Result(nil), rs...)
	enrich.SortByPValue(sorted)
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	k := len(sorted)
	maxOverlap := 0
	maxPAdj := 0.0
	for _, r := range sorted {
		if r.Overlap > maxOverlap {
			maxOverlap = r.Overlap
		}
		if r.PAdj > maxPAdj {
			maxPAdj = r.PAdj
		}
	}
	if maxOverlap == 0 {
		maxOverlap = 1
	}
	if maxPAdj <= 0 {
		maxPAdj = 1
	}

	cm := moreland.Kindlmann()
	cm.SetMin(0)
	cm.SetMax(maxPAdj)

	xys := make(plotter.XYs, k)
	names := make([]string, k)
	for i, r := range sorted {
		// Best result at the top row.
		xys[i] = plotter.XY{X: r.GeneRatio, Y: float64(k - i)}
		names[i] = r.SetName
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("dot plot: %w", err)
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		r := sorted[i]
		padj := r.PAdj
		if padj > maxPAdj {
			padj = maxPAdj
		}
		col, err := cm.At(padj)
		if err != nil {
			col = colSignificant
		}
		radius := vg.Points(2 + 5*float64(r.Overlap)/float64(maxOverlap))
		return draw.GlyphStyle{Color: col, Radius: radius, Shape: draw.CircleGlyph{}}
	}

	p := plot.New()
	p.Title.Text = "Enriched gene sets"
	p.X.Label.Text = "gene ratio"
	ticks := make([]plot.Tick, k)
	for i, name := range names {
		ticks[i] = plot.Tick{Value: float64(k - i), Label: name}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = 0.5
	p.Y.Max = float64(k) + 0.5
	p.Add(plotter.NewGrid(), sc)

	return savePlot(p, path, opts)
}
