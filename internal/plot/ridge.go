package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
)

const (
	ridgeCurvePoints = 120
	ridgeHeight      = 0.85
)

// Ridge draws stacked fold-change densities for the core genes of the
// top enriched sets, best p-value on top. Sets whose core genes cannot
// be matched to at least two tested genes are skipped. topN <= 0 draws
// up to 8 sets.
func Ridge(rs []enrich.Result, de deseq.Results, topN int, path string, opts Options) error {
	if topN <= 0 {
		topN = 8
	}
	sorted := append([]enrich.Result(nil), rs...)
	enrich.SortByPValue(sorted)
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	type ridgeRow struct {
		name string
		lfcs []float64
	}
	var ridges []ridgeRow
	minLFC, maxLFC := math.Inf(1), math.Inf(-1)
	for _, r := range sorted {
		var lfcs []float64
		for _, gene := range r.Core {
			res, ok := de.ByGene(gene)
			if !ok || math.IsNaN(res.Log2FC) {
				continue
			}
			lfcs = append(lfcs, res.Log2FC)
			if res.Log2FC < minLFC {
				minLFC = res.Log2FC
			}
			if res.Log2FC > maxLFC {
				maxLFC = res.Log2FC
			}
		}
		if len(lfcs) < 2 {
			continue
		}
		ridges = append(ridges, ridgeRow{name: r.SetName, lfcs: lfcs})
	}
	if len(ridges) == 0 {
		return fmt.Errorf("ridge plot: no sets with enough matched core genes")
	}

	lo, hi := minLFC-1, maxLFC+1

	p := plot.New()
	p.Title.Text = "Core gene fold-change distributions"
	p.X.Label.Text = "log2 fold change"

	zero, err := plotter.NewLine(plotter.XYs{
		{X: 0, Y: 0.5},
		{X: 0, Y: float64(len(ridges)) + ridgeHeight},
	})
	if err != nil {
		return fmt.Errorf("ridge plot: %w", err)
	}
	zero.LineStyle.Color = colGuide
	zero.LineStyle.Dashes = guideDashes
	p.Add(zero)

	ticks := make([]plot.Tick, len(ridges))
	for i, row := range ridges {
		base := float64(len(ridges) - i)
		curve := densityCurve(row.lfcs, lo, hi)
		xys := make(plotter.XYs, len(curve))
		for j, c := range curve {
			xys[j] = plotter.XY{X: c.X, Y: base + c.Y*ridgeHeight}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("ridge plot: %w", err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		ticks[i] = plot.Tick{Value: base, Label: row.name}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = 0.5
	p.Y.Max = float64(len(ridges)) + 1

	return savePlot(p, path, opts)
}

// densityCurve evaluates a Gaussian kernel density over [lo, hi],
// normalized to peak at one.
func densityCurve(xs []float64, lo, hi float64) plotter.XYs {
	n := float64(len(xs))
	sd := stat.StdDev(xs, nil)
	h := 1.06 * sd * math.Pow(n, -0.2)
	if h <= 0 {
		h = 0.3
	}

	curve := make(plotter.XYs, ridgeCurvePoints)
	peak := 0.0
	for i := 0; i < ridgeCurvePoints; i++ {
		x := lo + (hi-lo)*float64(i)/float64(ridgeCurvePoints-1)
		var sum float64
		for _, xi := range xs {
			u := (x - xi) / h
			sum += math.Exp(-0.5 * u * u)
		}
		d := sum / (n * h * math.Sqrt(2*math.Pi))
		curve[i] = plotter.XY{X: x, Y: d}
		if d > peak {
			peak = d
		}
	}
	if peak > 0 {
		for i := range curve {
			curve[i].Y /= peak
		}
	}
	return curve
}
