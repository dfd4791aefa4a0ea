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

// Dispersion draws the mean-dispersion fit: gene-wise estimates in
// black, the fitted trend in red, and the shrunken values in blue with
// kept outliers as rings. Both axes are log scale, so genes without a
// positive mean or dispersion are left out.
func Dispersion(baseMeans []float64, disp deseq.Dispersions, path string, opts Options) error {
	if len(baseMeans) != len(disp.GeneWise) {
		return fmt.Errorf("dispersion plot: %d base means for %d genes", len(baseMeans), len(disp.GeneWise))
	}

	var geneWise, final, outliers plotter.XYs
	minMean, maxMean := math.Inf(1), math.Inf(-1)
	for i, mean := range baseMeans {
		if mean <= 0 {
			continue
		}
		if mean < minMean {
			minMean = mean
		}
		if mean > maxMean {
			maxMean = mean
		}
		if disp.GeneWise[i] > 0 {
			geneWise = append(geneWise, plotter.XY{X: mean, Y: disp.GeneWise[i]})
		}
		if disp.Final[i] > 0 {
			xy := plotter.XY{X: mean, Y: disp.Final[i]}
			if disp.Outlier[i] {
				outliers = append(outliers, xy)
			} else {
				final = append(final, xy)
			}
		}
	}
	if len(geneWise) == 0 {
		return fmt.Errorf("dispersion plot: no genes with a positive mean and dispersion")
	}

	p := plot.New()
	p.Title.Text = "Dispersion estimates"
	p.X.Label.Text = "mean of normalized counts"
	p.Y.Label.Text = "dispersion"
	logAxes(p)

	gw, err := plotter.NewScatter(geneWise)
	if err != nil {
		return fmt.Errorf("dispersion plot: %w", err)
	}
	gw.GlyphStyle = draw.GlyphStyle{Color: colGeneWise, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}
	p.Add(gw)
	p.Legend.Add("gene-wise", gw)

	if len(final) > 0 {
		fin, err := plotter.NewScatter(final)
		if err != nil {
			return fmt.Errorf("dispersion plot: %w", err)
		}
		fin.GlyphStyle = draw.GlyphStyle{Color: colFinal, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}
		p.Add(fin)
		p.Legend.Add("final", fin)
	}

	if len(outliers) > 0 {
		out, err := plotter.NewScatter(outliers)
		if err != nil {
			return fmt.Errorf("dispersion plot: %w", err)
		}
		out.GlyphStyle = draw.GlyphStyle{Color: colFinal, Radius: vg.Points(2.5), Shape: draw.RingGlyph{}}
		p.Add(out)
		p.Legend.Add("outlier", out)
	}

	trend, err := plotter.NewLine(trendCurve(disp.TrendCoef, minMean, maxMean))
	if err != nil {
		return fmt.Errorf("dispersion plot: %w", err)
	}
	trend.LineStyle.Color = colTrend
	trend.LineStyle.Width = vg.Points(1.5)
	p.Add(trend)
	p.Legend.Add("trend", trend)

	p.Legend.Top = true
	return savePlot(p, path, opts)
}

// trendCurve samples the fitted trend at log-spaced means.
func trendCurve(tc deseq.TrendCoefficients, minMean, maxMean float64) plotter.XYs {
	const points = 120
	if maxMean <= minMean {
		maxMean = minMean * 10
	}
	logMin, logMax := math.Log(minMean), math.Log(maxMean)
	xys := make(plotter.XYs, 0, points)
	for i := 0; i < points; i++ {
		q := math.Exp(logMin + (logMax-logMin)*float64(i)/float64(points-1))
		d := tc.At(q)
		if d <= 0 {
			continue
		}
		xys = append(xys, plotter.XY{X: q, Y: d})
	}
	return xys
}
