package plot

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/transform"
)

// grid adapts a dense value matrix to the heat map interface. Row r is
// drawn at height r, column c at offset c.
type grid struct {
	values [][]float64
}

func (g grid) Dims() (c, r int) {
	if len(g.values) == 0 {
		return 0, 0
	}
	return len(g.values[0]), len(g.values)
}
func (g grid) Z(c, r int) float64 { return g.values[r][c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// nameTicks places one labeled tick per index.
func nameTicks(names []string) plot.ConstantTicks {
	ticks := make([]plot.Tick, len(names))
	for i, n := range names {
		ticks[i] = plot.Tick{Value: float64(i), Label: n}
	}
	return ticks
}

// SampleDistance draws the Euclidean distance between every pair of
// sample profiles, usually on variance-stabilized values. Similar
// samples show up as dark blocks.
func SampleDistance(m *transform.Matrix, path string, opts Options) error {
	n := m.NSamples()
	if n < 2 {
		return fmt.Errorf("sample distance heatmap: need at least two samples, have %d", n)
	}

	cols := make([][]float64, n)
	for j := 0; j < n; j++ {
		cols[j] = m.Column(j)
	}
	dists := make([][]float64, n)
	for i := range dists {
		dists[i] = make([]float64, n)
		for j := range dists[i] {
			var sum float64
			for g := range cols[i] {
				d := cols[i][g] - cols[j][g]
				sum += d * d
			}
			dists[i][j] = math.Sqrt(sum)
		}
	}

	p := plot.New()
	p.Title.Text = "Sample distances"
	p.X.Tick.Marker = nameTicks(m.Samples)
	p.Y.Tick.Marker = nameTicks(m.Samples)

	hm := plotter.NewHeatMap(grid{values: dists}, palette.Heat(255, 1))
	p.Add(hm)

	return savePlot(p, path, opts)
}

// TopGenes draws the n most variable genes across samples, each row
// centered on its mean so color encodes deviation. n <= 0 picks 30.
func TopGenes(m *transform.Matrix, n int, path string, opts Options) error {
	if n <= 0 {
		n = 30
	}

	type geneVar struct {
		row int
		v   float64
	}
	ranked := make([]geneVar, 0, m.NGenes())
	for i := 0; i < m.NGenes(); i++ {
		v := stat.Variance(m.Row(i), nil)
		if v > 0 {
			ranked = append(ranked, geneVar{row: i, v: v})
		}
	}
	if len(ranked) == 0 {
		return fmt.Errorf("top genes heatmap: no genes with nonzero variance")
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].v > ranked[b].v })
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	names := make([]string, len(ranked))
	values := make([][]float64, len(ranked))
	maxAbs := 0.0
	for i, gv := range ranked {
		row := m.Row(gv.row)
		mean := stat.Mean(row, nil)
		centered := make([]float64, len(row))
		for j, v := range row {
			centered[j] = v - mean
			if a := math.Abs(centered[j]); a > maxAbs {
				maxAbs = a
			}
		}
		names[i] = m.Genes[gv.row]
		values[i] = centered
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d variable genes", len(ranked))
	p.X.Tick.Marker = nameTicks(m.Samples)
	p.Y.Tick.Marker = nameTicks(names)

	hm := plotter.NewHeatMap(grid{values: values}, moreland.SmoothBlueRed().Palette(255))
	// Symmetric limits keep zero deviation at the palette midpoint.
	hm.Min = -maxAbs
	hm.Max = maxAbs
	p.Add(hm)

	return savePlot(p, path, opts)
}
