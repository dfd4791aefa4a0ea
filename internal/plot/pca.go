package plot

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/transform"
)

// PCA draws the first two principal components with explained variance
// in the axis labels. Conditions pick the color and, when more than one
// batch is present, batches pick the glyph shape.
func PCA(pc *transform.PCAResult, samples *counts.SampleTable, path string, opts Options) error {
	if pc.Coords == nil || len(pc.PercentVar) < 2 {
		return fmt.Errorf("pca plot: need at least two components")
	}

	meta := make(map[string]counts.Sample, len(samples.Samples))
	for _, s := range samples.Samples {
		meta[s.Name] = s
	}

	type group struct {
		condition string
		batch     string
	}
	points := make(map[group]plotter.XYs)
	batches := make(map[string]bool)
	for i, name := range pc.Samples {
		s, ok := meta[name]
		if !ok {
			return fmt.Errorf("pca plot: sample %q has no metadata", name)
		}
		g := group{condition: s.Condition, batch: s.Batch}
		points[g] = append(points[g], plotter.XY{X: pc.Coord(i, 0), Y: pc.Coord(i, 1)})
		batches[s.Batch] = true
	}

	groups := make([]group, 0, len(points))
	for g := range points {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].condition != groups[j].condition {
			return groups[i].condition < groups[j].condition
		}
		return groups[i].batch < groups[j].batch
	})

	conditionIdx := make(map[string]int)
	batchIdx := make(map[string]int)
	for _, g := range groups {
		if _, ok := conditionIdx[g.condition]; !ok {
			conditionIdx[g.condition] = len(conditionIdx)
		}
		if _, ok := batchIdx[g.batch]; !ok {
			batchIdx[g.batch] = len(batchIdx)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("PCA (top %d genes)", pc.GenesUsed)
	p.X.Label.Text = fmt.Sprintf("PC1 (%.1f%%)", pc.PercentVar[0])
	p.Y.Label.Text = fmt.Sprintf("PC2 (%.1f%%)", pc.PercentVar[1])
	p.Add(plotter.NewGrid())

	for _, g := range groups {
		sc, err := plotter.NewScatter(points[g])
		if err != nil {
			return fmt.Errorf("pca plot: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  plotutil.Color(conditionIdx[g.condition]),
			Radius: vg.Points(3.5),
			Shape:  plotutil.Shape(batchIdx[g.batch]),
		}
		p.Add(sc)

		label := g.condition
		if len(batches) > 1 {
			label = fmt.Sprintf("%s / %s", g.condition, g.batch)
		}
		p.Legend.Add(label, sc)
	}

	p.Legend.Top = true
	return savePlot(p, path, opts)
}
