package transform

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCAResult holds sample coordinates in principal component space.
type PCAResult struct {
	Samples    []string
	Coords     *mat.Dense // samples × components
	PercentVar []float64
	GenesUsed  int
}

// Coord returns the coordinate of sample i on component c.
func (r *PCAResult) Coord(i, c int) float64 { return r.Coords.At(i, c) }

// PCA projects samples onto principal components computed from the
// topGenes most variable rows. Samples are the observations and gene
// values are centered before projection. PercentVar is each component's
// share of the total variance. topGenes <= 0 uses all genes;
// components <= 0 defaults to 2.
func PCA(m *Matrix, topGenes, components int) (*PCAResult, error) {
	n := m.NSamples()
	if n < 2 {
		return nil, fmt.Errorf("pca: need at least two samples, have %d", n)
	}
	if components <= 0 {
		components = 2
	}

	rows := topVarianceRows(m, topGenes)
	g := len(rows)
	if g == 0 {
		return nil, fmt.Errorf("pca: no genes with nonzero variance")
	}

	// Observations are samples, variables are genes.
	data := mat.NewDense(n, g, nil)
	for k, row := range rows {
		for j := 0; j < n; j++ {
			data.Set(j, k, m.At(row, j))
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("pca: decomposition failed")
	}
	vars := pc.VarsTo(nil)
	if components > len(vars) {
		components = len(vars)
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)

	// Center each gene column, then project onto the leading components.
	centered := mat.NewDense(n, g, nil)
	col := make([]float64, n)
	for k := 0; k < g; k++ {
		mat.Col(col, k, data)
		mean := stat.Mean(col, nil)
		for j := 0; j < n; j++ {
			centered.Set(j, k, data.At(j, k)-mean)
		}
	}
	var proj mat.Dense
	proj.Mul(centered, vec.Slice(0, g, 0, components))

	total := 0.0
	for _, v := range vars {
		total += v
	}
	percent := make([]float64, components)
	for i := range percent {
		if total > 0 {
			percent[i] = 100 * vars[i] / total
		}
	}

	return &PCAResult{
		Samples:    m.Samples,
		Coords:     &proj,
		PercentVar: percent,
		GenesUsed:  g,
	}, nil
}

// topVarianceRows returns the indices of the topGenes rows with the
// highest variance across samples, ties kept in row order. Rows with
// zero variance carry no signal and are skipped.
func topVarianceRows(m *Matrix, topGenes int) []int {
	type geneVar struct {
		row int
		v   float64
	}
	ranked := make([]geneVar, 0, m.NGenes())
	for i := 0; i < m.NGenes(); i++ {
		if v := stat.Variance(m.Row(i), nil); v > 0 {
			ranked = append(ranked, geneVar{i, v})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].v > ranked[b].v })
	if topGenes > 0 && topGenes < len(ranked) {
		ranked = ranked[:topGenes]
	}

	rows := make([]int, len(ranked))
	for i, r := range ranked {
		rows[i] = r.row
	}
	return rows
}
