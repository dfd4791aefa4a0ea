package deseq

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
)

// Dataset drives the analysis for one count matrix and design: size
// factors, dispersion estimation, per-gene GLM fits and Wald tests.
// The estimation methods must run in order; Run performs all steps for
// a single contrast.
type Dataset struct {
	Counts  *counts.Matrix
	Samples *counts.SampleTable
	Design  *Design

	SizeFactors []float64
	BaseMeans   []float64
	Disp        *Dispersions

	fits    []*glmFit
	dropped int
	workers int
	logger  *zap.Logger
}

// NewDataset validates the inputs and prepares a dataset. Sample
// metadata rows must match the matrix columns in order. Genes with zero
// counts in every sample are dropped up front.
func NewDataset(m *counts.Matrix, samples *counts.SampleTable, formula string) (*Dataset, error) {
	if err := samples.Align(m); err != nil {
		return nil, err
	}
	design, err := ParseDesign(formula, samples)
	if err != nil {
		return nil, err
	}

	kept, dropped := m.DropAllZeroRows()
	if kept.NGenes() == 0 {
		return nil, fmt.Errorf("all %d genes have zero counts in every sample", dropped)
	}
	if n, p := kept.NSamples(), design.NCoef(); n <= p {
		return nil, fmt.Errorf("design %q has %d coefficients for %d samples; no residual degrees of freedom",
			formula, p, n)
	}

	return &Dataset{
		Counts:  kept,
		Samples: samples,
		Design:  design,
		dropped: dropped,
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}, nil
}

// SetLogger sets the logger. The default is a no-op logger.
func (d *Dataset) SetLogger(l *zap.Logger) {
	if l != nil {
		d.logger = l
	}
}

// SetWorkers sets the pool size for per-gene fitting. Zero or negative
// restores the default of runtime.NumCPU().
func (d *Dataset) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	d.workers = n
}

// DroppedGenes returns the number of all-zero genes removed up front.
func (d *Dataset) DroppedGenes() int { return d.dropped }

// EstimateSizeFactors computes size factors and per-gene base means.
func (d *Dataset) EstimateSizeFactors() error {
	factors, err := EstimateSizeFactors(d.Counts)
	if err != nil {
		return err
	}
	d.SizeFactors = factors

	d.BaseMeans = make([]float64, d.Counts.NGenes())
	for g, row := range normalizedCounts(d.Counts, factors) {
		d.BaseMeans[g] = stat.Mean(row, nil)
	}

	d.logger.Debug("estimated size factors", zap.Float64s("factors", factors))
	return nil
}

// EstimateDispersions runs the three dispersion stages: per-gene
// estimates, the parametric trend over base means, and MAP shrinkage
// toward the trend.
func (d *Dataset) EstimateDispersions() error {
	if d.SizeFactors == nil {
		return fmt.Errorf("size factors not estimated")
	}

	nGenes := d.Counts.NGenes()
	x := d.Design.ModelMatrix()
	n, p := x.Dims()

	disp := &Dispersions{
		GeneWise: make([]float64, nGenes),
		Trend:    make([]float64, nGenes),
		Final:    make([]float64, nGenes),
		Outlier:  make([]bool, nGenes),
	}
	mus := make([][]float64, nGenes)

	err := d.forEachGene(func(g int) error {
		alpha, mu, err := estimateGenewiseDispersion(d.Counts.Row(g), d.SizeFactors, x)
		if err != nil {
			return fmt.Errorf("gene %s: %w", d.Counts.Genes[g], err)
		}
		disp.GeneWise[g] = alpha
		mus[g] = mu
		return nil
	})
	if err != nil {
		return err
	}

	trend := fitDispersionTrend(d.BaseMeans, disp.GeneWise)
	disp.TrendCoef = trend

	var logResiduals []float64
	for g := 0; g < nGenes; g++ {
		disp.Trend[g] = trend.At(d.BaseMeans[g])
		if disp.GeneWise[g] > trendMinDisp {
			logResiduals = append(logResiduals, math.Log(disp.GeneWise[g])-math.Log(disp.Trend[g]))
		}
	}
	priorVar, residSD := dispersionPriorVariance(logResiduals, n, p)
	disp.PriorVar = priorVar

	err = d.forEachGene(func(g int) error {
		final, outlier := shrinkDispersionMAP(d.Counts.Row(g), mus[g], x,
			disp.GeneWise[g], disp.Trend[g], priorVar, residSD, n)
		disp.Final[g] = final
		disp.Outlier[g] = outlier
		return nil
	})
	if err != nil {
		return err
	}

	d.Disp = disp
	d.logger.Debug("estimated dispersions",
		zap.Float64("asymptDisp", trend.AsymptDisp),
		zap.Float64("extraPois", trend.ExtraPois),
		zap.Bool("flatTrend", trend.Flat),
		zap.Float64("priorVar", priorVar))
	return nil
}

// Fit fits the per-gene GLMs with the final dispersions.
func (d *Dataset) Fit() error {
	if d.Disp == nil {
		return fmt.Errorf("dispersions not estimated")
	}

	x := d.Design.ModelMatrix()
	d.fits = make([]*glmFit, d.Counts.NGenes())

	err := d.forEachGene(func(g int) error {
		fit, err := fitGLM(d.Counts.Row(g), d.SizeFactors, x, d.Disp.Final[g])
		if err != nil {
			return fmt.Errorf("gene %s: %w", d.Counts.Genes[g], err)
		}
		d.fits[g] = fit
		return nil
	})
	if err != nil {
		return err
	}

	notConverged := 0
	for _, fit := range d.fits {
		if fit != nil && !fit.converged {
			notConverged++
		}
	}
	if notConverged > 0 {
		d.logger.Warn("GLM did not converge for some genes", zap.Int("genes", notConverged))
	}
	return nil
}

// Results assembles the Wald test table for a contrast. Genes whose fit
// degenerated get NaN statistics and are passed through the adjustment
// unchanged.
func (d *Dataset) Results(c Contrast) (Results, error) {
	if d.fits == nil {
		return nil, fmt.Errorf("model not fitted")
	}
	cvec, err := d.Design.ContrastVector(c)
	if err != nil {
		return nil, err
	}

	rs := make(Results, d.Counts.NGenes())
	for g := range rs {
		r := Result{
			GeneID:   d.Counts.Genes[g],
			BaseMean: d.BaseMeans[g],
			Log2FC:   math.NaN(),
			LfcSE:    math.NaN(),
			Stat:     math.NaN(),
			PValue:   math.NaN(),
			PAdj:     math.NaN(),
		}
		if fit := d.fits[g]; fit != nil {
			lfc := 0.0
			variance := 0.0
			for i, wi := range cvec {
				if wi == 0 {
					continue
				}
				lfc += wi * fit.beta[i]
				for j, wj := range cvec {
					if wj == 0 {
						continue
					}
					variance += wi * wj * fit.cov.At(i, j)
				}
			}
			if variance > 0 {
				r.Log2FC = lfc
				r.LfcSE = math.Sqrt(variance)
				r.Stat = lfc / r.LfcSE
				r.PValue = waldPValue(r.Stat)
			}
		}
		rs[g] = r
	}
	rs.adjust()

	d.logger.Debug("computed results", zap.String("contrast", c.String()), zap.Int("genes", len(rs)))
	return rs, nil
}

// Run executes the full pipeline for one contrast.
func (d *Dataset) Run(c Contrast) (Results, error) {
	if err := d.EstimateSizeFactors(); err != nil {
		return nil, err
	}
	if err := d.EstimateDispersions(); err != nil {
		return nil, err
	}
	if err := d.Fit(); err != nil {
		return nil, err
	}
	return d.Results(c)
}

// NormalizedCounts returns counts divided by size factors, row-aligned
// with the kept genes.
func (d *Dataset) NormalizedCounts() ([][]float64, error) {
	if d.SizeFactors == nil {
		return nil, fmt.Errorf("size factors not estimated")
	}
	return normalizedCounts(d.Counts, d.SizeFactors), nil
}

// forEachGene runs fn for every kept gene on a pool of workers. Each
// job writes to its own gene index so no result ordering is needed; the
// first error wins and is returned after the pool drains.
func (d *Dataset) forEachGene(fn func(g int) error) error {
	workers := d.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan int, 2*workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for g := range jobs {
				if err := fn(g); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	for g := 0; g < d.Counts.NGenes(); g++ {
		jobs <- g
	}
	close(jobs)
	wg.Wait()

	return firstErr
}
