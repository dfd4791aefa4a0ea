package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/config"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/output"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/plot"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/report"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/transform"
)

type runOptions struct {
	counts       string
	samples      string
	annotation   string
	geneSets     []string
	method       string
	rankBy       string
	mapEntrez    bool
	shrink       bool
	batchCorrect bool
	workers      int
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis pipeline",
		Long: `Run differential expression, transformation, figures, enrichment
and the HTML report in one pass. Results are written under the output
directory and recorded in the results store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.counts, "counts", "c", "", "count matrix (TSV/CSV, genes x samples)")
	cmd.Flags().StringVarP(&opts.samples, "samples", "s", "", "sample metadata table")
	cmd.Flags().StringVar(&opts.annotation, "annotation", "", "gene annotation TSV")
	cmd.Flags().StringSliceVar(&opts.geneSets, "gene-sets", nil, "GMT gene set collection (repeatable)")
	cmd.Flags().StringVar(&opts.method, "method", "both", "enrichment method: gsea, ora or both")
	cmd.Flags().StringVar(&opts.rankBy, "rank-by", "stat", "GSEA ranking metric: stat or lfc")
	cmd.Flags().BoolVar(&opts.mapEntrez, "map-entrez", false, "map gene IDs to Entrez before enrichment (needs --annotation)")
	cmd.Flags().BoolVar(&opts.shrink, "shrink", false, "shrink log2 fold changes toward zero")
	cmd.Flags().BoolVar(&opts.batchCorrect, "batch-correct", false, "remove batch effects before PCA and heatmaps")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "per-gene fitting workers (0 = all CPUs)")
	cobra.CheckErr(cmd.MarkFlagRequired("counts"))
	cobra.CheckErr(cmd.MarkFlagRequired("samples"))

	cmd.Flags().String("design", "~ condition", "design formula")
	cmd.Flags().String("contrast", "", "contrast as factor:test/reference")
	addThresholdFlags(cmd)
	addOutFlag(cmd)
	addStoreFlag(cmd)
	addEnrichmentFlags(cmd)
	cmd.Flags().Int("top-genes", 30, "genes in the top-genes heatmap")
	cmd.Flags().Int("pca-genes", 500, "most-variable genes used for PCA (0 = all)")

	return cmd
}

func runPipeline(a *app, opts *runOptions) error {
	cfg := a.cfg
	if cfg.Contrast == "" {
		return fmt.Errorf("no contrast given: set --contrast or the contrast config key")
	}
	contrast, err := deseq.ParseContrast(cfg.Contrast)
	if err != nil {
		return err
	}
	if err := validateMethod(opts.method); err != nil {
		return err
	}
	if opts.rankBy != "stat" && opts.rankBy != "lfc" {
		return fmt.Errorf("unknown ranking metric %q: want stat or lfc", opts.rankBy)
	}
	if opts.mapEntrez && opts.annotation == "" {
		return fmt.Errorf("--map-entrez needs --annotation to supply Entrez IDs")
	}

	m, err := counts.LoadMatrix(opts.counts)
	if err != nil {
		return err
	}
	samples, err := counts.LoadSamples(opts.samples)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Loaded %d genes x %d samples\n", m.NGenes(), m.NSamples())

	ds, err := deseq.NewDataset(m, samples, cfg.Design)
	if err != nil {
		return err
	}
	ds.SetLogger(a.logger)
	ds.SetWorkers(opts.workers)
	if n := ds.DroppedGenes(); n > 0 {
		fmt.Fprintf(os.Stderr, "Dropped %d genes with zero counts in every sample\n", n)
	}

	fmt.Fprintf(os.Stderr, "Fitting %s, contrast %s...\n", cfg.Design, contrast)
	rs, err := ds.Run(contrast)
	if err != nil {
		return err
	}
	if opts.shrink {
		rs = deseq.ShrinkLFC(rs)
	}
	sig := rs.Significant(cfg.Alpha, cfg.LFCThreshold)
	fmt.Fprintf(os.Stderr, "Tested %d genes: %d significant at padj < %g, |log2FC| >= %g\n",
		len(rs), len(sig), cfg.Alpha, cfg.LFCThreshold)

	var ann annotation.Table
	if opts.annotation != "" {
		ann, err = annotation.LoadTSV(opts.annotation)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeFile(filepath.Join(cfg.OutDir, "results.csv"), func(w io.Writer) error {
		return output.WriteResultsCSV(w, rs, ann)
	}); err != nil {
		return err
	}

	tm, err := transform.VST(ds.Counts, ds.SizeFactors, ds.Disp.TrendCoef)
	if err != nil {
		return err
	}
	if opts.batchCorrect {
		tm, err = transform.RemoveBatchEffect(tm, ds.Samples)
		if err != nil {
			return err
		}
	}
	if err := writeFile(filepath.Join(cfg.OutDir, "transformed.csv"), func(w io.Writer) error {
		return output.WriteTransformedCSV(w, tm)
	}); err != nil {
		return err
	}

	figs := writeFigures(cfg, ds, rs, tm)

	enrichment := make(map[string][]enrich.Result)
	ers := rs
	if len(opts.geneSets) > 0 {
		esig := sig
		if opts.mapEntrez {
			var missing []string
			ers, missing, err = enrich.MapToEntrez(ann, rs)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				fmt.Fprintf(os.Stderr, "Entrez mapping dropped %d of %d genes\n", len(missing), len(rs))
			}
			esig = ers.Significant(cfg.Alpha, cfg.LFCThreshold)
		}
		enrichment, err = runEnrichment(cfg, opts.geneSets, opts.method, opts.rankBy, ers, esig)
		if err != nil {
			return err
		}
	}
	methods := sortedMethods(enrichment)
	for _, method := range methods {
		res := enrichment[method]
		if err := writeFile(filepath.Join(cfg.OutDir, "enrichment_"+method+".csv"), func(w io.Writer) error {
			return output.WriteEnrichmentCSV(w, res)
		}); err != nil {
			return err
		}
		figs = append(figs, enrichmentFigures(cfg, method, res, ers)...)
	}

	meta := store.RunMeta{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Design:       cfg.Design,
		Contrast:     cfg.Contrast,
		Alpha:        cfg.Alpha,
		LFCThreshold: cfg.LFCThreshold,
	}
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SaveRun(meta); err != nil {
		return err
	}
	if err := st.SaveSamples(meta.ID, samples.Samples); err != nil {
		return err
	}
	if err := st.SaveResults(meta.ID, rs); err != nil {
		return err
	}
	for _, method := range methods {
		if err := st.SaveEnrichment(meta.ID, method, enrichment[method]); err != nil {
			return err
		}
	}
	if len(ann) > 0 {
		if err := st.SaveAnnotation(ann); err != nil {
			return err
		}
	}

	rep := report.Build(meta, samples.Samples, rs, ann, enrichment)
	rep.Version = version
	for _, f := range figs {
		if err := rep.AddFigure(f.title, f.path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: embed %s: %v\n", f.path, err)
		}
	}
	reportPath := filepath.Join(cfg.OutDir, "report.html")
	if err := report.Write(reportPath, rep); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Report written to %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Run %s recorded in %s\n", meta.ID, cfg.StorePath())
	return nil
}

func validateMethod(method string) error {
	switch method {
	case "gsea", "ora", "both":
		return nil
	}
	return fmt.Errorf("unknown enrichment method %q: want gsea, ora or both", method)
}

type figure struct {
	title string
	path  string
}

// writeFigures renders the standard figure set under <out>/figures.
// A figure that cannot be drawn is skipped with a warning, the run
// itself keeps going.
func writeFigures(cfg config.Config, ds *deseq.Dataset, rs deseq.Results, tm *transform.Matrix) []figure {
	dir := filepath.Join(cfg.OutDir, "figures")
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: create figures directory: %v\n", err)
		return nil
	}
	opts := plotOptions(cfg)

	var figs []figure
	add := func(title, name string, draw func(path string) error) {
		path := filepath.Join(dir, name)
		if err := draw(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", title, err)
			return
		}
		figs = append(figs, figure{title: title, path: path})
	}

	add("Dispersion estimates", "dispersion.png", func(path string) error {
		return plot.Dispersion(ds.BaseMeans, *ds.Disp, path, opts)
	})
	add("PCA", "pca.png", func(path string) error {
		pc, err := transform.PCA(tm, cfg.Plots.PCAGenes, 2)
		if err != nil {
			return err
		}
		return plot.PCA(pc, ds.Samples, path, opts)
	})
	add("MA plot", "ma.png", func(path string) error {
		return plot.MA(rs, cfg.Alpha, cfg.LFCThreshold, path, opts)
	})
	add("Volcano plot", "volcano.png", func(path string) error {
		return plot.Volcano(rs, cfg.Alpha, cfg.LFCThreshold, path, opts)
	})
	add("Sample distances", "distance.png", func(path string) error {
		return plot.SampleDistance(tm, path, opts)
	})
	add(fmt.Sprintf("Top %d variable genes", cfg.Plots.TopGenes), "topgenes.png", func(path string) error {
		return plot.TopGenes(tm, cfg.Plots.TopGenes, path, opts)
	})
	return figs
}

// enrichmentFigures renders the dot plot and, for GSEA, the ridge plot
// for one method's combined results.
func enrichmentFigures(cfg config.Config, method string, res []enrich.Result, de deseq.Results) []figure {
	if len(res) == 0 {
		return nil
	}
	dir := filepath.Join(cfg.OutDir, "figures")
	opts := plotOptions(cfg)

	var figs []figure
	path := filepath.Join(dir, "dot_"+method+".png")
	if err := plot.Dot(res, 20, path, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s dot plot: %v\n", method, err)
	} else {
		figs = append(figs, figure{title: "Enriched sets (" + method + ")", path: path})
	}
	if method == "gsea" {
		path := filepath.Join(dir, "ridge_gsea.png")
		if err := plot.Ridge(res, de, 8, path, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ridge plot: %v\n", err)
		} else {
			figs = append(figs, figure{title: "Core gene log2FC distributions", path: path})
		}
	}
	return figs
}

func plotOptions(cfg config.Config) plot.Options {
	return plot.Options{
		Width:  plot.Inches(cfg.Plots.Width),
		Height: plot.Inches(cfg.Plots.Height),
	}
}

// runEnrichment runs the selected engines over every collection and
// merges per-method results across collections, sorted by p-value.
// BH adjustment stays within each collection.
func runEnrichment(cfg config.Config, geneSets []string, method, rankBy string, rs, sig deseq.Results) (map[string][]enrich.Result, error) {
	var ranking *enrich.Ranking
	if rankBy == "lfc" {
		ranking = enrich.RankByLFC(rs)
	} else {
		ranking = enrich.RankByStat(rs)
	}

	var engines []enrich.Engine
	if method == "gsea" || method == "both" {
		engines = append(engines, enrich.NewGSEA(cfg.GSEA.Permutations, cfg.GSEA.Seed))
	}
	if method == "ora" || method == "both" {
		if len(sig) == 0 {
			fmt.Fprintf(os.Stderr, "Warning: no significant genes, skipping over-representation analysis\n")
		} else {
			engines = append(engines, enrich.NewOverrep(sig.Genes()))
		}
	}
	if len(engines) == 0 {
		return nil, nil
	}

	enrichment := make(map[string][]enrich.Result)
	for _, path := range geneSets {
		coll, err := geneset.LoadGMT(path)
		if err != nil {
			return nil, err
		}
		filtered := coll.Filter(cfg.GeneSets.MinSize, cfg.GeneSets.MaxSize)
		fmt.Fprintf(os.Stderr, "Collection %s: %d of %d sets within size bounds\n",
			coll.Name, len(filtered.Sets), len(coll.Sets))
		for _, eng := range engines {
			res, err := eng.Run(ranking, filtered)
			if err != nil {
				return nil, fmt.Errorf("%s on %s: %w", eng.Name(), coll.Name, err)
			}
			enrichment[eng.Name()] = append(enrichment[eng.Name()], res...)
		}
	}
	for _, res := range enrichment {
		enrich.SortByPValue(res)
	}
	return enrichment, nil
}

func sortedMethods(enrichment map[string][]enrich.Result) []string {
	methods := make([]string, 0, len(enrichment))
	for method := range enrichment {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}
