package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/output"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

type deOptions struct {
	counts     string
	samples    string
	annotation string
	shrink     bool
	workers    int
}

func newDECmd(a *app) *cobra.Command {
	opts := &deOptions{}

	cmd := &cobra.Command{
		Use:   "de",
		Short: "Run differential expression only",
		Long: `Fit the negative-binomial model and test the contrast, writing
results.csv and recording the run in the store. Figures, enrichment
and the report can be produced later from the recorded run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDE(a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.counts, "counts", "c", "", "count matrix (TSV/CSV, genes x samples)")
	cmd.Flags().StringVarP(&opts.samples, "samples", "s", "", "sample metadata table")
	cmd.Flags().StringVar(&opts.annotation, "annotation", "", "gene annotation TSV")
	cmd.Flags().BoolVar(&opts.shrink, "shrink", false, "shrink log2 fold changes toward zero")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "per-gene fitting workers (0 = all CPUs)")
	cobra.CheckErr(cmd.MarkFlagRequired("counts"))
	cobra.CheckErr(cmd.MarkFlagRequired("samples"))

	cmd.Flags().String("design", "~ condition", "design formula")
	cmd.Flags().String("contrast", "", "contrast as factor:test/reference")
	addThresholdFlags(cmd)
	addOutFlag(cmd)
	addStoreFlag(cmd)

	return cmd
}

func runDE(a *app, opts *deOptions) error {
	cfg := a.cfg
	if cfg.Contrast == "" {
		return fmt.Errorf("no contrast given: set --contrast or the contrast config key")
	}
	contrast, err := deseq.ParseContrast(cfg.Contrast)
	if err != nil {
		return err
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
	if len(ann) > 0 {
		if err := st.SaveAnnotation(ann); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Run %s recorded in %s\n", meta.ID, cfg.StorePath())
	return nil
}
