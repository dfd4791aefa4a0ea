package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/report"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

type reportOptions struct {
	runID string
}

// reportFigures are the figure files a run may have left under
// <out>/figures, in display order. Missing ones are skipped.
var reportFigures = []struct{ title, name string }{
	{"Dispersion estimates", "dispersion.png"},
	{"PCA", "pca.png"},
	{"MA plot", "ma.png"},
	{"Volcano plot", "volcano.png"},
	{"Sample distances", "distance.png"},
	{"Top variable genes", "topgenes.png"},
	{"Enriched sets (gsea)", "dot_gsea.png"},
	{"Enriched sets (ora)", "dot_ora.png"},
	{"Core gene log2FC distributions", "ridge_gsea.png"},
}

func newReportCmd(a *app) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rebuild the HTML report for a recorded run",
		Long: `Render report.html from a run's stored results, samples, annotation
and enrichment. Figures present under <out>/figures are embedded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.runID, "run", "", "run ID (default: newest recorded run)")
	addOutFlag(cmd)
	addStoreFlag(cmd)

	return cmd
}

func runReport(a *app, opts *reportOptions) error {
	cfg := a.cfg
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := resolveRun(st, opts.runID)
	if err != nil {
		return err
	}
	rs, err := st.ResultsForRun(run.ID)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		return fmt.Errorf("run %s has no stored results", run.ID)
	}
	samples, err := st.SamplesForRun(run.ID)
	if err != nil {
		return err
	}
	ann, err := st.LoadAnnotation()
	if err != nil {
		return err
	}
	enrichment := make(map[string][]enrich.Result)
	for _, method := range []string{"gsea", "ora"} {
		res, err := st.EnrichmentForRun(run.ID, method)
		if err != nil {
			return err
		}
		if len(res) > 0 {
			enrichment[method] = res
		}
	}
	fmt.Fprintf(os.Stderr, "Using run %s (%s)\n", run.ID, run.Contrast)

	rep := report.Build(run, samples, rs, ann, enrichment)
	rep.Version = version
	dir := filepath.Join(cfg.OutDir, "figures")
	for _, f := range reportFigures {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := rep.AddFigure(f.title, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: embed %s: %v\n", path, err)
		}
	}

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	reportPath := filepath.Join(cfg.OutDir, "report.html")
	if err := report.Write(reportPath, rep); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", reportPath)
	return nil
}
