package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/plot"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

type plotOpts struct {
	runID     string
	mapEntrez bool
}

func newPlotCmd(a *app) *cobra.Command {
	opts := &plotOpts{}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Regenerate figures from a recorded run",
		Long: `Draw MA and volcano plots from a run's stored results, plus dot and
ridge plots when enrichment was recorded. Thresholds come from the run
itself. Dispersion, PCA and heatmap figures need the fitted dataset
and are only drawn during "dea run".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.runID, "run", "", "run ID (default: newest recorded run)")
	cmd.Flags().BoolVar(&opts.mapEntrez, "map-entrez", false, "map gene IDs to Entrez to match Entrez-keyed enrichment")
	addOutFlag(cmd)
	addStoreFlag(cmd)

	return cmd
}

func runPlot(a *app, opts *plotOpts) error {
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
	fmt.Fprintf(os.Stderr, "Using run %s (%s)\n", run.ID, run.Contrast)

	dir := filepath.Join(cfg.OutDir, "figures")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create figures directory: %w", err)
	}
	popts := plotOptions(cfg)

	draw := func(name string, fn func(path string) error) {
		path := filepath.Join(dir, name)
		if err := fn(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", name, err)
			return
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}

	draw("ma.png", func(path string) error {
		return plot.MA(rs, run.Alpha, run.LFCThreshold, path, popts)
	})
	draw("volcano.png", func(path string) error {
		return plot.Volcano(rs, run.Alpha, run.LFCThreshold, path, popts)
	})

	ridgeRS := rs
	if opts.mapEntrez {
		ann, err := st.LoadAnnotation()
		if err != nil {
			return err
		}
		if len(ann) == 0 {
			return fmt.Errorf("no annotation table in store %s: run \"dea fetch --save\" first", cfg.StorePath())
		}
		mapped, missing, err := enrich.MapToEntrez(ann, rs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			fmt.Fprintf(os.Stderr, "Entrez mapping dropped %d of %d genes\n", len(missing), len(rs))
		}
		ridgeRS = mapped
	}

	for _, method := range []string{"gsea", "ora"} {
		res, err := st.EnrichmentForRun(run.ID, method)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			continue
		}
		draw("dot_"+method+".png", func(path string) error {
			return plot.Dot(res, 20, path, popts)
		})
		if method == "gsea" {
			draw("ridge_gsea.png", func(path string) error {
				return plot.Ridge(res, ridgeRS, 8, path, popts)
			})
		}
	}
	return nil
}
