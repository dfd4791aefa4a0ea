package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/output"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

type enrichOptions struct {
	runID     string
	results   string
	geneSets  []string
	method    string
	rankBy    string
	mapEntrez bool
}

func newEnrichCmd(a *app) *cobra.Command {
	opts := &enrichOptions{}

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run gene set enrichment on existing results",
		Long: `Run GSEA and over-representation analysis against GMT collections,
using a recorded run from the store (newest by default) or a results
CSV. Significance cutoffs for the over-representation gene selection
come from the current flags and config, so a run can be re-tested
with different thresholds. For collections keyed by Entrez IDs,
--map-entrez translates gene IDs through the stored annotation table
first. Use "dea plot" for enrichment figures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.runID, "run", "", "run ID (default: newest recorded run)")
	cmd.Flags().StringVar(&opts.results, "results", "", "results CSV instead of a recorded run")
	cmd.Flags().StringSliceVar(&opts.geneSets, "gene-sets", nil, "GMT gene set collection (repeatable)")
	cmd.Flags().StringVar(&opts.method, "method", "both", "enrichment method: gsea, ora or both")
	cmd.Flags().StringVar(&opts.rankBy, "rank-by", "stat", "GSEA ranking metric: stat or lfc")
	cmd.Flags().BoolVar(&opts.mapEntrez, "map-entrez", false, "map gene IDs to Entrez through the stored annotation table")
	cobra.CheckErr(cmd.MarkFlagRequired("gene-sets"))

	addThresholdFlags(cmd)
	addOutFlag(cmd)
	addStoreFlag(cmd)
	addEnrichmentFlags(cmd)

	return cmd
}

func runEnrich(a *app, opts *enrichOptions) error {
	cfg := a.cfg
	if err := validateMethod(opts.method); err != nil {
		return err
	}
	if opts.rankBy != "stat" && opts.rankBy != "lfc" {
		return fmt.Errorf("unknown ranking metric %q: want stat or lfc", opts.rankBy)
	}

	var (
		rs    deseq.Results
		runID string
		st    *store.Store
	)
	if opts.results == "" || opts.mapEntrez {
		var err error
		st, err = store.Open(cfg.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()
	}
	if opts.results != "" {
		f, err := os.Open(opts.results)
		if err != nil {
			return fmt.Errorf("open results: %w", err)
		}
		rs, err = output.ReadResultsCSV(f)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		run, err := resolveRun(st, opts.runID)
		if err != nil {
			return err
		}
		runID = run.ID
		rs, err = st.ResultsForRun(runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Using run %s (%s)\n", run.ID, run.Contrast)
	}
	if len(rs) == 0 {
		return fmt.Errorf("no differential expression results to enrich")
	}

	sig := rs.Significant(cfg.Alpha, cfg.LFCThreshold)
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
		rs = mapped
		sig = rs.Significant(cfg.Alpha, cfg.LFCThreshold)
	}
	enrichment, err := runEnrichment(cfg, opts.geneSets, opts.method, opts.rankBy, rs, sig)
	if err != nil {
		return err
	}
	if len(enrichment) == 0 {
		fmt.Fprintf(os.Stderr, "No enrichment results produced\n")
		return nil
	}

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, method := range sortedMethods(enrichment) {
		res := enrichment[method]
		if err := writeFile(filepath.Join(cfg.OutDir, "enrichment_"+method+".csv"), func(w io.Writer) error {
			return output.WriteEnrichmentCSV(w, res)
		}); err != nil {
			return err
		}
		if runID != "" {
			if err := st.SaveEnrichment(runID, method, res); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "%s: %d sets tested\n", method, len(res))
	}
	return nil
}
