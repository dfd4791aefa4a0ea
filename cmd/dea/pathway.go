package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/output"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/pathway"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

type pathwayOptions struct {
	runID     string
	results   string
	geneSets  []string
	relations string
	outFile   string
}

func newPathwayCmd(a *app) *cobra.Command {
	opts := &pathwayOptions{}

	cmd := &cobra.Command{
		Use:   "pathway <set-id>",
		Short: "Render a gene set as a pathway diagram",
		Long: `Draw the members of one gene set as a graph, nodes colored by the
run's log2 fold changes (blue down, red up, grey untested). Relation
edges come from an optional TSV of from/to/type rows. The output
format follows the file extension: .svg, .png or Graphviz DOT text
for anything else.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPathwayCmd(cmd, a, opts, args[0])
		},
	}

	cmd.Flags().StringSliceVar(&opts.geneSets, "gene-sets", nil, "GMT gene set collection (repeatable)")
	cmd.Flags().StringVar(&opts.runID, "run", "", "run ID (default: newest recorded run)")
	cmd.Flags().StringVar(&opts.results, "results", "", "results CSV instead of a recorded run")
	cmd.Flags().StringVar(&opts.relations, "relations", "", "TSV of from/to[/type] gene relations")
	cmd.Flags().StringVar(&opts.outFile, "out-file", "", "output path (default: <out>/figures/pathway_<set-id>.svg)")
	cobra.CheckErr(cmd.MarkFlagRequired("gene-sets"))

	addOutFlag(cmd)
	addStoreFlag(cmd)

	return cmd
}

func runPathwayCmd(cmd *cobra.Command, a *app, opts *pathwayOptions, setID string) error {
	cfg := a.cfg

	var set *geneset.Set
	for _, path := range opts.geneSets {
		coll, err := geneset.LoadGMT(path)
		if err != nil {
			return err
		}
		if s := coll.ByID(setID); s != nil {
			set = s
			break
		}
	}
	if set == nil {
		return fmt.Errorf("gene set %s not found in the given collections", setID)
	}

	var (
		rs  deseq.Results
		ann annotation.Table
	)
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
		st, err := store.Open(cfg.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()
		run, err := resolveRun(st, opts.runID)
		if err != nil {
			return err
		}
		rs, err = st.ResultsForRun(run.ID)
		if err != nil {
			return err
		}
		ann, err = st.LoadAnnotation()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Using run %s (%s)\n", run.ID, run.Contrast)
	}

	var edges []pathway.Edge
	if opts.relations != "" {
		var err error
		edges, err = pathway.LoadEdges(opts.relations)
		if err != nil {
			return err
		}
	}

	d := pathway.Build(*set, rs, ann, edges)
	outPath := opts.outFile
	if outPath == "" {
		dir := filepath.Join(cfg.OutDir, "figures")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create figures directory: %w", err)
		}
		outPath = filepath.Join(dir, "pathway_"+setID+".svg")
	}
	if err := d.WriteFile(cmd.Context(), outPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
	return nil
}
