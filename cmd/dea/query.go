package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query recorded runs and results",
	}

	cmd.AddCommand(newQueryRunsCmd(a))
	cmd.AddCommand(newQueryGeneCmd(a))
	cmd.AddCommand(newQuerySignificantCmd(a))

	return cmd
}

func newQueryRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.StorePath())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCREATED\tDESIGN\tCONTRAST\tALPHA\tLFC")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"),
					r.Design, r.Contrast, r.Alpha, r.LFCThreshold)
			}
			return w.Flush()
		},
	}
	addOutFlag(cmd)
	addStoreFlag(cmd)
	return cmd
}

func newQueryGeneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gene <gene-id>",
		Short: "Show one gene's results across all runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			geneID := args[0]
			st, err := store.Open(a.cfg.StorePath())
			if err != nil {
				return err
			}
			defer st.Close()

			hits, err := st.ResultsForGene(geneID)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Printf("Gene %s not found in any run\n", geneID)
				return nil
			}

			ann, err := st.LoadAnnotation()
			if err != nil {
				return err
			}
			if sym := ann.Symbol(geneID); sym != "" {
				fmt.Printf("%s (%s)\n", geneID, sym)
			} else {
				fmt.Println(geneID)
			}

			runs, err := st.ListRuns()
			if err != nil {
				return err
			}
			contrasts := make(map[string]string, len(runs))
			for _, r := range runs {
				contrasts[r.ID] = r.Contrast
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCONTRAST\tBASEMEAN\tLOG2FC\tPADJ")
			for _, h := range hits {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%+.3f\t%s\n",
					h.RunID, contrasts[h.RunID],
					h.Result.BaseMean, h.Result.Log2FC, formatP(h.Result.PAdj))
			}
			return w.Flush()
		},
	}
	addOutFlag(cmd)
	addStoreFlag(cmd)
	return cmd
}

func newQuerySignificantCmd(a *app) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "significant",
		Short: "List a run's significant genes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			st, err := store.Open(cfg.StorePath())
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := resolveRun(st, runID)
			if err != nil {
				return err
			}
			rs, err := st.SignificantResults(run.ID, cfg.Alpha, cfg.LFCThreshold)
			if err != nil {
				return err
			}
			ann, err := st.LoadAnnotation()
			if err != nil {
				return err
			}

			fmt.Printf("%d significant genes in run %s (padj < %g, |log2FC| >= %g)\n",
				len(rs), run.ID, cfg.Alpha, cfg.LFCThreshold)
			if len(rs) == 0 {
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "GENE\tSYMBOL\tBASEMEAN\tLOG2FC\tPADJ")
			for _, r := range rs {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%+.3f\t%s\n",
					r.GeneID, ann.Symbol(r.GeneID), r.BaseMean, r.Log2FC, formatP(r.PAdj))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run ID (default: newest recorded run)")
	addThresholdFlags(cmd)
	addOutFlag(cmd)
	addStoreFlag(cmd)
	return cmd
}

func formatP(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 3, 64)
}
