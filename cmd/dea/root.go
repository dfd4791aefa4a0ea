package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/config"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

// app carries the settings and logger shared by all subcommands.
type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger *zap.Logger

	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "dea",
		Short: "RNA-Seq differential expression and enrichment analysis",
		Long: `dea analyzes RNA-Seq count matrices: negative-binomial model fits
with Wald contrasts, variance-stabilizing transforms, publication
figures, gene set enrichment and a self-contained HTML report.
Finished runs are recorded in a DuckDB store for later queries.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ~/.dea.yaml)")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(a),
		newDECmd(a),
		newEnrichCmd(a),
		newPlotCmd(a),
		newPathwayCmd(a),
		newReportCmd(a),
		newFetchCmd(a),
		newQueryCmd(a),
		newConfigCmd(a),
	)

	return cmd
}

// init loads settings for the command being executed: defaults, then
// the config file, then environment, then that command's bound flags.
func (a *app) init(cmd *cobra.Command) error {
	config.SetDefaults(a.v)
	bindSettingsFlags(a.v, cmd)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigName(".dea")
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix("DEA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		a.logger = logger
	} else {
		a.logger = zap.NewNop()
	}
	return nil
}

// settingsKeys maps config keys to the flag names that override them.
var settingsKeys = map[string]string{
	"design":             "design",
	"contrast":           "contrast",
	"alpha":              "alpha",
	"lfc_threshold":      "lfc-threshold",
	"organism":           "organism",
	"out_dir":            "out",
	"store":              "store",
	"gsea.permutations":  "permutations",
	"gsea.seed":          "seed",
	"gene_sets.min_size": "min-set-size",
	"gene_sets.max_size": "max-set-size",
	"plots.top_genes":    "top-genes",
	"plots.pca_genes":    "pca-genes",
}

// bindSettingsFlags binds the executed command's settings flags into
// Viper. Binding only the active command keeps one flag per key.
func bindSettingsFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, name := range settingsKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			cobra.CheckErr(v.BindPFlag(key, f))
		}
	}
}

func addThresholdFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("alpha", 0.1, "adjusted p-value cutoff for significance")
	cmd.Flags().Float64("lfc-threshold", 1.0, "minimum |log2 fold change| for significance")
}

func addStoreFlag(cmd *cobra.Command) {
	cmd.Flags().String("store", "", "results store path (default: <out>/dea.duckdb)")
}

func addOutFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "results", "output directory")
}

func addEnrichmentFlags(cmd *cobra.Command) {
	cmd.Flags().Int("permutations", 1000, "GSEA gene permutations")
	cmd.Flags().Int64("seed", 1, "GSEA permutation seed")
	cmd.Flags().Int("min-set-size", 5, "smallest gene set to test")
	cmd.Flags().Int("max-set-size", 500, "largest gene set to test (0 = unlimited)")
}

// resolveRun returns the run with the given ID, or the newest recorded
// run when id is empty.
func resolveRun(st *store.Store, id string) (store.RunMeta, error) {
	runs, err := st.ListRuns()
	if err != nil {
		return store.RunMeta{}, err
	}
	if len(runs) == 0 {
		return store.RunMeta{}, fmt.Errorf("no runs recorded in store")
	}
	if id == "" {
		return runs[0], nil
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return store.RunMeta{}, fmt.Errorf("run %s not found in store", id)
}

// writeFile writes one output file through fn with create and close
// handling.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
