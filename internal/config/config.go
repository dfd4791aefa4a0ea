// Package config holds app-wide analysis settings unmarshalled from
// Viper (see cmd/dea).
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// GSEA is the permutation-test settings.
type GSEA struct {
	// number of gene permutations for the null distribution
	Permutations int `mapstructure:"permutations"`

	// seed for the permutation RNG; fixed for reproducible runs
	Seed int64 `mapstructure:"seed"`
}

// GeneSets is the collection size filter.
type GeneSets struct {
	MinSize int `mapstructure:"min_size"`

	// sets larger than this are dropped; zero or negative disables the cap
	MaxSize int `mapstructure:"max_size"`
}

// Plots is the figure output settings.
type Plots struct {
	// figure size in inches
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`

	// genes in the top-variance heatmap
	TopGenes int `mapstructure:"top_genes"`

	// top-variance genes fed into the PCA; zero or negative uses all
	PCAGenes int `mapstructure:"pca_genes"`
}

// Config is the root-level settings struct, a mix of settings from the
// config file and command-line flags bound through Viper.
type Config struct {
	// adjusted p-value cutoff for calling a gene significant
	Alpha float64 `mapstructure:"alpha"`

	// minimum |log2 fold change| for calling a gene significant
	LFCThreshold float64 `mapstructure:"lfc_threshold"`

	Organism string `mapstructure:"organism"`

	// design formula, e.g. "~ condition" or "~ batch + condition"
	Design string `mapstructure:"design"`

	// contrast as factor:test/reference, e.g. "condition:treated/control"
	Contrast string `mapstructure:"contrast"`

	// output directory for tables, figures and the report
	OutDir string `mapstructure:"out_dir"`

	// DuckDB results store path; empty derives <out_dir>/dea.duckdb
	Store string `mapstructure:"store"`

	GSEA     GSEA     `mapstructure:"gsea"`
	GeneSets GeneSets `mapstructure:"gene_sets"`
	Plots    Plots    `mapstructure:"plots"`
}

// SetDefaults registers the default for every setting on the Viper
// instance. Flag bindings and the config file override these.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("alpha", 0.1)
	v.SetDefault("lfc_threshold", 1.0)
	v.SetDefault("organism", "homo_sapiens")
	v.SetDefault("design", "~ condition")
	v.SetDefault("contrast", "")
	v.SetDefault("out_dir", "results")
	v.SetDefault("store", "")
	v.SetDefault("gsea.permutations", 1000)
	v.SetDefault("gsea.seed", 1)
	v.SetDefault("gene_sets.min_size", 5)
	v.SetDefault("gene_sets.max_size", 500)
	v.SetDefault("plots.width", 6)
	v.SetDefault("plots.height", 5)
	v.SetDefault("plots.top_genes", 30)
	v.SetDefault("plots.pca_genes", 500)
}

// Load unmarshals and validates the settings.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha %v out of range (0, 1)", c.Alpha)
	}
	if c.LFCThreshold < 0 {
		return fmt.Errorf("lfc_threshold %v must not be negative", c.LFCThreshold)
	}
	if c.GSEA.Permutations < 1 {
		return fmt.Errorf("gsea.permutations %d must be at least 1", c.GSEA.Permutations)
	}
	if c.GeneSets.MinSize < 1 {
		return fmt.Errorf("gene_sets.min_size %d must be at least 1", c.GeneSets.MinSize)
	}
	if c.Plots.Width <= 0 || c.Plots.Height <= 0 {
		return fmt.Errorf("plot size %gx%g must be positive", c.Plots.Width, c.Plots.Height)
	}
	return nil
}

// StorePath returns the configured store path, defaulting to
// dea.duckdb inside the output directory.
func (c Config) StorePath() string {
	if c.Store != "" {
		return c.Store
	}
	return filepath.Join(c.OutDir, "dea.duckdb")
}
