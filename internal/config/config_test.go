package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, 0.1, c.Alpha)
	assert.Equal(t, 1.0, c.LFCThreshold)
	assert.Equal(t, "homo_sapiens", c.Organism)
	assert.Equal(t, "~ condition", c.Design)
	assert.Equal(t, "results", c.OutDir)
	assert.Equal(t, 1000, c.GSEA.Permutations)
	assert.Equal(t, int64(1), c.GSEA.Seed)
	assert.Equal(t, 5, c.GeneSets.MinSize)
	assert.Equal(t, 500, c.GeneSets.MaxSize)
	assert.Equal(t, 6.0, c.Plots.Width)
	assert.Equal(t, 30, c.Plots.TopGenes)
	assert.Equal(t, 500, c.Plots.PCAGenes)
}

func TestLoadFromYAML(t *testing.T) {
	v := newViper(t)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
alpha: 0.05
lfc_threshold: 0.5
contrast: "condition:treated/control"
gsea:
  permutations: 200
  seed: 42
gene_sets:
  max_size: 0
`)))

	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 0.05, c.Alpha)
	assert.Equal(t, 0.5, c.LFCThreshold)
	assert.Equal(t, "condition:treated/control", c.Contrast)
	assert.Equal(t, 200, c.GSEA.Permutations)
	assert.Equal(t, int64(42), c.GSEA.Seed)
	assert.Equal(t, 0, c.GeneSets.MaxSize)

	// Untouched keys keep their defaults.
	assert.Equal(t, "homo_sapiens", c.Organism)
	assert.Equal(t, 5, c.GeneSets.MinSize)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{"alpha zero", "alpha", 0.0, "alpha"},
		{"alpha too large", "alpha", 1.5, "alpha"},
		{"negative lfc", "lfc_threshold", -1.0, "lfc_threshold"},
		{"no permutations", "gsea.permutations", 0, "gsea.permutations"},
		{"min size zero", "gene_sets.min_size", 0, "gene_sets.min_size"},
		{"bad plot size", "plots.width", -2.0, "plot size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStorePath(t *testing.T) {
	c := Config{OutDir: "results"}
	assert.Equal(t, filepath.Join("results", "dea.duckdb"), c.StorePath())

	c.Store = "/data/runs.duckdb"
	assert.Equal(t, "/data/runs.duckdb", c.StorePath())
}
