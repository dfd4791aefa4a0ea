package geneset

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gmtFixture = "HM_APOPTOSIS\tApoptosis\tTP53\tCASP3\tBAX\n" +
	"HM_GLYCOLYSIS\tGlycolysis\tHK1\tPFKL\tPKM\n"

func TestParseGMT(t *testing.T) {
	c, err := ParseGMT(strings.NewReader(gmtFixture), "hallmark")
	require.NoError(t, err)

	assert.Equal(t, "hallmark", c.Name)
	require.Len(t, c.Sets, 2)
	assert.Equal(t, "HM_APOPTOSIS", c.Sets[0].ID)
	assert.Equal(t, "Apoptosis", c.Sets[0].Name)
	assert.Equal(t, []string{"TP53", "CASP3", "BAX"}, c.Sets[0].Genes)
	assert.Equal(t, []string{"HK1", "PFKL", "PKM"}, c.Sets[1].Genes)
}

func TestParseGMT_SkipsCommentsAndBlanks(t *testing.T) {
	content := "# MSigDB export\n\n" + gmtFixture
	c, err := ParseGMT(strings.NewReader(content), "x")
	require.NoError(t, err)
	assert.Len(t, c.Sets, 2)
}

func TestParseGMT_DedupesGenesWithinSet(t *testing.T) {
	c, err := ParseGMT(strings.NewReader("s1\tdesc\ta\tb\ta\n"), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Sets[0].Genes)
}

func TestParseGMT_EmptyNameFallsBackToID(t *testing.T) {
	c, err := ParseGMT(strings.NewReader("s1\t\ta\tb\n"), "x")
	require.NoError(t, err)
	assert.Equal(t, "s1", c.Sets[0].Name)
}

func TestParseGMT_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"too few fields", "s1\tdesc\n", "at least one gene"},
		{"empty id", "\tdesc\ta\n", "empty set identifier"},
		{"duplicate id", "s1\td\ta\ns1\td\tb\n", `duplicate set identifier "s1"`},
		{"all genes blank", "s1\tdesc\t\t\n", `set "s1" has no genes`},
		{"empty input", "", "no gene sets found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGMT(strings.NewReader(tt.content), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadGMT_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hallmark.gmt")

	orig, err := ParseGMT(strings.NewReader(gmtFixture), "hallmark")
	require.NoError(t, err)
	require.NoError(t, WriteGMT(orig, path))

	loaded, err := LoadGMT(path)
	require.NoError(t, err)
	assert.Equal(t, "hallmark", loaded.Name)
	assert.Equal(t, orig.Sets, loaded.Sets)
}

func TestLoadGMT_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hallmark.gmt.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(gmtFixture))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	c, err := LoadGMT(path)
	require.NoError(t, err)
	assert.Equal(t, "hallmark", c.Name)
	assert.Len(t, c.Sets, 2)
}

func TestLoadGMT_MissingFile(t *testing.T) {
	_, err := LoadGMT(filepath.Join(t.TempDir(), "nope.gmt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open gene sets")
}
