package output

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
)

func TestWriteEnrichmentCSV(t *testing.T) {
	nan := math.NaN()
	rs := []enrich.Result{
		{
			SetID: "HM_A", SetName: "Apoptosis, intrinsic pathway", SetSize: 40, Overlap: 3,
			GeneRatio: 0.25, ES: nan, NES: nan, PValue: 1e-6, PAdj: 2e-6,
			Core: []string{"g1", "g2", "g3"},
		},
		{
			SetID: "HM_B", SetName: "Glycolysis", SetSize: 25, Overlap: 2,
			GeneRatio: 0.5, ES: -0.62, NES: -1.8, PValue: 0.004, PAdj: 0.004,
			Core: []string{"g7", "g9"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEnrichmentCSV(&buf, rs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "set_id,set_name,set_size,overlap,gene_ratio,es,nes,pvalue,padj,core_genes", lines[0])

	// The comma in the set name forces quoting.
	assert.Contains(t, lines[1], `"Apoptosis, intrinsic pathway"`)
	assert.Contains(t, lines[1], "NA,NA")
	assert.Contains(t, lines[1], "g1;g2;g3")

	assert.Contains(t, lines[2], "-0.62,-1.8")
	assert.Contains(t, lines[2], "g7;g9")
}

func TestWriteEnrichmentCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnrichmentCSV(&buf, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
}
