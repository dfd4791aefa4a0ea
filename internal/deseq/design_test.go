package deseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
)

func twoConditionSamples() *counts.SampleTable {
	return &counts.SampleTable{Samples: []counts.Sample{
		{Name: "s1", Condition: "control", Batch: "B1"},
		{Name: "s2", Condition: "control", Batch: "B2"},
		{Name: "s3", Condition: "treated", Batch: "B1"},
		{Name: "s4", Condition: "treated", Batch: "B2"},
	}}
}

func TestParseDesign_SingleFactor(t *testing.T) {
	d, err := ParseDesign("~ condition", twoConditionSamples())
	require.NoError(t, err)

	assert.Equal(t, []string{"condition"}, d.Factors)
	assert.Equal(t, []string{"Intercept", "condition_treated"}, d.Columns())
	assert.Equal(t, "control", d.ReferenceLevel("condition"))

	x := d.ModelMatrix()
	n, p := x.Dims()
	require.Equal(t, 4, n)
	require.Equal(t, 2, p)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, x.At(i, 0))
	}
	assert.Equal(t, 0.0, x.At(0, 1))
	assert.Equal(t, 0.0, x.At(1, 1))
	assert.Equal(t, 1.0, x.At(2, 1))
	assert.Equal(t, 1.0, x.At(3, 1))
}

func TestParseDesign_TwoFactors(t *testing.T) {
	d, err := ParseDesign("~ batch + condition", twoConditionSamples())
	require.NoError(t, err)

	assert.Equal(t, []string{"batch", "condition"}, d.Factors)
	assert.Equal(t, []string{"Intercept", "batch_B2", "condition_treated"}, d.Columns())

	x := d.ModelMatrix()
	// Batch dummy marks samples s2 and s4.
	assert.Equal(t, 0.0, x.At(0, 1))
	assert.Equal(t, 1.0, x.At(1, 1))
	assert.Equal(t, 0.0, x.At(2, 1))
	assert.Equal(t, 1.0, x.At(3, 1))
	// Condition dummy marks samples s3 and s4.
	assert.Equal(t, 0.0, x.At(1, 2))
	assert.Equal(t, 1.0, x.At(2, 2))
}

func TestParseDesign_Errors(t *testing.T) {
	samples := twoConditionSamples()

	tests := []struct {
		name    string
		formula string
		wantErr string
	}{
		{"missing tilde", "condition", "must start with ~"},
		{"no terms", "~", "has no terms"},
		{"empty term", "~ condition +", "empty term"},
		{"repeated term", "~ condition + condition", "repeats term"},
		{"unknown covariate", "~ genotype", "unknown covariate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDesign(tt.formula, samples)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseDesign_SingleLevelFactor(t *testing.T) {
	samples := &counts.SampleTable{Samples: []counts.Sample{
		{Name: "s1", Condition: "control"},
		{Name: "s2", Condition: "control"},
	}}

	_, err := ParseDesign("~ condition", samples)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fewer than two levels")
}

func TestParseDesign_MissingCovariateValue(t *testing.T) {
	samples := &counts.SampleTable{Samples: []counts.Sample{
		{Name: "s1", Condition: "control", Batch: "B1"},
		{Name: "s2", Condition: "treated"},
	}}

	_, err := ParseDesign("~ batch + condition", samples)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `has no batch value`)
}

func TestContrastVector(t *testing.T) {
	d, err := ParseDesign("~ condition", twoConditionSamples())
	require.NoError(t, err)

	vec, err := d.ContrastVector(Contrast{Factor: "condition", Test: "treated", Reference: "control"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, vec)

	// Swapping test and reference flips the sign.
	vec, err = d.ContrastVector(Contrast{Factor: "condition", Test: "control", Reference: "treated"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -1}, vec)
}

func TestContrastVector_ThreeLevels(t *testing.T) {
	samples := &counts.SampleTable{Samples: []counts.Sample{
		{Name: "s1", Condition: "control"},
		{Name: "s2", Condition: "low"},
		{Name: "s3", Condition: "high"},
		{Name: "s4", Condition: "control"},
		{Name: "s5", Condition: "low"},
		{Name: "s6", Condition: "high"},
	}}
	d, err := ParseDesign("~ condition", samples)
	require.NoError(t, err)
	require.Equal(t, []string{"Intercept", "condition_low", "condition_high"}, d.Columns())

	// Neither level is the reference: both coefficients participate.
	vec, err := d.ContrastVector(Contrast{Factor: "condition", Test: "high", Reference: "low"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -1, 1}, vec)
}

func TestContrastVector_Errors(t *testing.T) {
	d, err := ParseDesign("~ condition", twoConditionSamples())
	require.NoError(t, err)

	_, err = d.ContrastVector(Contrast{Factor: "batch", Test: "B2", Reference: "B1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in design")

	_, err = d.ContrastVector(Contrast{Factor: "condition", Test: "treated", Reference: "treated"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "against itself")

	_, err = d.ContrastVector(Contrast{Factor: "condition", Test: "cured", Reference: "control"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no level "cured"`)
}

func TestParseContrast(t *testing.T) {
	c, err := ParseContrast("condition:treated/control")
	require.NoError(t, err)
	assert.Equal(t, Contrast{Factor: "condition", Test: "treated", Reference: "control"}, c)

	c, err = ParseContrast(" genotype : ko / wt ")
	require.NoError(t, err)
	assert.Equal(t, Contrast{Factor: "genotype", Test: "ko", Reference: "wt"}, c)

	for _, bad := range []string{"", "condition", "condition:treated", "condition:/control", ":treated/control"} {
		_, err := ParseContrast(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
