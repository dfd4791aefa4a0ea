// Package deseq implements negative-binomial differential expression
// testing: median-of-ratios size factors, shrunken dispersion
// estimates, per-gene GLM fits and Wald tests.
package deseq

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
)

// Contrast names the comparison to report: the Test level against the
// Reference level of a design factor.
type Contrast struct {
	Factor    string
	Test      string
	Reference string
}

func (c Contrast) String() string {
	return fmt.Sprintf("%s %s vs %s", c.Factor, c.Test, c.Reference)
}

// ParseContrast parses a "factor:test/reference" specification, e.g.
// "condition:treated/control".
func ParseContrast(s string) (Contrast, error) {
	factor, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Contrast{}, fmt.Errorf("contrast %q: want factor:test/reference", s)
	}
	test, ref, ok := strings.Cut(rest, "/")
	if !ok {
		return Contrast{}, fmt.Errorf("contrast %q: want factor:test/reference", s)
	}
	c := Contrast{
		Factor:    strings.TrimSpace(factor),
		Test:      strings.TrimSpace(test),
		Reference: strings.TrimSpace(ref),
	}
	if c.Factor == "" || c.Test == "" || c.Reference == "" {
		return Contrast{}, fmt.Errorf("contrast %q: empty component", s)
	}
	return c, nil
}

// Design is a model matrix built from a formula over the sample table,
// e.g. "~ condition" or "~ batch + condition". Factors use treatment
// coding: the first level of each factor in sample-table order is the
// reference and is absorbed into the intercept.
type Design struct {
	Formula string
	Factors []string

	levels  map[string][]string
	columns []string
	coefIdx map[string]int // "factor/level" -> model matrix column
	x       *mat.Dense
}

// ParseDesign parses a design formula against the sample table and
// builds the model matrix. Every term must be a metadata covariate and
// must have at least two levels.
func ParseDesign(formula string, samples *counts.SampleTable) (*Design, error) {
	terms, err := parseFormula(formula)
	if err != nil {
		return nil, err
	}

	d := &Design{
		Formula: formula,
		Factors: terms,
		levels:  make(map[string][]string),
		coefIdx: make(map[string]int),
		columns: []string{"Intercept"},
	}

	n := len(samples.Samples)
	type dummy struct {
		values []string
		level  string
	}
	var dummies []dummy

	for _, factor := range terms {
		values, err := samples.Values(factor)
		if err != nil {
			return nil, fmt.Errorf("design %q: %w", formula, err)
		}
		for i, v := range values {
			if v == "" {
				return nil, fmt.Errorf("design %q: sample %q has no %s value",
					formula, samples.Samples[i].Name, factor)
			}
		}
		levels, err := samples.Levels(factor)
		if err != nil {
			return nil, fmt.Errorf("design %q: %w", formula, err)
		}
		if len(levels) < 2 {
			return nil, fmt.Errorf("design %q: factor %s has fewer than two levels", formula, factor)
		}
		d.levels[factor] = levels

		// Reference level is levels[0]; one dummy column per remaining level.
		for _, level := range levels[1:] {
			d.coefIdx[factor+"/"+level] = len(d.columns)
			d.columns = append(d.columns, factor+"_"+level)
			dummies = append(dummies, dummy{values: values, level: level})
		}
	}

	p := len(d.columns)
	data := make([]float64, n*p)
	for i := 0; i < n; i++ {
		data[i*p] = 1
		for k, dm := range dummies {
			if dm.values[i] == dm.level {
				data[i*p+1+k] = 1
			}
		}
	}
	d.x = mat.NewDense(n, p, data)

	return d, nil
}

func parseFormula(formula string) ([]string, error) {
	s := strings.TrimSpace(formula)
	if !strings.HasPrefix(s, "~") {
		return nil, fmt.Errorf("design formula %q must start with ~", formula)
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "~"))
	if s == "" {
		return nil, fmt.Errorf("design formula %q has no terms", formula)
	}

	var terms []string
	seen := make(map[string]bool)
	for _, term := range strings.Split(s, "+") {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("design formula %q has an empty term", formula)
		}
		if seen[term] {
			return nil, fmt.Errorf("design formula %q repeats term %s", formula, term)
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms, nil
}

// ModelMatrix returns the n×p model matrix.
func (d *Design) ModelMatrix() *mat.Dense { return d.x }

// Columns returns the model matrix column names.
func (d *Design) Columns() []string { return d.columns }

// NCoef returns the number of model coefficients.
func (d *Design) NCoef() int { return len(d.columns) }

// Levels returns the levels of a design factor in reference-first order.
func (d *Design) Levels(factor string) []string { return d.levels[factor] }

// ReferenceLevel returns the reference level of a design factor, or ""
// if the factor is not in the design.
func (d *Design) ReferenceLevel(factor string) string {
	if levels, ok := d.levels[factor]; ok {
		return levels[0]
	}
	return ""
}

// ContrastVector returns the coefficient weights c such that c·β is the
// log2 fold change of the contrast's Test level over its Reference
// level.
func (d *Design) ContrastVector(c Contrast) ([]float64, error) {
	levels, ok := d.levels[c.Factor]
	if !ok {
		return nil, fmt.Errorf("contrast factor %q is not in design %q", c.Factor, d.Formula)
	}
	if c.Test == c.Reference {
		return nil, fmt.Errorf("contrast %s tests a level against itself", c)
	}

	vec := make([]float64, len(d.columns))
	for _, part := range []struct {
		level string
		sign  float64
	}{
		{c.Test, 1},
		{c.Reference, -1},
	} {
		if part.level == levels[0] {
			continue // reference level sits in the intercept
		}
		idx, ok := d.coefIdx[c.Factor+"/"+part.level]
		if !ok {
			return nil, fmt.Errorf("contrast %s: factor %s has no level %q", c, c.Factor, part.level)
		}
		vec[idx] = part.sign
	}
	return vec, nil
}
