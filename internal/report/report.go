// Package report renders a self-contained HTML report for one analysis
// run: run metadata, sample table, significant genes, embedded figures
// and enrichment tables.
package report

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

//go:embed report.html.tmpl
var reportHTML string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"num":  formatNum,
	"pval": formatPValue,
}).Parse(reportHTML))

// Row caps keep the report readable; the full tables live in the CSV
// outputs and the results store.
const (
	maxGeneRows = 50
	maxSetRows  = 25
)

// Figure is one image embedded in the report as a data URI.
type Figure struct {
	Title string
	Src   template.URL
}

// GeneRow is one significant gene in the report table.
type GeneRow struct {
	deseq.Result
	Symbol string
}

// Summary counts the outcome of one contrast.
type Summary struct {
	Total int
	Up    int
	Down  int
}

// Section is the result table for one enrichment method.
type Section struct {
	Method string
	Rows   []enrich.Result
	Total  int
}

// Data is everything the report template consumes.
type Data struct {
	Run              store.RunMeta
	Version          string
	Generated        time.Time
	Samples          []counts.Sample
	HasBatch         bool
	Summary          Summary
	TotalSignificant int
	Genes            []GeneRow
	Figures          []Figure
	Sections         []Section
}

// Build assembles report data from one run's outputs. Significant genes
// use the run's stored thresholds and are listed by adjusted p-value;
// enrichment sections appear in method name order.
func Build(run store.RunMeta, samples []counts.Sample, rs deseq.Results, ann annotation.Table, enrichment map[string][]enrich.Result) *Data {
	d := &Data{Run: run, Generated: time.Now(), Samples: samples}
	for _, s := range samples {
		if s.Batch != "" {
			d.HasBatch = true
		}
	}

	sig := rs.Significant(run.Alpha, run.LFCThreshold)
	sig.SortByPAdj()
	d.Summary.Total = len(rs)
	for _, r := range sig {
		if r.Log2FC > 0 {
			d.Summary.Up++
		} else {
			d.Summary.Down++
		}
	}
	d.TotalSignificant = len(sig)
	if len(sig) > maxGeneRows {
		sig = sig[:maxGeneRows]
	}
	for _, r := range sig {
		row := GeneRow{Result: r}
		if ann != nil {
			row.Symbol = ann.Symbol(r.GeneID)
		}
		d.Genes = append(d.Genes, row)
	}

	methods := make([]string, 0, len(enrichment))
	for m := range enrichment {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		rows := enrichment[m]
		sec := Section{Method: m, Total: len(rows)}
		if len(rows) > maxSetRows {
			rows = rows[:maxSetRows]
		}
		sec.Rows = rows
		d.Sections = append(d.Sections, sec)
	}

	return d
}

// AddFigure embeds a PNG file into the report.
func (d *Data) AddFigure(title, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read figure: %w", err)
	}
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	d.Figures = append(d.Figures, Figure{Title: title, Src: template.URL(src)})
	return nil
}

// WriteHTML renders the report.
func WriteHTML(w io.Writer, d *Data) error {
	return reportTemplate.Execute(w, d)
}

// Write renders the report to a file.
func Write(path string, d *Data) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := WriteHTML(f, d); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func formatNum(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatPValue(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	if v != 0 && v < 1e-3 {
		return strconv.FormatFloat(v, 'e', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
