// Package pathway renders pathway diagrams as Graphviz graphs with
// nodes colored by fold change: blue for down, red for up, gray for
// untested genes.
package pathway

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
)

// Node is one gene in the diagram.
type Node struct {
	Gene   string
	Label  string
	Log2FC float64
}

// Edge is a directed relation between two member genes.
type Edge struct {
	From string
	To   string
	Type string
}

// Diagram holds a pathway ready for rendering.
type Diagram struct {
	Name  string
	Nodes []Node
	Edges []Edge
}

// Build assembles a diagram for one gene set. Fold changes come from
// the results, labels from the annotation table when present. Edges
// whose endpoints are not both set members are dropped.
func Build(set geneset.Set, rs deseq.Results, ann annotation.Table, edges []Edge) *Diagram {
	name := set.Name
	if name == "" {
		name = set.ID
	}
	d := &Diagram{Name: name}

	members := make(map[string]bool, len(set.Genes))
	for _, gene := range set.Genes {
		if members[gene] {
			continue
		}
		members[gene] = true

		label := gene
		if ann != nil {
			if sym := ann.Symbol(gene); sym != "" {
				label = sym
			}
		}
		lfc := math.NaN()
		if r, ok := rs.ByGene(gene); ok {
			lfc = r.Log2FC
		}
		d.Nodes = append(d.Nodes, Node{Gene: gene, Label: label, Log2FC: lfc})
	}

	for _, e := range edges {
		if members[e.From] && members[e.To] {
			d.Edges = append(d.Edges, e)
		}
	}
	return d
}

// DOT renders the diagram in Graphviz DOT format.
func (d *Diagram) DOT() string {
	maxAbs := 0.0
	for _, n := range d.Nodes {
		if a := math.Abs(n.Log2FC); !math.IsNaN(a) && a > maxAbs {
			maxAbs = a
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph pathway {\n")
	buf.WriteString("  rankdir=LR;\n")
	fmt.Fprintf(&buf, "  label=%q;\n", d.Name)
	buf.WriteString("  labelloc=t;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=12, margin=\"0.15,0.08\"];\n")
	buf.WriteString("\n")

	for _, n := range d.Nodes {
		label := n.Label
		if !math.IsNaN(n.Log2FC) {
			label = fmt.Sprintf("%s\n%+.2f", n.Label, n.Log2FC)
		}
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q];\n", n.Gene, label, fillColor(n.Log2FC, maxAbs))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		attrs := edgeAttrs(e.Type)
		if attrs == "" {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, attrs)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// fillColor maps a fold change to a hex color between blue and red,
// saturating at the largest absolute fold change in the diagram.
// Untested genes are gray.
func fillColor(lfc, maxAbs float64) string {
	if math.IsNaN(lfc) {
		return "#d9d9d9"
	}
	if maxAbs <= 0 {
		return "#ffffff"
	}
	t := lfc / maxAbs
	if t > 1 {
		t = 1
	}
	if t < -1 {
		t = -1
	}
	const span = 180
	if t >= 0 {
		v := uint8(255 - t*span)
		return fmt.Sprintf("#ff%02x%02x", v, v)
	}
	v := uint8(255 + t*span)
	return fmt.Sprintf("#%02x%02xff", v, v)
}

func edgeAttrs(relType string) string {
	switch strings.ToLower(relType) {
	case "inhibition", "repression":
		return "arrowhead=tee"
	case "activation":
		return "arrowhead=normal"
	case "":
		return ""
	default:
		return fmt.Sprintf("label=%q, fontsize=9", relType)
	}
}
