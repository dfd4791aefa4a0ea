// Package annotation provides gene annotation lookup tables mapping
// primary gene IDs to symbols, descriptions and Entrez IDs.
package annotation

import "sort"

// Record holds the annotation for a single gene.
type Record struct {
	GeneID      string
	Symbol      string
	Description string
	EntrezID    string
	Biotype     string
}

// Table maps primary gene ID to its annotation Record.
type Table map[string]*Record

// Lookup returns the record for a gene ID, or nil if unknown.
func (t Table) Lookup(geneID string) *Record {
	return t[geneID]
}

// Symbol returns the symbol for a gene ID, or the empty string if the
// gene has no annotation. It never invents a mapping.
func (t Table) Symbol(geneID string) string {
	if r, ok := t[geneID]; ok {
		return r.Symbol
	}
	return ""
}

// Symbols maps a list of gene IDs to symbols. Genes without an
// annotation keep an empty symbol at their position.
func (t Table) Symbols(geneIDs []string) []string {
	out := make([]string, len(geneIDs))
	for i, id := range geneIDs {
		out[i] = t.Symbol(id)
	}
	return out
}

// MapToEntrez translates gene IDs into Entrez IDs for gene-set
// collections keyed by Entrez. Genes without an Entrez mapping are
// dropped; the second return value lists them.
func (t Table) MapToEntrez(geneIDs []string) (mapped []string, missing []string) {
	for _, id := range geneIDs {
		r, ok := t[id]
		if !ok || r.EntrezID == "" {
			missing = append(missing, id)
			continue
		}
		mapped = append(mapped, r.EntrezID)
	}
	return mapped, missing
}

// GeneIDs returns all annotated gene IDs in sorted order.
func (t Table) GeneIDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge adds records from other, keeping existing entries on conflict.
func (t Table) Merge(other Table) {
	for id, r := range other {
		if _, ok := t[id]; !ok {
			t[id] = r
		}
	}
}
