package enrich

import (
	"fmt"
	"math"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
)

// MapToEntrez rewrites result gene IDs into Entrez IDs so rankings and
// significant-gene selections match Entrez-keyed collections. Genes
// without an Entrez mapping are dropped and returned in missing. When
// several genes map to one Entrez ID the row with the lowest p-value
// represents it.
func MapToEntrez(t annotation.Table, rs deseq.Results) (mapped deseq.Results, missing []string, err error) {
	ids, missing := t.MapToEntrez(rs.Genes())
	if len(ids) == 0 {
		return nil, missing, fmt.Errorf("none of %d result genes has an Entrez ID in the annotation table", len(rs))
	}
	skip := make(map[string]bool, len(missing))
	for _, g := range missing {
		skip[g] = true
	}
	mapped = make(deseq.Results, 0, len(ids))
	index := make(map[string]int, len(ids))
	next := 0
	for _, r := range rs {
		if skip[r.GeneID] {
			continue
		}
		r.GeneID = ids[next]
		next++
		if j, ok := index[r.GeneID]; ok {
			if lowerPValue(r, mapped[j]) {
				mapped[j] = r
			}
			continue
		}
		index[r.GeneID] = len(mapped)
		mapped = append(mapped, r)
	}
	return mapped, missing, nil
}

// lowerPValue reports whether a should represent a shared Entrez ID
// over b. An untested NaN row loses to any tested row.
func lowerPValue(a, b deseq.Result) bool {
	if math.IsNaN(a.PValue) {
		return false
	}
	return math.IsNaN(b.PValue) || a.PValue < b.PValue
}
