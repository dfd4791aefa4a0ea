package enrich

import (
	"fmt"
	"math"
	"sort"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/stats"
)

// Overrep is the hypergeometric over-representation engine. A list of
// selected genes, typically the significant hits, is tested for
// enrichment in each set against the ranked genes as universe.
type Overrep struct {
	selected []string
}

// NewOverrep builds an over-representation engine for the given
// selected genes.
func NewOverrep(selected []string) *Overrep {
	return &Overrep{selected: selected}
}

// Name implements Engine.
func (o *Overrep) Name() string { return "ora" }

// Run tests every set with at least one selected member. The reported
// p-value is the hypergeometric upper tail P[X >= overlap].
func (o *Overrep) Run(r *Ranking, c *geneset.Collection) ([]Result, error) {
	if err := checkOverlap(r, c); err != nil {
		return nil, err
	}

	universe := make(map[string]int, r.Len())
	for i, g := range r.Genes {
		if _, ok := universe[g]; !ok {
			universe[g] = i
		}
	}

	// Selected genes outside the universe cannot be drawn and are
	// ignored; rank order is kept so Core lists read top-down.
	selectedRank := make(map[string]int)
	for _, g := range o.selected {
		if rank, ok := universe[g]; ok {
			selectedRank[g] = rank
		}
	}
	if len(selectedRank) == 0 {
		return nil, fmt.Errorf("none of the %d selected genes appear in the ranked universe", len(o.selected))
	}

	bigN := len(universe)
	n := len(selectedRank)

	var results []Result
	for _, set := range c.Sets {
		inUniverse := 0
		var core []string
		seen := make(map[string]bool, len(set.Genes))
		for _, g := range set.Genes {
			if seen[g] {
				continue
			}
			seen[g] = true
			if _, ok := universe[g]; !ok {
				continue
			}
			inUniverse++
			if _, ok := selectedRank[g]; ok {
				core = append(core, g)
			}
		}
		if len(core) == 0 {
			continue
		}
		sort.Slice(core, func(i, j int) bool { return selectedRank[core[i]] < selectedRank[core[j]] })

		k := len(core)
		results = append(results, Result{
			SetID:     set.ID,
			SetName:   set.Name,
			SetSize:   inUniverse,
			Overlap:   k,
			GeneRatio: float64(k) / float64(n),
			ES:        math.NaN(),
			NES:       math.NaN(),
			PValue:    stats.HypergeomUpperTail(k, inUniverse, n, bigN),
			Core:      core,
		})
	}

	adjustResults(results)
	return results, nil
}
