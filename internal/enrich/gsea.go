package enrich

import (
	"math"
	"math/rand"
	"sort"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
)

const defaultPermutations = 1000

// GSEA is the rank-based enrichment engine. It computes the weighted
// Kolmogorov-Smirnov running-sum statistic (weight exponent one) over
// the signed ranking and calibrates it against a seeded
// gene-permutation null.
type GSEA struct {
	Permutations int
	Seed         int64
}

// NewGSEA builds a GSEA engine. permutations <= 0 selects the default
// of 1000. The seed fixes the permutation null, so repeated runs on the
// same inputs give identical p-values.
func NewGSEA(permutations int, seed int64) *GSEA {
	return &GSEA{Permutations: permutations, Seed: seed}
}

// Name implements Engine.
func (g *GSEA) Name() string { return "gsea" }

// Run scores every set against the ranking. Sets with no ranked member,
// or covering the entire ranking, are skipped. Sets are processed in
// collection order with one shared random source, so results are
// deterministic for a given seed.
func (g *GSEA) Run(r *Ranking, c *geneset.Collection) ([]Result, error) {
	if err := checkOverlap(r, c); err != nil {
		return nil, err
	}

	perms := g.Permutations
	if perms <= 0 {
		perms = defaultPermutations
	}
	rng := rand.New(rand.NewSource(g.Seed))

	n := r.Len()
	rank := make(map[string]int, n)
	absScores := make([]float64, n)
	for i, gene := range r.Genes {
		if _, ok := rank[gene]; !ok {
			rank[gene] = i
		}
		absScores[i] = math.Abs(r.Scores[i])
	}

	scratch := make([]int, n)
	for i := range scratch {
		scratch[i] = i
	}

	var results []Result
	for _, set := range c.Sets {
		positions := memberRanks(set, rank)
		if len(positions) == 0 || len(positions) == n {
			continue
		}

		es, peak := runningES(positions, absScores, n)

		// Gene-permutation null: the same number of hits at random
		// ranks, rescored with the weights those ranks carry.
		var nPos, nNeg, nGePos, nLeNeg int
		var sumPos, sumNeg float64
		for p := 0; p < perms; p++ {
			permPos := sampleRanks(rng, scratch, len(positions))
			esPerm, _ := runningES(permPos, absScores, n)
			if esPerm >= 0 {
				nPos++
				sumPos += esPerm
				if esPerm >= es {
					nGePos++
				}
			} else {
				nNeg++
				sumNeg += esPerm
				if esPerm <= es {
					nLeNeg++
				}
			}
		}

		pval := 1.0
		nes := math.NaN()
		if es >= 0 {
			pval = float64(1+nGePos) / float64(1+nPos)
			if nPos > 0 && sumPos > 0 {
				nes = es / (sumPos / float64(nPos))
			}
		} else {
			pval = float64(1+nLeNeg) / float64(1+nNeg)
			if nNeg > 0 && sumNeg < 0 {
				nes = es / math.Abs(sumNeg/float64(nNeg))
			}
		}

		core := leadingEdge(r, positions, peak, es)
		results = append(results, Result{
			SetID:     set.ID,
			SetName:   set.Name,
			SetSize:   len(positions),
			Overlap:   len(core),
			GeneRatio: float64(len(core)) / float64(len(positions)),
			ES:        es,
			NES:       nes,
			PValue:    pval,
			Core:      core,
		})
	}

	adjustResults(results)
	return results, nil
}

// memberRanks returns the sorted ranking positions of the set members,
// duplicates collapsed.
func memberRanks(set geneset.Set, rank map[string]int) []int {
	seen := make(map[int]bool, len(set.Genes))
	var positions []int
	for _, gene := range set.Genes {
		pos, ok := rank[gene]
		if !ok || seen[pos] {
			continue
		}
		seen[pos] = true
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

// runningES walks the ranking and returns the enrichment score: the
// running sum's largest excursion from zero, signed. Hits add their
// share of the total absolute score, misses subtract 1/(n-nh). peak is
// the index into positions where the extreme was reached.
//
// The sum is only evaluated at hit boundaries. Between hits it moves
// monotonically, and after the final hit it decays straight to zero, so
// no extreme can hide elsewhere.
func runningES(positions []int, absScores []float64, n int) (es float64, peak int) {
	nh := len(positions)
	missInc := 1.0 / float64(n-nh)

	var sumAbs float64
	for _, pos := range positions {
		sumAbs += absScores[pos]
	}

	var cur, maxES, minES float64
	maxAt, minAt := 0, 0
	prev := -1
	for i, pos := range positions {
		cur -= float64(pos-1-prev) * missInc
		if cur < minES {
			minES = cur
			minAt = i
		}
		if sumAbs > 0 {
			cur += absScores[pos] / sumAbs
		} else {
			cur += 1.0 / float64(nh)
		}
		if cur > maxES {
			maxES = cur
			maxAt = i
		}
		prev = pos
	}

	if maxES >= -minES {
		return maxES, maxAt
	}
	return minES, minAt
}

// leadingEdge lists the genes driving the score: members up to the peak
// for positive ES, members from the trough on for negative ES.
func leadingEdge(r *Ranking, positions []int, peak int, es float64) []string {
	var idx []int
	if es >= 0 {
		idx = positions[:peak+1]
	} else {
		idx = positions[peak:]
	}
	core := make([]string, len(idx))
	for i, pos := range idx {
		core[i] = r.Genes[pos]
	}
	return core
}

// sampleRanks draws k distinct ranks by partial Fisher-Yates over the
// scratch slice, which must be a permutation of 0..n-1 and is reused
// across draws.
func sampleRanks(rng *rand.Rand, scratch []int, k int) []int {
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	out := make([]int, k)
	copy(out, scratch[:k])
	sort.Ints(out)
	return out
}
