// Package geneset provides gene set collections in GMT format for
// enrichment analysis.
package geneset

// Set is one named gene set. Gene identifiers must share a namespace
// with the expression data they are tested against.
type Set struct {
	ID    string
	Name  string
	Genes []string
}

// Size returns the number of member genes.
func (s *Set) Size() int { return len(s.Genes) }

// Contains reports whether gene is a member.
func (s *Set) Contains(gene string) bool {
	for _, g := range s.Genes {
		if g == gene {
			return true
		}
	}
	return false
}

// Collection is a named group of gene sets. A gene may belong to any
// number of sets.
type Collection struct {
	Name string
	Sets []Set
}

// Filter keeps sets whose size lies in [minSize, maxSize]. maxSize <= 0
// means no upper bound.
func (c *Collection) Filter(minSize, maxSize int) *Collection {
	out := &Collection{Name: c.Name}
	for _, s := range c.Sets {
		if s.Size() < minSize {
			continue
		}
		if maxSize > 0 && s.Size() > maxSize {
			continue
		}
		out.Sets = append(out.Sets, s)
	}
	return out
}

// Restrict intersects every set with the universe, dropping genes
// outside it and sets left empty. Gene order within sets is preserved.
func (c *Collection) Restrict(universe []string) *Collection {
	inUniverse := make(map[string]bool, len(universe))
	for _, g := range universe {
		inUniverse[g] = true
	}

	out := &Collection{Name: c.Name}
	for _, s := range c.Sets {
		var kept []string
		for _, g := range s.Genes {
			if inUniverse[g] {
				kept = append(kept, g)
			}
		}
		if len(kept) == 0 {
			continue
		}
		out.Sets = append(out.Sets, Set{ID: s.ID, Name: s.Name, Genes: kept})
	}
	return out
}

// ByID returns the set with the given ID, or nil.
func (c *Collection) ByID(id string) *Set {
	for i := range c.Sets {
		if c.Sets[i].ID == id {
			return &c.Sets[i]
		}
	}
	return nil
}
