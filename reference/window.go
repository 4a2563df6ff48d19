package reference

import "github.com/divonlan/genozip-go/refhash"

// Window returns the length bases starting at the 1-based position
// pos on chrom, or ok=false if chrom is unknown, the window runs past
// the end of the range, or any base in it is unset (spec.md §4.6: a
// SEQ diff can only be taken against reference bases the file
// actually covers).
func (g *Genome) Window(chrom string, pos uint64, length int) (bases []byte, ok bool) {
	r := g.Range(chrom)
	if r == nil || length <= 0 {
		return nil, false
	}
	if pos < r.FirstPos {
		return nil, false
	}
	start := pos - r.FirstPos
	if start+uint64(length) > r.Len() {
		return nil, false
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		b, set := r.BaseAt(start + uint64(i))
		if !set {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

// GPosToChrom converts a genome-wide gpos (as produced by refhash
// lookups) back to a (chrom, 1-based position) pair.
func (g *Genome) GPosToChrom(gpos uint64) (chrom string, pos uint64, ok bool) {
	for _, name := range g.order {
		r := g.byChrom[name]
		if gpos >= r.GPosStart && gpos < r.GPosStart+r.Len() {
			return name, r.FirstPos + (gpos - r.GPosStart), true
		}
	}
	return "", 0, false
}

// BuildKmerIndex populates a refhash.Table with every refhash.KmerLen-
// base k-mer this genome covers, keyed to its gpos (spec.md §4.6): the
// alignment-free seed table unmapped (RNAME "*") SEQ records probe to
// find a candidate reference window to diff against.
func (g *Genome) BuildKmerIndex() *refhash.Table {
	t := refhash.NewTable(g.TotalLen(), 4)
	for _, name := range g.order {
		r := g.byChrom[name]
		n := r.Len()
		if n < refhash.KmerLen {
			continue
		}
		buf := make([]byte, refhash.KmerLen)
		for start := uint64(0); start+uint64(refhash.KmerLen) <= n; start++ {
			complete := true
			for i := 0; i < refhash.KmerLen; i++ {
				b, set := r.BaseAt(start + uint64(i))
				if !set {
					complete = false
					break
				}
				buf[i] = b
			}
			if !complete {
				continue
			}
			key, ok := refhash.PackKmer(buf)
			if !ok {
				continue
			}
			t.Insert(key, r.GPosStart+start)
		}
	}
	return t
}
