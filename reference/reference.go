// Package reference implements the genomic reference of spec.md §4.6:
// per-contig Ranges of 2-bit packed bases with an is_set bitmap and
// contiguous gpos addressing, plus a whole-genome digest. It reuses
// zcontext's ACGT/bitmap packing (itself grounded in
// encoding/bam/fieldtype.go's doublet packing) rather than
// reimplementing 2-bit packing a second time.
package reference

import (
	"crypto/md5"
	"fmt"
	"sort"

	"github.com/divonlan/genozip-go/zcontext"
)

// Range is one contig's packed bases: a 2-bit ACGT stream plus an
// is_set bitmap marking which positions are actually covered by the
// reference (spec.md §4.6 "is_set bitmap"), addressed globally via
// GPosStart once the genome is finalized.
type Range struct {
	Chrom          string
	ChromWordIndex uint32
	FirstPos       uint64 // 1-based first position this range covers
	LastPos        uint64
	Bases          *zcontext.Local // LTypeACGT
	IsSet          *zcontext.Local // LTypeBitmap
	GPosStart      uint64          // assigned by Genome.Finalize
}

// NewRange creates an empty range for one contig spanning
// [firstPos,lastPos].
func NewRange(chrom string, chromWordIndex uint32, firstPos, lastPos uint64) *Range {
	return &Range{
		Chrom:          chrom,
		ChromWordIndex: chromWordIndex,
		FirstPos:       firstPos,
		LastPos:        lastPos,
		Bases:          zcontext.NewLocal(zcontext.LTypeACGT),
		IsSet:          zcontext.NewLocal(zcontext.LTypeBitmap),
	}
}

// PutBase appends one base at the next position in the range, marking
// it set. Non-ACGT bytes are recorded via the ACGT exception stream
// (spec.md §4.6 NONREF_X), same as any other ACGT-typed context.
func (r *Range) PutBase(b byte) {
	r.Bases.PutACGT(b)
	r.IsSet.PutBit(true)
}

// PutGap marks the next position as not covered by this reference
// (e.g. an 'N' run the reference chooses not to store bases for).
func (r *Range) PutGap() {
	r.Bases.PutACGT('A') // placeholder code; is_set=false means ignore it
	r.IsSet.PutBit(false)
}

// Len reports how many positions this range covers.
func (r *Range) Len() uint64 { return r.Bases.NumACGT() }

// BaseAt returns the base at local offset i (0-based) and whether it
// is actually set.
func (r *Range) BaseAt(i uint64) (base byte, isSet bool) {
	return r.Bases.ACGTAt(i), r.bitAt(i)
}

func (r *Range) bitAt(i uint64) bool {
	cursor := r.IsSet
	byteIdx := int(i / 8)
	if byteIdx >= len(cursor.Bytes()) {
		return false
	}
	return cursor.Bytes()[byteIdx]&(1<<(i%8)) != 0
}

// GPos converts a 1-based position within this range to its global,
// genome-wide coordinate (spec.md §4.6 "contiguous addressing via
// gpos"), valid only after Genome.Finalize has assigned GPosStart.
func (r *Range) GPos(pos uint64) uint64 {
	return r.GPosStart + (pos - r.FirstPos)
}

// Genome is the whole-file reference: every contig's Range, indexed
// by name, plus the gpos assignment and digest that make up
// SEC_REFERENCE/SEC_REF_IS_SET's file-level bookkeeping.
type Genome struct {
	byChrom   map[string]*Range
	order     []string // insertion order, preserved across Finalize
	finalized bool
}

// NewGenome creates an empty reference genome.
func NewGenome() *Genome { return &Genome{byChrom: make(map[string]*Range)} }

// AddRange registers one contig's range. Must be called before Finalize.
func (g *Genome) AddRange(r *Range) error {
	if g.finalized {
		return fmt.Errorf("reference: genome already finalized")
	}
	if _, exists := g.byChrom[r.Chrom]; exists {
		return fmt.Errorf("reference: duplicate contig %q", r.Chrom)
	}
	g.byChrom[r.Chrom] = r
	g.order = append(g.order, r.Chrom)
	return nil
}

// Finalize assigns each range's GPosStart in insertion order, making
// the whole genome addressable by a single monotonically increasing
// gpos (spec.md §4.6). Ranges are laid out back to back with no gaps.
func (g *Genome) Finalize() {
	if g.finalized {
		return
	}
	var next uint64
	for _, chrom := range g.order {
		r := g.byChrom[chrom]
		r.GPosStart = next
		next += r.Len()
	}
	g.finalized = true
}

// Range returns the range for chrom, or nil if unknown.
func (g *Genome) Range(chrom string) *Range { return g.byChrom[chrom] }

// Chroms returns the contig names in insertion order.
func (g *Genome) Chroms() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// TotalLen reports the sum of every contig's length.
func (g *Genome) TotalLen() uint64 {
	var total uint64
	for _, chrom := range g.order {
		total += g.byChrom[chrom].Len()
	}
	return total
}

// Digest computes a whole-genome MD5 digest by hashing each contig's
// name and packed bases in a fixed (sorted-by-name) order, so the
// same reference always yields the same digest regardless of the
// order its ranges were added (spec.md §4.6, §6.5 "genome digest").
func (g *Genome) Digest() [16]byte {
	names := make([]string, 0, len(g.order))
	for _, c := range g.order {
		names = append(names, c)
	}
	sort.Strings(names)
	h := md5.New()
	for _, name := range names {
		r := g.byChrom[name]
		h.Write([]byte(name))
		h.Write(r.Bases.Bytes())
		h.Write(r.IsSet.Bytes())
	}
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}
