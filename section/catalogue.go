package section

import (
	"sort"

	"github.com/divonlan/genozip-go/gzpb"
)

// List is the authoritative, in-memory section list: one entry per
// section ever written, in file order (spec.md §3.1). It plays the
// role encoding/pam/pamutil.ShardIndex plays for a PAM shard directory
// — a single structure that lets a reader jump straight to any section
// without scanning the file — generalized here to a flat append-only
// catalogue rather than a per-shard index file, because a genozip file
// is a single stream, not a directory of shard files.
type List struct {
	entries []gzpb.SectionListEntry
}

// Append records one section at the given file offset.
func (l *List) Append(e gzpb.SectionListEntry) {
	l.entries = append(l.entries, e)
}

// Entries returns the list in file order. The caller must not modify
// the returned slice.
func (l *List) Entries() []gzpb.SectionListEntry { return l.entries }

// Len reports the number of entries.
func (l *List) Len() int { return len(l.entries) }

// ByType returns every entry whose section type is one of types, in
// file order, the Go analogue of sections_get_next_section_of_type's
// two-type filter.
func (l *List) ByType(types ...Type) []gzpb.SectionListEntry {
	want := make(map[uint8]bool, len(types))
	for _, t := range types {
		want[uint8(t)] = true
	}
	var out []gzpb.SectionListEntry
	for _, e := range l.entries {
		if want[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

// FirstOfVB returns the index of the first entry belonging to vbI, or
// -1 if the VB has no sections (the VB doesn't exist or was entirely
// removed from the reconstruction plan).
func (l *List) FirstOfVB(vbI uint32) int {
	for i, e := range l.entries {
		if e.VBlockI == vbI {
			return i
		}
	}
	return -1
}

// CountOfType reports how many entries match t.
func (l *List) CountOfType(t Type) int {
	n := 0
	for _, e := range l.entries {
		if e.Type == uint8(t) {
			n++
		}
	}
	return n
}

// Marshal serializes the list to the wire form stored in the
// SEC_SECTION_LIST section at the end of the file.
func (l *List) Marshal() []byte {
	var buf []byte
	for _, e := range l.entries {
		buf = e.Marshal(buf)
	}
	return buf
}

// UnmarshalList decodes a SEC_SECTION_LIST body in full.
func UnmarshalList(buf []byte) (*List, error) {
	l := &List{}
	for len(buf) > 0 {
		e, rest, err := gzpb.UnmarshalSectionListEntry(buf)
		if err != nil {
			return nil, err
		}
		l.entries = append(l.entries, e)
		buf = rest
	}
	return l, nil
}

// RandomAccessIndex is the in-memory form of SEC_RANDOM_ACCESS: one
// entry per (VB, chrom) pair appearing in that VB, sorted by chrom
// then min position once Sort is called. Region filtering (spec.md
// §6.3 --regions) goes through Overlapping, which scans every entry.
type RandomAccessIndex struct {
	entries []gzpb.RandomAccessEntry
}

func (r *RandomAccessIndex) Append(e gzpb.RandomAccessEntry) {
	r.entries = append(r.entries, e)
}

// Entries returns every recorded (VB, chrom) span, in whatever order
// they currently sit (call Sort first for chrom/position order).
func (r *RandomAccessIndex) Entries() []gzpb.RandomAccessEntry { return r.entries }

// Sort orders entries by (ChromWordIndex, MinPos), matching the order
// original_source/reference.h relies on for BGEN_sections_list-style
// binary search.
func (r *RandomAccessIndex) Sort() {
	sort.Slice(r.entries, func(i, j int) bool {
		a, b := r.entries[i], r.entries[j]
		if a.ChromWordIndex != b.ChromWordIndex {
			return a.ChromWordIndex < b.ChromWordIndex
		}
		return a.MinPos < b.MinPos
	})
}

// Overlapping returns every entry for chrom whose [MinPos,MaxPos] span
// intersects [start,end].
func (r *RandomAccessIndex) Overlapping(chrom uint32, start, end uint32) []gzpb.RandomAccessEntry {
	var out []gzpb.RandomAccessEntry
	for _, e := range r.entries {
		if e.ChromWordIndex == chrom && e.MinPos <= end && e.MaxPos >= start {
			out = append(out, e)
		}
	}
	return out
}

func (r *RandomAccessIndex) Marshal() []byte {
	var buf []byte
	for _, e := range r.entries {
		buf = e.Marshal(buf)
	}
	return buf
}

func UnmarshalRandomAccessIndex(buf []byte) (*RandomAccessIndex, error) {
	r := &RandomAccessIndex{}
	for len(buf) > 0 {
		e, rest, err := gzpb.UnmarshalRandomAccessEntry(buf)
		if err != nil {
			return nil, err
		}
		r.entries = append(r.entries, e)
		buf = rest
	}
	return r, nil
}

// Plan is the in-memory SEC_RECON_PLAN: the ordered list of directives
// the writer thread in package piz follows to reconstruct (or skip)
// each VB (spec.md §4.4, §4.9).
type Plan struct {
	items []gzpb.ReconPlanItem
}

func (p *Plan) Append(item gzpb.ReconPlanItem) { p.items = append(p.items, item) }
func (p *Plan) Items() []gzpb.ReconPlanItem    { return p.items }

func (p *Plan) Marshal() []byte {
	var buf []byte
	for _, it := range p.items {
		buf = it.Marshal(buf)
	}
	return buf
}

func UnmarshalPlan(buf []byte) (*Plan, error) {
	p := &Plan{}
	for len(buf) > 0 {
		it, rest, err := gzpb.UnmarshalReconPlanItem(buf)
		if err != nil {
			return nil, err
		}
		p.items = append(p.items, it)
		buf = rest
	}
	return p, nil
}
