// Package refhash implements the layered open-addressed k-mer hash of
// spec.md §4.6: a lookup from a 14-base k-mer to a reference gpos,
// used to seed alignment-free matching against the reference. Layers
// halve in size; once every layer is full for a given key, insertion
// falls back to a bounded random overwrite rather than growing
// further (original_source/refhash.c's documented 25% eviction rule,
// see DESIGN.md Open Question decision).
package refhash

import (
	"github.com/minio/highwayhash"
)

// KmerLen is the number of bases hashed into one key (28 bits packed
// 2 bits/base, original_source/refhash.c).
const KmerLen = 14

// NumLayers is how many halving layers the table has. The first layer
// holds the most entries; each subsequent layer is half the previous
// one's size, the layering spec.md §4.6 names without specifying the
// eviction rule (resolved against original_source/refhash.c).
const NumLayers = 4

// EvictionFraction is the fraction of a full bucket's existing entries
// randomly overwritten once every layer has failed to place a new
// key, per original_source/refhash.c's 25% rule.
const EvictionFraction = 0.25

var hashSeed = [highwayhash.Size]byte{'g', 'e', 'n', 'o', 'z', 'i', 'p', '-', 'r', 'e', 'f', 'h', 'a', 's', 'h'}

type entry struct {
	occupied bool
	key      uint32 // packed 2-bit k-mer
	gpos     uint64
}

type layer struct {
	buckets []entry
}

func newLayer(size int) *layer {
	if size < 1 {
		size = 1
	}
	return &layer{buckets: make([]entry, size)}
}

func (l *layer) index(h uint64) int {
	return int(h % uint64(len(l.buckets)))
}

// Table is the multi-layer refhash lookup structure for one reference
// genome.
type Table struct {
	layers []*layer
	rng    uint64 // xorshift state for the eviction fallback
}

// NewTable creates a table sized for an expected genome of length
// genomeLen bases: the first (largest) layer holds roughly one bucket
// per kmerCoverage bases, and each subsequent layer is half the size
// of the one before it.
func NewTable(genomeLen uint64, kmerCoverage int) *Table {
	if kmerCoverage < 1 {
		kmerCoverage = 4
	}
	base := int(genomeLen)/kmerCoverage + 1
	t := &Table{rng: 0x9e3779b97f4a7c15}
	size := base
	for i := 0; i < NumLayers; i++ {
		t.layers = append(t.layers, newLayer(size))
		size = size/2 + 1
	}
	return t
}

// PackKmer 2-bit packs a KmerLen-byte ACGT k-mer into a uint32 key.
// Returns ok=false if the k-mer contains a non-ACGT base (refhash
// never indexes ambiguous k-mers, spec.md §4.6).
func PackKmer(kmer []byte) (uint32, bool) {
	if len(kmer) != KmerLen {
		return 0, false
	}
	var v uint32
	for _, b := range kmer {
		code, ok := baseCode(b)
		if !ok {
			return 0, false
		}
		v = v<<2 | uint32(code)
	}
	return v, true
}

func baseCode(b byte) (byte, bool) {
	switch b {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	default:
		return 0, false
	}
}

func (t *Table) hash(key uint32) uint64 {
	var buf [4]byte
	buf[0] = byte(key)
	buf[1] = byte(key >> 8)
	buf[2] = byte(key >> 16)
	buf[3] = byte(key >> 24)
	sum := highwayhash.Sum(buf[:], hashSeed[:])
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(sum[i]) << (8 * uint(i))
	}
	return v
}

// Insert records that key's gpos is gpos. It probes each layer in
// turn for an empty or matching bucket; if every layer is full for
// this key's hashed slot, it evicts a bounded random fraction of the
// deepest layer's bucket rather than growing the table (see
// EvictionFraction).
func (t *Table) Insert(key uint32, gpos uint64) {
	h := t.hash(key)
	for _, l := range t.layers {
		idx := l.index(h)
		if !l.buckets[idx].occupied {
			l.buckets[idx] = entry{occupied: true, key: key, gpos: gpos}
			return
		}
		if l.buckets[idx].key == key {
			l.buckets[idx].gpos = gpos
			return
		}
	}
	t.evictAndInsert(h, key, gpos)
}

// evictAndInsert implements the 25% random-overwrite fallback: it
// decides, via a cheap xorshift PRNG seeded from the table's own
// state, whether this insertion should win the slot it collided on,
// so that roughly EvictionFraction of collisions overwrite the
// incumbent rather than being dropped outright.
func (t *Table) evictAndInsert(h uint64, key uint32, gpos uint64) {
	last := t.layers[len(t.layers)-1]
	idx := last.index(h)
	if t.nextRand()%100 < uint64(EvictionFraction*100) {
		last.buckets[idx] = entry{occupied: true, key: key, gpos: gpos}
	}
}

func (t *Table) nextRand() uint64 {
	x := t.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	t.rng = x
	return x
}

// Lookup returns the gpos recorded for key, if any layer has it.
func (t *Table) Lookup(key uint32) (gpos uint64, ok bool) {
	h := t.hash(key)
	for _, l := range t.layers {
		idx := l.index(h)
		if l.buckets[idx].occupied && l.buckets[idx].key == key {
			return l.buckets[idx].gpos, true
		}
	}
	return 0, false
}

// NumLayersInUse reports how many layers this table has, for tests
// and diagnostics.
func (t *Table) NumLayersInUse() int { return len(t.layers) }
