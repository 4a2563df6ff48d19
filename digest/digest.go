// Package digest computes the whole-file integrity digests spec.md
// §6.4 specifies: MD5 (or, for speed, Adler32) over the original text
// in VB order on both ZIP and PIZ, plus an internal seahash-based
// QuickCheck, an order-independent sum over VBs that the writer
// accumulates alongside the digest. Grounded on
// cmd/bio-pamtool/checksum.go's use of a commutative hash.Hash64 to
// verify per-field sums cheaply.
package digest

import (
	"crypto/md5"
	"fmt"
	"hash"
	"hash/adler32"

	"github.com/blainsmith/seahash"
)

// Algorithm selects which whole-file digest is computed (spec.md §6.4).
type Algorithm uint8

const (
	AlgorithmNone Algorithm = iota
	AlgorithmMD5
	AlgorithmAdler32
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmMD5:
		return "md5"
	case AlgorithmAdler32:
		return "adler32"
	default:
		return "none"
	}
}

// Hash is a 16-byte digest value; Adler32 results are stored
// zero-padded in the low 4 bytes, matching the fixed-size Md5Hash
// field the section headers carry (spec.md §6.2, §6.4).
type Hash [16]byte

// Digest accumulates a whole-file digest across VBs in strictly
// ascending vblock_i order on both ZIP and PIZ (spec.md §5 "The
// whole-file digest is updated in VB order"); Update accepts VBs in
// any order and holds early arrivals back until their turn.
type Digest struct {
	alg      Algorithm
	md5      hash.Hash
	adler    hash.Hash32
	nextVB   uint32
	vbHashes map[uint32][]byte // VBs that arrived out of order, buffered until nextVB
}

// New creates a Digest using alg, ready to accept vblock_i starting at 1.
func New(alg Algorithm) *Digest {
	d := &Digest{alg: alg, nextVB: 1, vbHashes: make(map[uint32][]byte)}
	switch alg {
	case AlgorithmMD5:
		d.md5 = md5.New()
	case AlgorithmAdler32:
		d.adler = adler32.New()
	}
	return d
}

// Update feeds vbI's txt_data bytes into the running digest. Out-of-
// order arrivals (a faster worker finishing a later VB first) are
// buffered and drained as soon as the VBs preceding them arrive,
// preserving the VB-order guarantee without forcing the caller to
// serialize VB completion.
func (d *Digest) Update(vbI uint32, data []byte) error {
	if d.alg == AlgorithmNone {
		return nil
	}
	if vbI < d.nextVB {
		return fmt.Errorf("digest: vblock_i %d already consumed (next=%d)", vbI, d.nextVB)
	}
	if vbI > d.nextVB {
		d.vbHashes[vbI] = append([]byte(nil), data...)
		return nil
	}
	d.write(data)
	d.nextVB++
	for {
		buffered, ok := d.vbHashes[d.nextVB]
		if !ok {
			break
		}
		delete(d.vbHashes, d.nextVB)
		d.write(buffered)
		d.nextVB++
	}
	return nil
}

func (d *Digest) write(data []byte) {
	switch d.alg {
	case AlgorithmMD5:
		d.md5.Write(data)
	case AlgorithmAdler32:
		d.adler.Write(data)
	}
}

// Finalize returns the completed digest, or an error if some VB never
// arrived (a gap in vblock_i), which is always a caller bug.
func (d *Digest) Finalize() (Hash, error) {
	if len(d.vbHashes) != 0 {
		return Hash{}, fmt.Errorf("digest: %d VB(s) never arrived, starting at %d", len(d.vbHashes), d.nextVB)
	}
	var out Hash
	switch d.alg {
	case AlgorithmMD5:
		copy(out[:], d.md5.Sum(nil))
	case AlgorithmAdler32:
		sum := d.adler.Sum32()
		out[0] = byte(sum >> 24)
		out[1] = byte(sum >> 16)
		out[2] = byte(sum >> 8)
		out[3] = byte(sum)
	}
	return out, nil
}

// QuickCheck is a seahash-based commutative self-check: it sums
// seahash(vblock_i || data) across all VBs regardless of arrival
// order, so the same set of VBs gives the same Sum64 in any order.
// The ZIP writer feeds it; nothing in this module compares the sum
// against a second computation.
type QuickCheck struct {
	sum uint64
}

// Add folds one VB's contribution into the running commutative sum.
func (q *QuickCheck) Add(vbI uint32, data []byte) {
	h := seahash.New()
	var vbBuf [4]byte
	vbBuf[0] = byte(vbI)
	vbBuf[1] = byte(vbI >> 8)
	vbBuf[2] = byte(vbI >> 16)
	vbBuf[3] = byte(vbI >> 24)
	h.Write(vbBuf[:])
	h.Write(data)
	q.sum += h.Sum64()
}

// Sum64 returns the accumulated commutative checksum.
func (q *QuickCheck) Sum64() uint64 { return q.sum }
