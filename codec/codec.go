// Package codec implements the compressor dispatch table of spec.md
// §4.7: NONE, FLATE/ZSTD (standing in for genozip's BZ2/LZMA slots),
// SNAPPY, ACGT (2-bit packing), BSCLZP (a from-scratch LZP-style
// front end modeled on original_source/codec_bsc.c's BWT+LZP+entropy
// pipeline) and a RANS placeholder. It is the Go analogue of
// encoding/bgzf/writer.go's pluggable block compressor and
// encoding/pam/pamwriter.go's `Transformers []string` chain,
// generalized from "one named transform per recordio block" to "one
// primary codec plus one chained sub_codec per section".
package codec

import (
	"fmt"

	"github.com/divonlan/genozip-go/section"
)

// Codec compresses and uncompresses one section body. soft_fail lets
// a caller probe several codecs during adaptive selection without
// treating a bad fit as fatal (spec.md §4.7).
type Codec interface {
	ID() section.CodecID
	Compress(uncompressed []byte) (compressed []byte, ok bool)
	Uncompress(compressed []byte, uncompressedLen int) ([]byte, error)
	// EstSize returns a cheap upper-bound estimate of the compressed
	// size for a buffer of length n, used to size output buffers
	// without a full compress pass.
	EstSize(n int) int
}

var registry = map[section.CodecID]Codec{}

func register(c Codec) { registry[c.ID()] = c }

// Get returns the codec registered for id, or an error if unknown.
func Get(id section.CodecID) (Codec, error) {
	c, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("codec: unknown codec id %d", id)
	}
	return c, nil
}

func init() {
	register(noneCodec{})
	register(flateCodec{})
	register(zstdCodec{})
	register(snappyCodec{})
	register(acgtCodec{})
	register(bscLZPCodec{})
	register(ransCodec{})
}

// SelectBest runs every codec in candidates against data and returns
// the id of whichever produces the smallest compressed output ("min-
// compressed-size wins", spec.md §4.7). candidates must be non-empty.
func SelectBest(data []byte, candidates []section.CodecID) (section.CodecID, []byte, error) {
	var bestID section.CodecID
	var bestOut []byte
	for i, id := range candidates {
		c, err := Get(id)
		if err != nil {
			return 0, nil, err
		}
		out, ok := c.Compress(data)
		if !ok {
			continue
		}
		if bestOut == nil || len(out) < len(bestOut) {
			bestID, bestOut = id, out
		}
	}
	if bestOut == nil && len(candidates) > 0 {
		// Every candidate soft-failed; fall back to NONE so the
		// section is still well-formed (spec.md §4.7 describes
		// soft_fail as a probe, not a license to drop the section).
		return section.CodecNone, data, nil
	}
	return bestID, bestOut, nil
}
