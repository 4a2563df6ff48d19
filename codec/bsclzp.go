package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/divonlan/genozip-go/section"
)

// bscLZPCodec is a from-scratch LZP (Lempel-Ziv Prediction) front end
// modeled on original_source/codec_bsc.c's BWT+LZP+entropy pipeline,
// used here without the BWT/entropy back end: a hash table keyed on
// the last lzpOrder bytes predicts where an identical context last
// occurred, and a matching run there is replaced by its length. It
// suits genozip's DICT/local streams, which are dominated by runs of
// near-identical short strings (repeated snips, sorted positions),
// the same class of redundancy LZP targets.
type bscLZPCodec struct{}

func (bscLZPCodec) ID() section.CodecID { return section.CodecBSCLZP }

const (
	lzpOrder    = 4  // bytes of context hashed per position
	lzpMinMatch = 8  // shortest run worth replacing with a back-reference
	lzpHashBits = 16 // hash table size = 1 << lzpHashBits
)

func lzpHash(b []byte) uint32 {
	var h uint32 = 2166136261
	for _, c := range b {
		h = (h ^ uint32(c)) * 16777619
	}
	return h & (1<<lzpHashBits - 1)
}

// Compress emits a stream of (flag, payload) records: flag=0 is
// followed by one literal byte; flag=1 is followed by a varint match
// length, meaning "copy that many bytes from the position the hash
// table predicted".
func (bscLZPCodec) Compress(data []byte) ([]byte, bool) {
	if len(data) < lzpOrder+lzpMinMatch {
		return nil, false // too small to benefit; let NONE win the adaptive pick
	}
	table := make([]int32, 1<<lzpHashBits)
	for i := range table {
		table[i] = -1
	}
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		if i < lzpOrder {
			out = append(out, 0, data[i])
			i++
			continue
		}
		h := lzpHash(data[i-lzpOrder : i])
		pred := table[h]
		table[h] = int32(i)
		if pred < 0 {
			out = append(out, 0, data[i])
			i++
			continue
		}
		matchLen := 0
		for i+matchLen < len(data) && int(pred)+matchLen < i && data[int(pred)+matchLen] == data[i+matchLen] {
			matchLen++
		}
		if matchLen < lzpMinMatch {
			out = append(out, 0, data[i])
			i++
			continue
		}
		out = append(out, 1)
		out = appendUvarint(out, uint64(matchLen))
		i += matchLen
	}
	return out, true
}

func (bscLZPCodec) Uncompress(data []byte, uncompressedLen int) ([]byte, error) {
	table := make([]int32, 1<<lzpHashBits)
	for i := range table {
		table[i] = -1
	}
	out := make([]byte, 0, uncompressedLen)
	pos := 0
	for pos < len(data) {
		flag := data[pos]
		pos++
		n := len(out)
		if flag == 0 {
			if pos >= len(data) {
				return nil, fmt.Errorf("codec: truncated BSCLZP literal")
			}
			if n >= lzpOrder {
				h := lzpHash(out[n-lzpOrder : n])
				table[h] = int32(n)
			}
			out = append(out, data[pos])
			pos++
			continue
		}
		matchLen, adv := binary.Uvarint(data[pos:])
		if adv <= 0 {
			return nil, fmt.Errorf("codec: truncated BSCLZP match length")
		}
		pos += adv
		if n < lzpOrder {
			return nil, fmt.Errorf("codec: BSCLZP match before context established")
		}
		h := lzpHash(out[n-lzpOrder : n])
		pred := table[h]
		if pred < 0 {
			return nil, fmt.Errorf("codec: BSCLZP match with no predicted context")
		}
		table[h] = int32(n)
		for k := uint64(0); k < matchLen; k++ {
			out = append(out, out[int(pred)+int(k)])
		}
	}
	return out, nil
}

func (bscLZPCodec) EstSize(n int) int { return n + n/8 + 16 }

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
