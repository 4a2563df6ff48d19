package codec

import "github.com/divonlan/genozip-go/section"

// noneCodec stores data uncompressed, the fallback when no other
// codec's output is smaller than the input (spec.md §4.7).
type noneCodec struct{}

func (noneCodec) ID() section.CodecID { return section.CodecNone }

func (noneCodec) Compress(data []byte) ([]byte, bool) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (noneCodec) Uncompress(data []byte, uncompressedLen int) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (noneCodec) EstSize(n int) int { return n }
