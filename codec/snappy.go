package codec

import (
	"github.com/golang/snappy"

	"github.com/divonlan/genozip-go/section"
)

// snappyCodec is used for b250 streams and other latency-sensitive
// sections where decompression speed matters more than ratio
// (spec.md §4.7).
type snappyCodec struct{}

func (snappyCodec) ID() section.CodecID { return section.CodecSnappy }

func (snappyCodec) Compress(data []byte) ([]byte, bool) {
	return snappy.Encode(nil, data), true
}

func (snappyCodec) Uncompress(data []byte, uncompressedLen int) ([]byte, error) {
	out := make([]byte, 0, uncompressedLen)
	return snappy.Decode(out, data)
}

func (snappyCodec) EstSize(n int) int { return snappy.MaxEncodedLen(n) }
