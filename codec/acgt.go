package codec

import "github.com/divonlan/genozip-go/section"

// acgtCodec covers the ACGT slot (spec.md §4.7). The 2-bit packing
// itself happens upstream in zcontext.Local.PutACGT so that the
// exception stream (NONREF_X) stays aligned with base offsets as
// bases are segged one at a time; by the time a LOCAL section reaches
// this codec its bytes are already packed, so Compress/Uncompress are
// a passthrough and the codec id on the section header exists purely
// to tell a PIZ reader "this stream is 2-bit ACGT, not raw bytes" so
// it dispatches to Local.ACGTAt rather than treating it as opaque.
type acgtCodec struct{}

func (acgtCodec) ID() section.CodecID { return section.CodecACGT }

func (acgtCodec) Compress(data []byte) ([]byte, bool) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (acgtCodec) Uncompress(data []byte, uncompressedLen int) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (acgtCodec) EstSize(n int) int { return n }
