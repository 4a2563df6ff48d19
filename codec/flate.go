package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"

	"github.com/divonlan/genozip-go/section"
)

// flateCodec stands in for genozip's BZ2 slot: a general-purpose
// entropy coder used for text-like dict/local streams that aren't
// ACGT or otherwise specially structured (spec.md §4.7).
type flateCodec struct{}

func (flateCodec) ID() section.CodecID { return section.CodecFlate }

func (flateCodec) Compress(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, false
	}
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func (flateCodec) Uncompress(data []byte, uncompressedLen int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out := make([]byte, 0, uncompressedLen)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (flateCodec) EstSize(n int) int { return n/2 + 64 }

// zstdCodec stands in for genozip's LZMA slot: a higher-ratio, higher-
// memory coder used for large local streams (spec.md §4.7).
type zstdCodec struct{}

func (zstdCodec) ID() section.CodecID { return section.CodecZstd }

func (zstdCodec) Compress(data []byte) ([]byte, bool) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, false
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), true
}

func (zstdCodec) Uncompress(data []byte, uncompressedLen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, make([]byte, 0, uncompressedLen))
}

func (zstdCodec) EstSize(n int) int { return n/3 + 64 }
