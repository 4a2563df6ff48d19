package section

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size, in bytes, of the generic section
// header (spec.md §6.2). Per-type extensions add fixed fields after it.
const HeaderSize = 28

// Header is the generic section header common to every section
// (spec.md §3.1, §6.2). All multi-byte integers here are big-endian on
// disk, matching original_source/sections.h's stated rationale
// (development happened on a little-endian CPU, so big-endian headers
// surface endianness bugs quickly) — data inside `local` streams
// remains little-endian (spec.md §6.1).
type Header struct {
	Magic               uint32
	BodyAdler32         uint32
	DataEncryptedLen    uint32
	DataCompressedLen   uint32
	DataUncompressedLen uint32
	VBlockI             uint32
	SectionType         Type
	Codec               CodecID
	SubCodec            CodecID
	Flags               Flags
}

// Marshal encodes h into the fixed 28-byte big-endian wire layout.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint32(buf[4:8], h.BodyAdler32)
	binary.BigEndian.PutUint32(buf[8:12], h.DataEncryptedLen)
	binary.BigEndian.PutUint32(buf[12:16], h.DataCompressedLen)
	binary.BigEndian.PutUint32(buf[16:20], h.DataUncompressedLen)
	binary.BigEndian.PutUint32(buf[20:24], h.VBlockI)
	buf[24] = byte(h.SectionType)
	buf[25] = byte(h.Codec)
	buf[26] = byte(h.SubCodec)
	buf[27] = byte(h.Flags)
	return buf
}

// UnmarshalHeader decodes the fixed 28-byte header at the start of buf.
func UnmarshalHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("section: short header (%d bytes)", len(buf))
	}
	h.Magic = binary.BigEndian.Uint32(buf[0:4])
	if h.Magic != Magic {
		return h, fmt.Errorf("section: bad magic %#x, expected %#x", h.Magic, Magic)
	}
	h.BodyAdler32 = binary.BigEndian.Uint32(buf[4:8])
	h.DataEncryptedLen = binary.BigEndian.Uint32(buf[8:12])
	h.DataCompressedLen = binary.BigEndian.Uint32(buf[12:16])
	h.DataUncompressedLen = binary.BigEndian.Uint32(buf[16:20])
	h.VBlockI = binary.BigEndian.Uint32(buf[20:24])
	h.SectionType = Type(buf[24])
	h.Codec = CodecID(buf[25])
	h.SubCodec = CodecID(buf[26])
	h.Flags = Flags(buf[27])
	if !h.SectionType.Valid() {
		return h, fmt.Errorf("section: invalid section type %d", buf[24])
	}
	return h, nil
}

// CompressedOffset is the number of bytes from the start of the header
// to the start of the (possibly encrypted) body: the header size plus
// any encryption padding inserted before the body (spec.md §4.1).
func (h Header) CompressedOffset(encryptionPad int) uint32 {
	return uint32(HeaderSize + encryptionPad)
}
