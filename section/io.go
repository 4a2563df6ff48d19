package section

import (
	"fmt"
	"io"
)

// This file implements the section-level read/write path of spec.md
// §4.1. It stops at the raw (still compressed/possibly encrypted)
// body: decompression and decryption are layered concerns owned by
// packages codec and crypto, which both import section but are never
// imported back, so this package stays the dependency leaf for the
// wire format the way original_source/sections.h is the leaf header
// the rest of genozip's C sources include.

// RawSection is a section header paired with its still-encoded body,
// exactly as it sits on disk.
type RawSection struct {
	Header Header
	Body   []byte
}

// bodyLen returns how many bytes follow the header on disk: the
// encrypted length if the section is encrypted (data_encrypted_len
// already includes any padding), otherwise the compressed length.
func (h Header) bodyLen() int {
	if h.DataEncryptedLen > 0 {
		return int(h.DataEncryptedLen)
	}
	return int(h.DataCompressedLen)
}

// ReadRawAt reads one section whose header starts at offset in r.
// EOF while reading the header itself is reported as io.EOF so a
// caller can distinguish "no more sections" from a truncated file
// (spec.md §4.1: "EOF is a legal outcome only for the terminator").
func ReadRawAt(r io.ReaderAt, offset int64) (RawSection, error) {
	hdrBuf := make([]byte, HeaderSize)
	n, err := r.ReadAt(hdrBuf, offset)
	if n == 0 && err != nil {
		return RawSection{}, io.EOF
	}
	if err != nil && err != io.EOF {
		return RawSection{}, fmt.Errorf("section: reading header at %d: %w", offset, err)
	}
	if n < HeaderSize {
		return RawSection{}, fmt.Errorf("section: truncated header at %d (%d/%d bytes)", offset, n, HeaderSize)
	}
	h, err := UnmarshalHeader(hdrBuf)
	if err != nil {
		return RawSection{}, fmt.Errorf("section: at offset %d: %w", offset, err)
	}
	body := make([]byte, h.bodyLen())
	if len(body) > 0 {
		bn, err := r.ReadAt(body, offset+int64(h.CompressedOffset(0)))
		if err != nil && err != io.EOF {
			return RawSection{}, fmt.Errorf("section: reading body at %d: %w", offset, err)
		}
		if bn < len(body) {
			return RawSection{}, fmt.Errorf("section: truncated body at %d (%d/%d bytes)", offset, bn, len(body))
		}
	}
	return RawSection{Header: h, Body: body}, nil
}

// ReadExpectedAt is ReadRawAt plus the type check spec.md §4.1 calls
// for: "verify the section-type matches expectation". A mismatch is
// always fatal, never a soft-fail, per §7.
func ReadExpectedAt(r io.ReaderAt, offset int64, want Type) (RawSection, error) {
	s, err := ReadRawAt(r, offset)
	if err != nil {
		return s, err
	}
	if s.Header.SectionType != want {
		return s, fmt.Errorf("section: expected %s at offset %d, got %s", want, offset, s.Header.SectionType)
	}
	return s, nil
}

// extTailLen returns how many bytes typ's extension header writes
// after the generic 28-byte header. Computed from a zero-valued
// instance's own Marshal() rather than duplicating each struct's
// fixed-width layout as a second, hand-maintained constant.
func extTailLen(typ Type) int {
	switch typ {
	case TypeGenozipHeader:
		return len(GenozipHeader{}.Marshal()) - HeaderSize
	case TypeTxtHeader:
		return len(TxtHeader{}.Marshal()) - HeaderSize
	case TypeVBHeader:
		return len(VBHeader{}.Marshal()) - HeaderSize
	case TypeDict:
		return len(DictHeader{}.Marshal()) - HeaderSize
	case TypeB250, TypeLocal:
		return len(CtxHeader{}.Marshal()) - HeaderSize
	case TypeReference, TypeRefIsSet:
		return len(ReferenceHeader{}.Marshal()) - HeaderSize
	default:
		return 0
	}
}

// ReadSectionAt reads one section's generic header, its type-specific
// extension tail (if any) and its still compressed/encrypted body,
// starting at offset. extBuf is ready to hand to the matching
// UnmarshalXxxHeader alongside h; it is empty for section types with
// no extension (RANDOM_ACCESS, RECON_PLAN, COUNTS, ALIASES,
// SECTION_LIST). This generalizes ReadRawAt, which only knows about
// the generic 28-byte header, to the sections PIZ needs to load
// (GENOZIP_HEADER, TXT_HEADER, VB_HEADER, DICT, B250, LOCAL) whose
// on-disk header carries fields beyond it (spec.md §4.1, §6.2).
func ReadSectionAt(r io.ReaderAt, offset int64) (h Header, extBuf, body []byte, err error) {
	hdrBuf := make([]byte, HeaderSize)
	n, rerr := r.ReadAt(hdrBuf, offset)
	if n == 0 && rerr != nil {
		return Header{}, nil, nil, io.EOF
	}
	if rerr != nil && rerr != io.EOF {
		return Header{}, nil, nil, fmt.Errorf("section: reading header at %d: %w", offset, rerr)
	}
	h, err = UnmarshalHeader(hdrBuf)
	if err != nil {
		return Header{}, nil, nil, fmt.Errorf("section: at offset %d: %w", offset, err)
	}
	tailLen := extTailLen(h.SectionType)
	if tailLen > 0 {
		extBuf = make([]byte, tailLen)
		if _, err = r.ReadAt(extBuf, offset+int64(HeaderSize)); err != nil && err != io.EOF {
			return h, nil, nil, fmt.Errorf("section: reading extension at %d: %w", offset, err)
		}
		err = nil
	}
	blen := h.bodyLen()
	if blen > 0 {
		body = make([]byte, blen)
		bodyOffset := offset + int64(HeaderSize+tailLen)
		if _, err = r.ReadAt(body, bodyOffset); err != nil && err != io.EOF {
			return h, extBuf, nil, fmt.Errorf("section: reading body at %d: %w", offset, err)
		}
		err = nil
	}
	return h, extBuf, body, nil
}

// Writer accumulates sections into a growable buffer in the order
// they are appended, the VB-local byte buffer spec.md §4.1's write
// path describes. It tracks the running byte offset so callers can
// build section-list / random-access entries as they go.
type Writer struct {
	buf    []byte
	offset uint64
}

// NewWriter creates a Writer whose first section will be recorded at
// baseOffset (the current length of whatever file it will eventually
// be appended to).
func NewWriter(baseOffset uint64) *Writer {
	return &Writer{offset: baseOffset}
}

// Offset returns the file offset the next appended section will land at.
func (w *Writer) Offset() uint64 { return w.offset }

// Append writes header (already populated with correct lengths) and
// body (already compressed/encrypted) to the buffer and advances the
// offset. It returns the offset the section was written at.
func (w *Writer) Append(h Header, body []byte) uint64 {
	at := w.offset
	w.buf = append(w.buf, h.Marshal()...)
	w.buf = append(w.buf, body...)
	w.offset += uint64(HeaderSize + len(body))
	return at
}

// AppendRaw writes an already-marshaled header (generic or extended,
// e.g. DictHeader.Marshal()/VBHeader.Marshal()) followed by body, for
// section kinds whose header carries fields beyond the generic 28
// bytes. headerBytes must already include the generic header prefix.
func (w *Writer) AppendRaw(headerBytes, body []byte) uint64 {
	at := w.offset
	w.buf = append(w.buf, headerBytes...)
	w.buf = append(w.buf, body...)
	w.offset += uint64(len(headerBytes) + len(body))
	return at
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset clears the buffer but keeps the current offset, so a VB
// writer can flush to the real output file and keep accumulating.
func (w *Writer) Reset() { w.buf = w.buf[:0] }
