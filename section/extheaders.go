package section

import "encoding/binary"

// Md5Hash is a raw 128-bit digest (spec.md §6.4).
type Md5Hash [16]byte

const (
	createdLen     = 72
	refFilenameLen = 255
	txtFilenameLen = 256
)

// GenozipHeader is the fixed-layout extension of SEC_GENOZIP_HEADER,
// written after the last VB and located through the footer (spec.md
// §3.1, §6.2).
// original_source/sections.h's SectionHeaderGenozipHeader is the
// byte-for-byte model; fields the core engine does not own (VCF
// ploidy/sample counts) are left to the datatype plugin and are not
// part of this struct.
type GenozipHeader struct {
	H                Header
	GenozipVersion   uint8
	EncryptionType   uint8
	DataType         uint16
	NumSamples       uint32
	UncompressedSize uint64
	NumItemsBound    uint64
	NumSections      uint32
	NumComponents    uint32
	MD5HashBound     Md5Hash
	PasswordTest     [16]byte
	Created          [createdLen]byte
	LicenseHash      Md5Hash
	RefFilename      [refFilenameLen]byte
	RefFileMD5       Md5Hash

	// DigestAlg names which of digest.AlgorithmMD5/AlgorithmAdler32 (or
	// AlgorithmNone) MD5HashBound was computed with (spec.md §6.4).
	// Appended after the original_source-modeled fields rather than
	// inserted among them, so the byte-exact prefix layout is
	// unchanged; original_source carries this as part of the flags
	// word instead, but a dedicated trailing byte is simpler to get
	// right in a from-scratch reimplementation and costs nothing since
	// nothing else reads past RefFileMD5 positionally.
	DigestAlg uint8
}

// Marshal encodes g (including its generic Header) to its on-disk form.
func (g GenozipHeader) Marshal() []byte {
	buf := g.H.Marshal()
	tail := make([]byte, 0, 1+1+2+4+8+8+4+4+16+16+createdLen+16+refFilenameLen+16)
	tail = append(tail, g.GenozipVersion, g.EncryptionType)
	tail = appendU16(tail, g.DataType)
	tail = appendU32(tail, g.NumSamples)
	tail = appendU64(tail, g.UncompressedSize)
	tail = appendU64(tail, g.NumItemsBound)
	tail = appendU32(tail, g.NumSections)
	tail = appendU32(tail, g.NumComponents)
	tail = append(tail, g.MD5HashBound[:]...)
	tail = append(tail, g.PasswordTest[:]...)
	tail = append(tail, g.Created[:]...)
	tail = append(tail, g.LicenseHash[:]...)
	tail = append(tail, g.RefFilename[:]...)
	tail = append(tail, g.RefFileMD5[:]...)
	tail = append(tail, g.DigestAlg)
	return append(buf, tail...)
}

// UnmarshalGenozipHeader decodes a GenozipHeader whose generic Header
// has already been validated by the caller via UnmarshalHeader.
func UnmarshalGenozipHeader(h Header, body []byte) (GenozipHeader, error) {
	g := GenozipHeader{H: h}
	r := cursor{buf: body}
	g.GenozipVersion = r.u8()
	g.EncryptionType = r.u8()
	g.DataType = r.u16()
	g.NumSamples = r.u32()
	g.UncompressedSize = r.u64()
	g.NumItemsBound = r.u64()
	g.NumSections = r.u32()
	g.NumComponents = r.u32()
	copy(g.MD5HashBound[:], r.bytes(16))
	copy(g.PasswordTest[:], r.bytes(16))
	copy(g.Created[:], r.bytes(createdLen))
	copy(g.LicenseHash[:], r.bytes(16))
	copy(g.RefFilename[:], r.bytes(refFilenameLen))
	copy(g.RefFileMD5[:], r.bytes(16))
	g.DigestAlg = r.u8()
	return g, r.err
}

// Footer mirrors SectionFooterGenozipHeader: it lives at the very end
// of the file so the genozip header can be located and read without a
// forward scan (spec.md §4.1).
type Footer struct {
	GenozipHeaderOffset uint64
	Magic               uint32
}

const FooterSize = 12

func (f Footer) Marshal() []byte {
	buf := make([]byte, FooterSize)
	binary.BigEndian.PutUint64(buf[0:8], f.GenozipHeaderOffset)
	binary.BigEndian.PutUint32(buf[8:12], f.Magic)
	return buf
}

func UnmarshalFooter(buf []byte) Footer {
	return Footer{
		GenozipHeaderOffset: binary.BigEndian.Uint64(buf[0:8]),
		Magic:               binary.BigEndian.Uint32(buf[8:12]),
	}
}

// TxtHeader is the extension of SEC_TXT_HEADER: metadata about one
// bound source-text component (spec.md §3.1).
type TxtHeader struct {
	H              Header
	TxtDataSize    uint64
	NumLines       uint64 // NumLinesUnknown if not yet known
	MaxLinesPerVB  uint32
	CompressionAlg uint8
	MD5HashSingle  Md5Hash
	TxtFilename    [txtFilenameLen]byte
}

// NumLinesUnknown marks a TxtHeader.NumLines not yet determined, the
// same sentinel original_source/sections.h uses.
const NumLinesUnknown uint64 = ^uint64(0)

func (t TxtHeader) Marshal() []byte {
	buf := t.H.Marshal()
	tail := make([]byte, 0, 8+8+4+1+16+txtFilenameLen)
	tail = appendU64(tail, t.TxtDataSize)
	tail = appendU64(tail, t.NumLines)
	tail = appendU32(tail, t.MaxLinesPerVB)
	tail = append(tail, t.CompressionAlg)
	tail = append(tail, t.MD5HashSingle[:]...)
	tail = append(tail, t.TxtFilename[:]...)
	return append(buf, tail...)
}

func UnmarshalTxtHeader(h Header, body []byte) (TxtHeader, error) {
	t := TxtHeader{H: h}
	r := cursor{buf: body}
	t.TxtDataSize = r.u64()
	t.NumLines = r.u64()
	t.MaxLinesPerVB = r.u32()
	t.CompressionAlg = r.u8()
	copy(t.MD5HashSingle[:], r.bytes(16))
	copy(t.TxtFilename[:], r.bytes(txtFilenameLen))
	return t, r.err
}

// VBHeader is the extension of SEC_VB_HEADER common to every data
// type (spec.md §3.1, §4.1). Data-type-specific fields (VCF ploidy,
// SAM flags) are carried by the datatype plugin as auxiliary bytes
// appended after this fixed part, not modeled here.
type VBHeader struct {
	H              Header
	FirstLine      uint32 // 0 marks the terminating VB of a component
	NumLines       uint32
	VBDataSize     uint32
	ZDataBytes     uint32
	LongestLineLen uint32
	MD5HashSoFar   Md5Hash
}

func (v VBHeader) Marshal() []byte {
	buf := v.H.Marshal()
	tail := make([]byte, 0, 4*5+16)
	tail = appendU32(tail, v.FirstLine)
	tail = appendU32(tail, v.NumLines)
	tail = appendU32(tail, v.VBDataSize)
	tail = appendU32(tail, v.ZDataBytes)
	tail = appendU32(tail, v.LongestLineLen)
	tail = append(tail, v.MD5HashSoFar[:]...)
	return append(buf, tail...)
}

func UnmarshalVBHeader(h Header, body []byte) (VBHeader, error) {
	v := VBHeader{H: h}
	r := cursor{buf: body}
	v.FirstLine = r.u32()
	v.NumLines = r.u32()
	v.VBDataSize = r.u32()
	v.ZDataBytes = r.u32()
	v.LongestLineLen = r.u32()
	copy(v.MD5HashSoFar[:], r.bytes(16))
	return v, r.err
}

// DictHeader is the extension of SEC_DICT.
type DictHeader struct {
	H        Header
	NumSnips uint32
	DictID   uint64
}

func (d DictHeader) Marshal() []byte {
	buf := d.H.Marshal()
	tail := make([]byte, 0, 12)
	tail = appendU32(tail, d.NumSnips)
	tail = appendU64(tail, d.DictID)
	return append(buf, tail...)
}

func UnmarshalDictHeader(h Header, body []byte) (DictHeader, error) {
	d := DictHeader{H: h}
	r := cursor{buf: body}
	d.NumSnips = r.u32()
	d.DictID = r.u64()
	return d, r.err
}

// CtxHeader is the extension of SEC_B250 and SEC_LOCAL: both carry the
// owning context's dict_id and its local-buffer element type.
type CtxHeader struct {
	H      Header
	LType  uint8 // local-buffer element type, one of LType*
	DictID uint64
}

func (c CtxHeader) Marshal() []byte {
	buf := c.H.Marshal()
	tail := make([]byte, 0, 1+3+8)
	tail = append(tail, c.LType, 0, 0, 0)
	tail = appendU64(tail, c.DictID)
	return append(buf, tail...)
}

func UnmarshalCtxHeader(h Header, body []byte) (CtxHeader, error) {
	c := CtxHeader{H: h}
	r := cursor{buf: body}
	c.LType = r.u8()
	r.bytes(3)
	c.DictID = r.u64()
	return c, r.err
}

// ReferenceHeader is the extension of SEC_REFERENCE / SEC_REF_IS_SET
// (spec.md §4.6): the genomic span this range covers.
type ReferenceHeader struct {
	H              Header
	FirstPos       uint64
	LastPos        uint64
	ChromWordIndex uint32
}

func (r ReferenceHeader) Marshal() []byte {
	buf := r.H.Marshal()
	tail := make([]byte, 0, 20)
	tail = appendU64(tail, r.FirstPos)
	tail = appendU64(tail, r.LastPos)
	tail = appendU32(tail, r.ChromWordIndex)
	return append(buf, tail...)
}

func UnmarshalReferenceHeader(h Header, body []byte) (ReferenceHeader, error) {
	rh := ReferenceHeader{H: h}
	c := cursor{buf: body}
	rh.FirstPos = c.u64()
	rh.LastPos = c.u64()
	rh.ChromWordIndex = c.u32()
	return rh, c.err
}

// cursor is a minimal big-endian reader with sticky error, the same
// shape as fieldio's byteBuffer reader.
type cursor struct {
	buf []byte
	err error
}

func (c *cursor) need(n int) []byte {
	if c.err != nil || len(c.buf) < n {
		if c.err == nil {
			c.err = errShort
		}
		return make([]byte, n)
	}
	b := c.buf[:n]
	c.buf = c.buf[n:]
	return b
}

func (c *cursor) u8() uint8          { return c.need(1)[0] }
func (c *cursor) u16() uint16        { return binary.BigEndian.Uint16(c.need(2)) }
func (c *cursor) u32() uint32        { return binary.BigEndian.Uint32(c.need(4)) }
func (c *cursor) u64() uint64        { return binary.BigEndian.Uint64(c.need(8)) }
func (c *cursor) bytes(n int) []byte { return c.need(n) }

var errShort = &shortBufferError{}

type shortBufferError struct{}

func (*shortBufferError) Error() string { return "section: short buffer" }

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
