package zip

import (
	"hash/adler32"

	"github.com/divonlan/genozip-go/codec"
	"github.com/divonlan/genozip-go/crypto"
	"github.com/divonlan/genozip-go/gzpb"
	"github.com/divonlan/genozip-go/section"
	"github.com/divonlan/genozip-go/zcontext"
)

// textCandidates is the codec shortlist tried for dictionary, b250 and
// ordinary local streams (spec.md §4.7 "min-compressed-size wins").
var textCandidates = []section.CodecID{section.CodecFlate, section.CodecZstd, section.CodecSnappy}

// acgtCandidates is tried for LTypeACGT local streams (reference bases).
var acgtCandidates = []section.CodecID{section.CodecACGT, section.CodecFlate}

func localCandidates(lt zcontext.LType) []section.CodecID {
	if lt == zcontext.LTypeACGT {
		return acgtCandidates
	}
	return textCandidates
}

// sectionWriter accumulates the whole output file's sections: the
// generic Writer for byte accumulation, the authoritative section
// list and random-access index built up as sections are appended, and
// the per-VB encryption counters spec.md §4.8 keys off of. It plays
// the role pamwriter.go's Writer plays for one PAM shard, generalized
// from one fixed BAM-record block layout to an arbitrary, growing set
// of per-context sections.
type sectionWriter struct {
	w        *section.Writer
	list     section.List
	ra       section.RandomAccessIndex
	password string
	secI     map[uint32]int
}

func newSectionWriter(password string) *sectionWriter {
	return &sectionWriter{w: section.NewWriter(0), password: password, secI: make(map[uint32]int)}
}

func (sw *sectionWriter) bytes() []byte { return sw.w.Bytes() }

// preparedSection is a fully compressed (and, if enabled, encrypted)
// section's wire bytes, built before it is known where in the file it
// will land — so a VB's total size can be computed before its
// SEC_VB_HEADER (the first section physically written for that VB) is
// emitted (spec.md §4.1 "the writer ... tracks ZDataBytes").
type preparedSection struct {
	headerBytes []byte
	body        []byte
	entry       gzpb.SectionListEntry
}

func (ps preparedSection) size() int { return len(ps.headerBytes) + len(ps.body) }

// commit appends ps to the file and records its final offset in the
// section list.
func (sw *sectionWriter) commit(ps preparedSection) uint64 {
	at := sw.w.AppendRaw(ps.headerBytes, ps.body)
	ps.entry.Offset = at
	sw.list.Append(ps.entry)
	return at
}

func (sw *sectionWriter) encryptBody(vbI uint32, compressed []byte) (body []byte, encLen int, err error) {
	if sw.password == "" {
		return compressed, 0, nil
	}
	key := crypto.DeriveBodyKey(sw.password, vbI, sw.secI[vbI])
	enc, err := crypto.Encrypt(key, compressed)
	if err != nil {
		return nil, 0, err
	}
	return enc, len(enc), nil
}

func (sw *sectionWriter) genericHeader(vbI uint32, typ section.Type, flags section.Flags, codecID section.CodecID, compressed []byte, uncompressedLen int, encLen int) section.Header {
	return section.Header{
		Magic:               section.Magic,
		BodyAdler32:         adler32.Checksum(compressed),
		DataEncryptedLen:    uint32(encLen),
		DataCompressedLen:   uint32(len(compressed)),
		DataUncompressedLen: uint32(uncompressedLen),
		VBlockI:             vbI,
		SectionType:         typ,
		Codec:               codecID,
		SubCodec:            section.CodecNone,
		Flags:               flags,
	}
}

// preparePlain builds a section whose extension is just the generic
// header (RANDOM_ACCESS, ALIASES, RECON_PLAN, COUNTS, SECTION_LIST).
func (sw *sectionWriter) preparePlain(vbI uint32, typ section.Type, uncompressed []byte, candidates []section.CodecID, flags section.Flags) (preparedSection, error) {
	codecID, compressed, err := codec.SelectBest(uncompressed, candidates)
	if err != nil {
		return preparedSection{}, err
	}
	body, encLen, err := sw.encryptBody(vbI, compressed)
	if err != nil {
		return preparedSection{}, err
	}
	h := sw.genericHeader(vbI, typ, flags, codecID, compressed, len(uncompressed), encLen)
	sw.secI[vbI]++
	return preparedSection{
		headerBytes: h.Marshal(),
		body:        body,
		entry:       gzpb.SectionListEntry{Type: uint8(typ), VBlockI: vbI, Flags: uint8(flags)},
	}, nil
}

// prepareDict builds one context's newly merged dictionary fragment.
func (sw *sectionWriter) prepareDict(vbI uint32, dictID zcontext.DictID, numSnips int, words [][]byte, candidates []section.CodecID) (preparedSection, error) {
	buf := zcontext.MarshalWords(words)
	codecID, compressed, err := codec.SelectBest(buf, candidates)
	if err != nil {
		return preparedSection{}, err
	}
	body, encLen, err := sw.encryptBody(vbI, compressed)
	if err != nil {
		return preparedSection{}, err
	}
	h := sw.genericHeader(vbI, section.TypeDict, 0, codecID, compressed, len(buf), encLen)
	dh := section.DictHeader{H: h, NumSnips: uint32(numSnips), DictID: uint64(dictID)}
	sw.secI[vbI]++
	return preparedSection{
		headerBytes: dh.Marshal(),
		body:        body,
		entry:       gzpb.SectionListEntry{Type: uint8(section.TypeDict), VBlockI: vbI, DictID: dictID},
	}, nil
}

// prepareCtx builds a B250 or LOCAL section for one context.
func (sw *sectionWriter) prepareCtx(vbI uint32, typ section.Type, dictID zcontext.DictID, lType zcontext.LType, uncompressed []byte, candidates []section.CodecID, flags section.Flags) (preparedSection, error) {
	codecID, compressed, err := codec.SelectBest(uncompressed, candidates)
	if err != nil {
		return preparedSection{}, err
	}
	body, encLen, err := sw.encryptBody(vbI, compressed)
	if err != nil {
		return preparedSection{}, err
	}
	h := sw.genericHeader(vbI, typ, flags, codecID, compressed, len(uncompressed), encLen)
	ch := section.CtxHeader{H: h, LType: uint8(lType), DictID: uint64(dictID)}
	sw.secI[vbI]++
	return preparedSection{
		headerBytes: ch.Marshal(),
		body:        body,
		entry:       gzpb.SectionListEntry{Type: uint8(typ), VBlockI: vbI, DictID: dictID, Flags: uint8(flags)},
	}, nil
}

// appendTxtHeader writes one component's TXT_HEADER, tagged with compI
// so a multi-component file (spec.md §4.9) can tell its components'
// headers apart when loading.
func (sw *sectionWriter) appendTxtHeader(compI uint32, th section.TxtHeader, uncompressed []byte, candidates []section.CodecID) (uint64, error) {
	codecID, compressed, err := codec.SelectBest(uncompressed, candidates)
	if err != nil {
		return 0, err
	}
	body, encLen, err := sw.encryptBody(0, compressed)
	if err != nil {
		return 0, err
	}
	th.H = sw.genericHeader(0, section.TypeTxtHeader, 0, codecID, compressed, len(uncompressed), encLen)
	sw.secI[0]++
	at := sw.w.AppendRaw(th.Marshal(), body)
	sw.list.Append(gzpb.SectionListEntry{Offset: at, Type: uint8(section.TypeTxtHeader), CompI: compI})
	return at, nil
}

// reserveSlot burns one of vbI's encryption counter slots without
// encrypting anything, for a header-only section that still occupies a
// position in the file order PIZ replays (spec.md §4.8). finalizeVB
// calls it for the VB_HEADER before preparing any body section, since
// the header lands first on disk even though it is built last.
func (sw *sectionWriter) reserveSlot(vbI uint32) { sw.secI[vbI]++ }

// appendVBHeader writes vh as the first section physically written for
// its VB; callers must call this only after every other section that
// VB will contain has been prepared (not yet committed), so vh.ZDataBytes
// is already final, and must have reserved the header's encryption slot
// up front via reserveSlot. compI records which component this VB
// belongs to (spec.md §4.9).
func (sw *sectionWriter) appendVBHeader(compI uint32, vh section.VBHeader) uint64 {
	vh.H = sw.genericHeader(vh.H.VBlockI, section.TypeVBHeader, vh.H.Flags, section.CodecNone, nil, 0, 0)
	at := sw.w.AppendRaw(vh.Marshal(), nil)
	sw.list.Append(gzpb.SectionListEntry{Offset: at, Type: uint8(section.TypeVBHeader), CompI: compI, VBlockI: vh.H.VBlockI})
	return at
}

func (sw *sectionWriter) appendGenozipHeader(g section.GenozipHeader) uint64 {
	g.H = sw.genericHeader(0, section.TypeGenozipHeader, g.H.Flags, section.CodecNone, nil, 0, 0)
	at := sw.w.AppendRaw(g.Marshal(), nil)
	sw.list.Append(gzpb.SectionListEntry{Offset: at, Type: uint8(section.TypeGenozipHeader), Flags: uint8(g.H.Flags)})
	return at
}
