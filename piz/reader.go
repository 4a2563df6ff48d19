package piz

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"

	"github.com/divonlan/genozip-go/codec"
	"github.com/divonlan/genozip-go/crypto"
	"github.com/divonlan/genozip-go/gzpb"
	"github.com/divonlan/genozip-go/section"
)

// sectionListSecI returns the encryption counter slot the section
// list's own body is keyed at: vblock_i 0's slots are one TXT_HEADER
// per component, then RANDOM_ACCESS, RECON_PLAN and COUNTS, then the
// section list itself (spec.md §4.4, §4.8). The genozip header (which
// is never encrypted and carries NumComponents) is readable before the
// list, so Load can compute this slot before it has anything else to
// count slots from.
func sectionListSecI(numComponents uint32) int { return int(numComponents) + 3 }

// Loaded is a genozip file's parsed catalogue: everything piz needs to
// know before it can select and reconstruct VBs, without having
// decompressed any of their DICT/B250/LOCAL sections yet (spec.md
// §4.1, §4.4, §4.9). It plays the role encoding/pam/pamutil.ShardIndex
// plays for a PAM reader — a single upfront index load, then
// random-access reads of everything else — generalized from a
// directory of shard files to one section list inside a single file.
type Loaded struct {
	data []byte
	r    *bytes.Reader

	Header section.GenozipHeader

	// TxtHeaders/TxtHeaderData are keyed by component index (spec.md
	// §4.9): a single-component file has exactly one entry at key 0, a
	// paired file has one per mate.
	TxtHeaders    map[uint32]section.TxtHeader
	TxtHeaderData map[uint32][]byte

	List     *section.List
	RA       *section.RandomAccessIndex
	Plan     *section.Plan
	NumLines uint64

	password string
	mu       sync.Mutex
	secI     map[uint32]int
}

// Load reads the whole genozip file at srcPath into memory and parses
// its catalogue. The footer at the very end of the file locates the
// genozip header without a forward scan (spec.md §4.1); the section
// list immediately following the genozip header locates every other
// section. Reading the whole file into a bytes.Reader mirrors package
// zip's Zip, trading the ability to stream multi-gigabyte input for an
// io.ReaderAt with no seek-to-read-at adapter.
func Load(srcPath, password string) (*Loaded, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("piz: open %s: %w", srcPath, err)
	}
	defer in.Close(ctx) // nolint: errcheck

	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return nil, fmt.Errorf("piz: read %s: %w", srcPath, err)
	}
	if len(data) < section.FooterSize {
		return nil, fmt.Errorf("piz: %s: too short to be a genozip file", srcPath)
	}

	footer := section.UnmarshalFooter(data[len(data)-section.FooterSize:])
	if footer.Magic != section.Magic {
		return nil, fmt.Errorf("piz: %s: bad footer magic", srcPath)
	}

	l := &Loaded{
		data:          data,
		r:             bytes.NewReader(data),
		password:      password,
		secI:          make(map[uint32]int),
		TxtHeaders:    make(map[uint32]section.TxtHeader),
		TxtHeaderData: make(map[uint32][]byte),
	}

	ghOffset := int64(footer.GenozipHeaderOffset)
	h, extBuf, _, err := section.ReadSectionAt(l.r, ghOffset)
	if err != nil {
		return nil, fmt.Errorf("piz: %s: genozip header: %w", srcPath, err)
	}
	if h.SectionType != section.TypeGenozipHeader {
		return nil, fmt.Errorf("piz: %s: expected genozip header at %d, got %s", srcPath, ghOffset, h.SectionType)
	}
	l.Header, err = section.UnmarshalGenozipHeader(h, extBuf)
	if err != nil {
		return nil, fmt.Errorf("piz: %s: genozip header: %w", srcPath, err)
	}

	if l.Header.EncryptionType != 0 {
		if password == "" {
			return nil, fmt.Errorf("piz: %s: file is encrypted, password required", srcPath)
		}
		ok, err := crypto.CheckPassword(password, l.Header.PasswordTest)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("piz: %s: wrong password", srcPath)
		}
	}

	slOffset := ghOffset + int64(section.HeaderSize) + int64(len(extBuf))
	slH, _, slBody, err := section.ReadSectionAt(l.r, slOffset)
	if err != nil {
		return nil, fmt.Errorf("piz: %s: section list: %w", srcPath, err)
	}
	if slH.SectionType != section.TypeSectionList {
		return nil, fmt.Errorf("piz: %s: expected section list at %d, got %s", srcPath, slOffset, slH.SectionType)
	}
	slBody, err = l.decompressBody(slH, slBody, sectionListSecI(l.Header.NumComponents))
	if err != nil {
		return nil, fmt.Errorf("piz: %s: section list: %w", srcPath, err)
	}
	l.List, err = section.UnmarshalList(slBody)
	if err != nil {
		return nil, fmt.Errorf("piz: %s: section list: %w", srcPath, err)
	}

	for _, e := range l.List.ByType(section.TypeTxtHeader) {
		h, extBuf, body, err := section.ReadSectionAt(l.r, int64(e.Offset))
		if err != nil {
			return nil, fmt.Errorf("piz: %s: txt header: %w", srcPath, err)
		}
		data, err := l.decompressBody(h, body, l.nextSecI(e.VBlockI))
		if err != nil {
			return nil, fmt.Errorf("piz: %s: txt header: %w", srcPath, err)
		}
		th, err := section.UnmarshalTxtHeader(h, extBuf)
		if err != nil {
			return nil, fmt.Errorf("piz: %s: txt header: %w", srcPath, err)
		}
		l.TxtHeaderData[e.CompI] = data
		l.TxtHeaders[e.CompI] = th
	}

	l.RA = &section.RandomAccessIndex{}
	for _, e := range l.List.ByType(section.TypeRandomAccess) {
		body, err := l.readPlainSection(e)
		if err != nil {
			return nil, fmt.Errorf("piz: %s: random access: %w", srcPath, err)
		}
		l.RA, err = section.UnmarshalRandomAccessIndex(body)
		if err != nil {
			return nil, fmt.Errorf("piz: %s: random access: %w", srcPath, err)
		}
	}

	l.Plan = &section.Plan{}
	for _, e := range l.List.ByType(section.TypeReconPlan) {
		body, err := l.readPlainSection(e)
		if err != nil {
			return nil, fmt.Errorf("piz: %s: recon plan: %w", srcPath, err)
		}
		l.Plan, err = section.UnmarshalPlan(body)
		if err != nil {
			return nil, fmt.Errorf("piz: %s: recon plan: %w", srcPath, err)
		}
	}

	for _, e := range l.List.ByType(section.TypeCounts) {
		body, err := l.readPlainSection(e)
		if err != nil {
			return nil, fmt.Errorf("piz: %s: counts: %w", srcPath, err)
		}
		if len(body) >= 8 {
			l.NumLines = binary.BigEndian.Uint64(body)
		}
	}

	return l, nil
}

// nextSecI returns vbI's next encryption counter slot and advances it,
// mirroring sectionWriter's secI bookkeeping (spec.md §4.8). Safe for
// concurrent use across VBs loaded in parallel.
func (l *Loaded) nextSecI(vbI uint32) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.secI[vbI]
	l.secI[vbI]++
	return i
}

// decompressBody decrypts (if the file is encrypted) and decompresses
// one section's still-raw body.
func (l *Loaded) decompressBody(h section.Header, body []byte, sectionI int) ([]byte, error) {
	if l.Header.EncryptionType != 0 && h.DataEncryptedLen > 0 {
		key := crypto.DeriveBodyKey(l.password, h.VBlockI, sectionI)
		pt, err := crypto.Decrypt(key, body)
		if err != nil {
			return nil, err
		}
		body = pt[:h.DataCompressedLen]
	}
	cd, err := codec.Get(h.Codec)
	if err != nil {
		return nil, err
	}
	return cd.Uncompress(body, int(h.DataUncompressedLen))
}

// readPlainSection reads, decrypts and decompresses the section at e's
// recorded offset, consuming e's VBlockI's next encryption slot.
func (l *Loaded) readPlainSection(e gzpb.SectionListEntry) ([]byte, error) {
	h, _, body, err := section.ReadSectionAt(l.r, int64(e.Offset))
	if err != nil {
		return nil, err
	}
	return l.decompressBody(h, body, l.nextSecI(e.VBlockI))
}
