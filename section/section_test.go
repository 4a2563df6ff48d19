package section

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divonlan/genozip-go/gzpb"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Magic:               Magic,
		BodyAdler32:         0xdeadbeef,
		DataEncryptedLen:    0,
		DataCompressedLen:   128,
		DataUncompressedLen: 512,
		VBlockI:             7,
		SectionType:         TypeB250,
		Codec:               CodecFlate,
		SubCodec:            CodecNone,
		Flags:               FlagAllTheSame,
	}
	buf := h.Marshal()
	require.Len(t, buf, HeaderSize)

	got, err := UnmarshalHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestUnmarshalHeaderRejectsBadMagic(t *testing.T) {
	h := Header{Magic: 0x1234, SectionType: TypeDict}
	buf := h.Marshal()
	_, err := UnmarshalHeader(buf)
	require.Error(t, err)
}

func TestUnmarshalHeaderRejectsShortBuffer(t *testing.T) {
	_, err := UnmarshalHeader([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestTypeStringAndValid(t *testing.T) {
	require.Equal(t, "B250", TypeB250.String())
	require.True(t, TypeB250.Valid())
	require.False(t, Type(200).Valid())
}

func TestGenozipHeaderRoundTrip(t *testing.T) {
	g := GenozipHeader{
		H:              Header{Magic: Magic, SectionType: TypeGenozipHeader},
		GenozipVersion: 15,
		EncryptionType: 0,
		DataType:       3,
		NumSamples:     0,
		NumSections:    42,
		NumComponents:  1,
	}
	copy(g.RefFilename[:], "ref.genozip")
	buf := g.Marshal()

	h, err := UnmarshalHeader(buf[:HeaderSize])
	require.NoError(t, err)
	got, err := UnmarshalGenozipHeader(h, buf[HeaderSize:])
	require.NoError(t, err)
	require.Equal(t, g.GenozipVersion, got.GenozipVersion)
	require.Equal(t, g.NumSections, got.NumSections)
	require.True(t, bytes.HasPrefix(got.RefFilename[:], []byte("ref.genozip")))
}

func TestListByTypeAndFirstOfVB(t *testing.T) {
	var l List
	l.Append(gzpb.SectionListEntry{Offset: 0, Type: uint8(TypeTxtHeader), VBlockI: 0})
	l.Append(gzpb.SectionListEntry{Offset: 100, Type: uint8(TypeVBHeader), VBlockI: 1})
	l.Append(gzpb.SectionListEntry{Offset: 150, Type: uint8(TypeB250), VBlockI: 1})
	l.Append(gzpb.SectionListEntry{Offset: 300, Type: uint8(TypeVBHeader), VBlockI: 2})

	require.Equal(t, 2, len(l.ByType(TypeVBHeader)))
	require.Equal(t, 1, l.FirstOfVB(1))
	require.Equal(t, 3, l.FirstOfVB(2))
	require.Equal(t, -1, l.FirstOfVB(99))
}

func TestListMarshalRoundTrip(t *testing.T) {
	var l List
	l.Append(gzpb.SectionListEntry{Offset: 10, Type: 1, VBlockI: 1, DictID: 55})
	l.Append(gzpb.SectionListEntry{Offset: 20, Type: 2, VBlockI: 2, DictID: 77})

	buf := l.Marshal()
	got, err := UnmarshalList(buf)
	require.NoError(t, err)
	require.Equal(t, l.Entries(), got.Entries())
}

func TestRandomAccessOverlapping(t *testing.T) {
	var ra RandomAccessIndex
	ra.Append(gzpb.RandomAccessEntry{VBlockI: 1, ChromWordIndex: 0, MinPos: 100, MaxPos: 200})
	ra.Append(gzpb.RandomAccessEntry{VBlockI: 2, ChromWordIndex: 0, MinPos: 150, MaxPos: 400})
	ra.Append(gzpb.RandomAccessEntry{VBlockI: 3, ChromWordIndex: 1, MinPos: 1, MaxPos: 50})
	ra.Sort()

	got := ra.Overlapping(0, 180, 190)
	require.Len(t, got, 2)
}

type fakeReaderAt struct{ data []byte }

func (f fakeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, f.data[off:])
	return n, nil
}

func TestReadRawAtRoundTrip(t *testing.T) {
	h := Header{
		Magic:               Magic,
		DataCompressedLen:   5,
		DataUncompressedLen: 5,
		SectionType:         TypeLocal,
		Codec:               CodecNone,
	}
	body := []byte("hello")
	var file []byte
	file = append(file, h.Marshal()...)
	file = append(file, body...)

	got, err := ReadRawAt(fakeReaderAt{file}, 0)
	require.NoError(t, err)
	require.Equal(t, body, got.Body)
	require.Equal(t, TypeLocal, got.Header.SectionType)
}

func TestReadExpectedAtMismatch(t *testing.T) {
	h := Header{Magic: Magic, SectionType: TypeLocal}
	file := h.Marshal()
	_, err := ReadExpectedAt(fakeReaderAt{file}, 0, TypeDict)
	require.Error(t, err)
}

func TestWriterAppendTracksOffset(t *testing.T) {
	w := NewWriter(1000)
	h := Header{Magic: Magic, SectionType: TypeB250, DataCompressedLen: 3}
	at := w.Append(h, []byte("abc"))
	require.Equal(t, uint64(1000), at)
	require.Equal(t, uint64(1000+HeaderSize+3), w.Offset())
}
