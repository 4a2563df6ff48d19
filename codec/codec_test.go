package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divonlan/genozip-go/section"
)

func roundTrip(t *testing.T, id section.CodecID, data []byte) {
	t.Helper()
	c, err := Get(id)
	require.NoError(t, err)
	compressed, ok := c.Compress(data)
	if !ok {
		t.Skipf("%v declined to compress this input", id)
	}
	decoded, err := c.Uncompress(compressed, len(data))
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestNoneRoundTrip(t *testing.T) {
	roundTrip(t, section.CodecNone, []byte("CHROM\tPOS\tID\tREF\tALT"))
}

func TestFlateRoundTrip(t *testing.T) {
	roundTrip(t, section.CodecFlate, []byte(strings.Repeat("chr1\t", 1000)))
}

func TestZstdRoundTrip(t *testing.T) {
	roundTrip(t, section.CodecZstd, []byte(strings.Repeat("chr1\t", 1000)))
}

func TestSnappyRoundTrip(t *testing.T) {
	roundTrip(t, section.CodecSnappy, []byte(strings.Repeat("PASS\t", 500)))
}

func TestACGTPassthrough(t *testing.T) {
	data := []byte{0x1b, 0x4e, 0x00, 0xff}
	roundTrip(t, section.CodecACGT, data)
}

func TestBSCLZPRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("AGCTAGCTAGCTAGCTACGGGT", 200))
	roundTrip(t, section.CodecBSCLZP, data)
}

func TestBSCLZPTooSmallDeclines(t *testing.T) {
	c, err := Get(section.CodecBSCLZP)
	require.NoError(t, err)
	_, ok := c.Compress([]byte("hi"))
	require.False(t, ok)
}

func TestRANSRoundTrip(t *testing.T) {
	roundTrip(t, section.CodecRANS, []byte(strings.Repeat("AAAACCCGGT", 400)))
}

func TestSelectBestPicksSmallest(t *testing.T) {
	data := []byte(strings.Repeat("chr1\t", 2000))
	id, out, err := SelectBest(data, []section.CodecID{section.CodecNone, section.CodecFlate, section.CodecZstd})
	require.NoError(t, err)
	require.NotEqual(t, section.CodecNone, id)
	require.Less(t, len(out), len(data))
}
