package gzfile

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/divonlan/genozip-go/datatype/generic"
	_ "github.com/divonlan/genozip-go/datatype/samplugin"
	"github.com/divonlan/genozip-go/piz"
)

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, data, 0644))
	return path
}

func readBack(t *testing.T, path string) []byte {
	t.Helper()
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestRoundTripGenericMultiVB(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	text := []byte("a\nb\nc\nd\n")
	src := writeTemp(t, dir, "in.txt", text)
	dst := filepath.Join(dir, "in.genozip")
	out := filepath.Join(dir, "out.txt")

	// VBSize 4 forces one VB per pair of lines, so the merge step and
	// the cross-VB dictionary growth both get exercised.
	_, err = Zip(src, dst, ZipOptions{DataType: "generic", VBSize: 4, Test: true})
	require.NoError(t, err)

	stats, err := Piz(dst, out, PizOptions{})
	require.NoError(t, err)
	require.Equal(t, uint64(4), stats.NumLines)
	require.Equal(t, text, readBack(t, out))
}

func TestRoundTripEncrypted(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	text := []byte("chr1\t100\nchr1\t200\nchr2\t300\n")
	src := writeTemp(t, dir, "in.txt", text)
	dst := filepath.Join(dir, "in.genozip")
	out := filepath.Join(dir, "out.txt")

	_, err = Zip(src, dst, ZipOptions{DataType: "generic", VBSize: 16, Password: "secret"})
	require.NoError(t, err)

	_, err = Piz(dst, out, PizOptions{Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, text, readBack(t, out))

	_, err = Piz(dst, filepath.Join(dir, "out2.txt"), PizOptions{Password: "s3cret"})
	require.Error(t, err)

	_, err = Piz(dst, filepath.Join(dir, "out3.txt"), PizOptions{})
	require.Error(t, err)
}

func TestPairedInterleave(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	r1 := writeTemp(t, dir, "r1.txt", []byte("@r1/1 AA\n"))
	r2 := writeTemp(t, dir, "r2.txt", []byte("@r1/2 TT\n"))
	dst := filepath.Join(dir, "pair.genozip")

	_, err = ZipPaired([]string{r1, r2}, dst, ZipOptions{DataType: "generic"})
	require.NoError(t, err)

	inter := filepath.Join(dir, "inter.txt")
	_, err = Piz(dst, inter, PizOptions{Interleave: true})
	require.NoError(t, err)
	require.Equal(t, []byte("@r1/1 AA\n@r1/2 TT\n"), readBack(t, inter))

	seq := filepath.Join(dir, "seq.txt")
	_, err = Piz(dst, seq, PizOptions{})
	require.NoError(t, err)
	require.Equal(t, []byte("@r1/1 AA\n@r1/2 TT\n"), readBack(t, seq))
}

func TestInterleaveRejectedForUnpairedFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	src := writeTemp(t, dir, "in.txt", []byte("only one component\n"))
	dst := filepath.Join(dir, "in.genozip")
	_, err = Zip(src, dst, ZipOptions{DataType: "generic"})
	require.NoError(t, err)

	_, err = Piz(dst, filepath.Join(dir, "out.txt"), PizOptions{Interleave: true})
	require.Error(t, err)
}

func TestDownsampleShards(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	text := []byte("l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\nl9\nlA\n")
	src := writeTemp(t, dir, "in.txt", text)
	dst := filepath.Join(dir, "in.genozip")
	_, err = Zip(src, dst, ZipOptions{DataType: "generic"})
	require.NoError(t, err)

	shard0 := filepath.Join(dir, "s0.txt")
	_, err = Piz(dst, shard0, PizOptions{DownsampleK: 3, DownsampleShard: 0})
	require.NoError(t, err)
	require.Equal(t, []byte("l1\nl4\nl7\nlA\n"), readBack(t, shard0))

	shard1 := filepath.Join(dir, "s1.txt")
	_, err = Piz(dst, shard1, PizOptions{DownsampleK: 3, DownsampleShard: 1})
	require.NoError(t, err)
	require.Equal(t, []byte("l2\nl5\nl8\n"), readBack(t, shard1))
}

func TestOneVB(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	src := writeTemp(t, dir, "in.txt", []byte("a\nb\nc\nd\n"))
	dst := filepath.Join(dir, "in.genozip")
	_, err = Zip(src, dst, ZipOptions{DataType: "generic", VBSize: 4})
	require.NoError(t, err)

	out := filepath.Join(dir, "out.txt")
	_, err = Piz(dst, out, PizOptions{OneVB: 2})
	require.NoError(t, err)
	require.Equal(t, []byte("c\nd\n"), readBack(t, out))

	_, err = Piz(dst, filepath.Join(dir, "out2.txt"), PizOptions{OneVB: 9})
	require.Error(t, err)
}

func TestUnbindPaired(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	text1 := []byte("@r1/1 AA\n@r2/1 CC\n")
	text2 := []byte("@r1/2 TT\n@r2/2 GG\n")
	r1 := writeTemp(t, dir, "r1.txt", text1)
	r2 := writeTemp(t, dir, "r2.txt", text2)
	dst := filepath.Join(dir, "pair.genozip")
	_, err = ZipPaired([]string{r1, r2}, dst, ZipOptions{DataType: "generic"})
	require.NoError(t, err)

	out := filepath.Join(dir, "unbound")
	_, err = Piz(dst, out, PizOptions{Unbind: true})
	require.NoError(t, err)
	require.Equal(t, text1, readBack(t, out+".1"))
	require.Equal(t, text2, readBack(t, out+".2"))
}

func TestHeadTail(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	src := writeTemp(t, dir, "in.txt", []byte("l1\nl2\nl3\nl4\n"))
	dst := filepath.Join(dir, "in.genozip")
	_, err = Zip(src, dst, ZipOptions{DataType: "generic"})
	require.NoError(t, err)

	head := filepath.Join(dir, "head.txt")
	_, err = Piz(dst, head, PizOptions{Head: 2})
	require.NoError(t, err)
	require.Equal(t, []byte("l1\nl2\n"), readBack(t, head))

	tail := filepath.Join(dir, "tail.txt")
	_, err = Piz(dst, tail, PizOptions{Tail: 1})
	require.NoError(t, err)
	require.Equal(t, []byte("l4\n"), readBack(t, tail))
}

const samMate1 = "r1\t0\tchr1\t1\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\n"
const samMate2 = "r2\t0\tchr1\t5\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\n"
const samUnmapped = "r3\t4\t*\t0\t0\t*\t*\t0\t0\tAAAAAAAAAA\tIIIIIIIIII\n"

func TestSAMRoundTripWithReference(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	ref := writeTemp(t, dir, "ref.fa", []byte(">chr1\nACGTACGTACGTACGTACGT\n"))
	wrongRef := writeTemp(t, dir, "wrong.fa", []byte(">chr1\nTTTTTTTTTTTTTTTTTTTT\n"))

	text := []byte("@HD\tVN:1.6\n" + samMate1 + samMate2 + samUnmapped)
	src := writeTemp(t, dir, "in.sam", text)
	dst := filepath.Join(dir, "in.genozip")
	out := filepath.Join(dir, "out.sam")

	_, err = Zip(src, dst, ZipOptions{DataType: "sam", Reference: ref})
	require.NoError(t, err)

	_, err = Piz(dst, out, PizOptions{Reference: ref})
	require.NoError(t, err)
	require.Equal(t, text, readBack(t, out))

	_, err = Piz(dst, filepath.Join(dir, "out2.sam"), PizOptions{Reference: wrongRef})
	require.Error(t, err)
}

func TestSAMRegions(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	line1 := "r1\t0\tchr1\t100\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\n"
	line2 := "r2\t0\tchr2\t50\t60\t10M\t*\t0\t0\tTGCATGCATG\tIIIIIIIIII\n"
	src := writeTemp(t, dir, "in.sam", []byte(line1+line2))
	dst := filepath.Join(dir, "in.genozip")

	// VBSize 64 puts each ~50-byte alignment line in its own VB, so the
	// region filter has a VB to drop.
	_, err = Zip(src, dst, ZipOptions{DataType: "sam", VBSize: 64})
	require.NoError(t, err)

	out := filepath.Join(dir, "out.sam")
	_, err = Piz(dst, out, PizOptions{Regions: []piz.Region{{Chrom: "chr1", Start: 1, End: 1000}}})
	require.NoError(t, err)
	require.Equal(t, []byte(line1), readBack(t, out))
}

func TestListReportsMetadata(t *testing.T) {
	dir, err := ioutil.TempDir("", "gzfile-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir) // nolint: errcheck

	src := writeTemp(t, dir, "in.txt", []byte("x\ny\n"))
	dst := filepath.Join(dir, "in.genozip")
	_, err = Zip(src, dst, ZipOptions{DataType: "generic"})
	require.NoError(t, err)

	info, err := List(dst, "")
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.NumLines)
	require.Equal(t, 1, info.NumVBs)
}
