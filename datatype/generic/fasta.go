package genericdt

import (
	"bytes"

	"github.com/divonlan/genozip-go/container"
	"github.com/divonlan/genozip-go/datatype"
	"github.com/divonlan/genozip-go/gzpb"
	"github.com/divonlan/genozip-go/zcontext"
)

// FastaName is the registry name of the FASTA data type
// (SPEC_FULL.md §A, which lists the generic/FASTA/sam data types the
// CLI drives).
const FastaName = "fasta"

var (
	fastaDescID = gzpb.NewDictID("DESC", gzpb.DictIDField)
	fastaSeqID  = gzpb.NewDictID("SEQ", gzpb.DictIDField)
)

type fastaPlugin struct{}

func init() { datatype.Register(fastaPlugin{}) }

func (fastaPlugin) Name() string     { return FastaName }
func (fastaPlugin) DataType() uint16 { return 3 }

func (fastaPlugin) HeaderLen([]byte) int { return 0 }

func (fastaPlugin) SegTxtHeader(header []byte) ([]byte, error) { return header, nil }

// Unconsumed keeps a trailing, not-yet-terminated description line in
// the next VB so a '>' record is never split across VB boundaries
// mid-description; sequence lines may safely split at any newline
// since SEQ is just a blob continuation within the same record.
func (fastaPlugin) Unconsumed(chunk []byte) int {
	idx := bytes.LastIndexByte(chunk, '\n')
	if idx < 0 {
		return len(chunk)
	}
	return len(chunk) - idx - 1
}

// SegVB splits txtData into FASTA records: a '>' description line
// (stored verbatim including its own terminator) followed by every
// line up to (but not including) the next '>' or EOF, stored as one
// SEQ blob (also including terminators verbatim, so reconstruction is
// byte-exact without needing to track per-line wrap width).
func (fastaPlugin) SegVB(table *zcontext.Table, txtData []byte) (int, error) {
	desc := table.GetOrCreate(fastaDescID, "DESC", zcontext.LTypeNone)
	seq := table.GetOrCreate(fastaSeqID, "SEQ", zcontext.LTypeNone)

	n := 0
	i := 0
	for i < len(txtData) {
		if txtData[i] != '>' {
			// Malformed input (no leading '>'); treat the rest of the
			// VB as one orphan sequence blob under an empty DESC.
			desc.SegSnip(nil)
			seq.SegSnip(txtData[i:])
			n++
			break
		}
		descEnd := lineEnd(txtData, i)
		desc.SegSnip(txtData[i:descEnd])

		seqStart := descEnd
		seqEnd := seqStart
		for seqEnd < len(txtData) && txtData[seqEnd] != '>' {
			seqEnd = lineEnd(txtData, seqEnd)
		}
		seq.SegSnip(txtData[seqStart:seqEnd])
		n++
		i = seqEnd
	}
	return n, nil
}

// lineEnd returns the offset just past the newline terminating the
// line starting at i, or len(data) if that line runs to EOF.
func lineEnd(data []byte, i int) int {
	idx := bytes.IndexByte(data[i:], '\n')
	if idx < 0 {
		return len(data)
	}
	return i + idx + 1
}

func (fastaPlugin) Toplevel() *container.Container {
	return &container.Container{
		Items: []container.Item{
			{DictID: fastaDescID},
			{DictID: fastaSeqID},
		},
	}
}

func (fastaPlugin) Specials() map[byte]container.SpecialFunc { return nil }
func (fastaPlugin) BuddyDictID() zcontext.DictID             { return 0 }
func (fastaPlugin) ChromDictID() zcontext.DictID             { return 0 }

func (fastaPlugin) RandomAccess(*zcontext.Table) (datatype.RandomAccessInfo, bool) {
	return datatype.RandomAccessInfo{}, false
}
