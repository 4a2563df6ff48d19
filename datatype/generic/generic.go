// Package genericdt implements the built-in "generic" and "fasta"
// data types spec.md §9/SPEC_FULL.md §C.14 names: line-oriented
// segmenters that exercise the container/context engine end to end
// without pulling a real VCF/SAM segmenter into the core. Grounded in
// encoding/bam/fieldtype.go's registry-style FieldType pattern,
// generalized from "one BAM field kind" to "one whole data type".
package genericdt

import (
	"bytes"

	"github.com/divonlan/genozip-go/container"
	"github.com/divonlan/genozip-go/datatype"
	"github.com/divonlan/genozip-go/gzpb"
	"github.com/divonlan/genozip-go/zcontext"
)

// GenericName is the registry name of the plain line-oriented data type.
const GenericName = "generic"

var genericTextID = gzpb.NewDictID("TEXT", gzpb.DictIDField)

type genericPlugin struct{}

func init() { datatype.Register(genericPlugin{}) }

func (genericPlugin) Name() string     { return GenericName }
func (genericPlugin) DataType() uint16 { return 1 }

func (genericPlugin) HeaderLen([]byte) int { return 0 }

func (genericPlugin) SegTxtHeader(header []byte) ([]byte, error) { return header, nil }

// Unconsumed returns the number of trailing bytes after the last
// newline in chunk, the incomplete final line a VB boundary must not
// split (spec.md §2).
func (genericPlugin) Unconsumed(chunk []byte) int {
	idx := bytes.LastIndexByte(chunk, '\n')
	if idx < 0 {
		return len(chunk)
	}
	return len(chunk) - idx - 1
}

func (genericPlugin) SegVB(table *zcontext.Table, txtData []byte) (int, error) {
	ctx := table.GetOrCreate(genericTextID, "TEXT", zcontext.LTypeNone)
	n := 0
	start := 0
	for i := 0; i < len(txtData); i++ {
		if txtData[i] == '\n' {
			ctx.SegSnip(txtData[start : i+1])
			start = i + 1
			n++
		}
	}
	if start < len(txtData) {
		ctx.SegSnip(txtData[start:])
		n++
	}
	return n, nil
}

func (genericPlugin) Toplevel() *container.Container {
	return &container.Container{
		Items: []container.Item{{DictID: genericTextID}},
	}
}

func (genericPlugin) Specials() map[byte]container.SpecialFunc { return nil }
func (genericPlugin) BuddyDictID() zcontext.DictID             { return 0 }
func (genericPlugin) ChromDictID() zcontext.DictID             { return 0 }

func (genericPlugin) RandomAccess(*zcontext.Table) (datatype.RandomAccessInfo, bool) {
	return datatype.RandomAccessInfo{}, false
}
