// Package datatype implements the per-format segmenter plugin
// registry of spec.md §9 "Inheritance / per-format segmenters": the
// core container/context/ZIP/PIZ engine knows nothing about any
// concrete text format, and instead calls out to a registered Plugin
// for segmenting and reconstruction. It plays the same role
// encoding/bam/fieldtype.go's FieldType enum + ParseFieldType registry
// plays for BAM field kinds, generalized from a fixed enum to an
// open, name-keyed registry so new formats can be added without
// touching the core.
package datatype

import (
	"fmt"
	"sort"

	"github.com/divonlan/genozip-go/container"
	"github.com/divonlan/genozip-go/zcontext"
)

// RandomAccessInfo is what a plugin reports about the genomic span a
// VB covers, for the random-access index (spec.md §3.1). Plugin's
// RandomAccess returns ok=false for data types with no positional
// concept (e.g. the generic
// line-oriented type). Chrom is the chromosome's text, not a word
// index: a VB-local plugin cannot know the merged global index, so the
// ZIP writer resolves Chrom against the global ChromDictID dictionary
// after the merge step.
type RandomAccessInfo struct {
	Chrom  []byte
	MinPos uint32
	MaxPos uint32
}

// Plugin is the per-format segmenter contract. It deliberately stays
// far smaller than a real VCF/SAM segmenter (an explicit collaborator
// surface per spec.md §1): just enough for the core pipelines to
// drive segmenting and reconstruction through the container/context
// engine without hardcoding any file format.
type Plugin interface {
	Name() string
	DataType() uint16

	// HeaderLen returns how many leading bytes of the full input are
	// this component's header block (e.g. SAM's leading "@..." lines);
	// 0 if the data type has no separate header.
	HeaderLen(data []byte) int

	// SegTxtHeader returns the bytes to store verbatim in the
	// TXT_HEADER section for this component's header block.
	SegTxtHeader(header []byte) ([]byte, error)

	// Unconsumed returns how many trailing bytes of chunk are an
	// incomplete record that must carry over into the next VB (spec.md
	// §2 reader "respecting line boundaries").
	Unconsumed(chunk []byte) int

	// SegVB segments one VB's text into table, returning how many
	// logical records it produced.
	SegVB(table *zcontext.Table, txtData []byte) (numLines int, err error)

	// Toplevel returns the root container template used to reconstruct
	// one VB's records (spec.md §4.3); its RepeatsConst is overwritten
	// per VB by the caller with that VB's NumLines.
	Toplevel() *container.Container

	// Specials returns the SNIP_SPECIAL callback registry this data
	// type defines (spec.md §4.2 SNIP_SPECIAL), or nil if unused.
	Specials() map[byte]container.SpecialFunc

	// BuddyDictID names the context (if any) this data type records
	// per-line buddy deltas into (spec.md §4.5); zero if unused.
	BuddyDictID() zcontext.DictID

	// ChromDictID names the context whose dictionary the random-access
	// index's ChromWordIndex values resolve against (spec.md §3.1,
	// §6.3 --regions); zero for data types with no positional concept.
	ChromDictID() zcontext.DictID

	// RandomAccess extracts this VB's genomic span from its just-
	// segged table, or ok=false if the data type has no positional
	// concept (spec.md §3.1).
	RandomAccess(table *zcontext.Table) (info RandomAccessInfo, ok bool)
}

var registry = map[string]Plugin{}

// Register adds p to the registry under p.Name(). Plugins register
// themselves from an init() function, the same pattern codec's
// registry uses.
func Register(p Plugin) {
	registry[p.Name()] = p
}

// Get returns the registered plugin named name.
func Get(name string) (Plugin, bool) {
	p, ok := registry[name]
	return p, ok
}

// MustGet is Get, panicking on an unknown name; for call sites (tests,
// CLI flag defaults) that have already validated the name.
func MustGet(name string) Plugin {
	p, ok := Get(name)
	if !ok {
		panic(fmt.Sprintf("datatype: unknown data type %q", name))
	}
	return p
}

// ByDataType returns the registered plugin whose DataType() equals id,
// the reverse lookup piz needs: the on-disk genozip header only stores
// the numeric DataType tag (spec.md §6.2), not the plugin's name.
func ByDataType(id uint16) (Plugin, bool) {
	for _, p := range registry {
		if p.DataType() == id {
			return p, true
		}
	}
	return nil, false
}

// Names returns every registered plugin name, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
