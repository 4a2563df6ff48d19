// Package gzpb holds the small wire-level value types shared by the
// section catalogue, the context system and the reconstruction plan:
// dict_id tags, section list entries, random access entries and recon
// plan items. Bulkier per-section bodies (dict/b250/local streams) are
// owned by the zcontext and section packages; this package only
// carries the catalogue-level bookkeeping types.
package gzpb

import (
	"fmt"

	farm "github.com/dgryski/go-farm"
)

// DictIDType distinguishes the four kinds of dict_id tag a context can
// carry, mirroring FIELD/ITEM/ATTR/... from dict_id_gen.h.
type DictIDType uint8

const (
	DictIDField DictIDType = iota
	DictIDItem
	DictIDAttr
	DictIDOther
)

func (t DictIDType) String() string {
	switch t {
	case DictIDField:
		return "FIELD"
	case DictIDItem:
		return "ITEM"
	case DictIDAttr:
		return "ATTR"
	default:
		return "OTHER"
	}
}

// DictID is the 64-bit tag that names a context. It is derived from a
// short ASCII name (<= 8 bytes, e.g. "CHROM", "POS", "INFO/AC") plus a
// type nibble, the same role dict_id plays in dict_id_gen.h. Two
// contexts with the same DictID are the same context.
type DictID uint64

// NewDictID hashes name+kind into a stable 64-bit tag. Names longer
// than 8 bytes are hashed in full; the type nibble is folded into the
// low 4 bits so that FIELD:"POS" and ATTR:"POS" never collide.
func NewDictID(name string, kind DictIDType) DictID {
	h := farm.Hash64([]byte(name))
	return DictID(h&^0xf | uint64(kind&0xf))
}

func (d DictID) Type() DictIDType { return DictIDType(d & 0xf) }

func (d DictID) String() string {
	return fmt.Sprintf("%016x/%s", uint64(d), d.Type())
}

// Alias declares dict_id Of as equivalent to To for reconstruction
// purposes. CTX aliases (SameContext=true) mean "these are the exact
// same context, just referenced under two names"; DICT aliases mean
// "distinct b250/local streams, shared dictionary".
type Alias struct {
	Of          DictID
	To          DictID
	SameContext bool
}
