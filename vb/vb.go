// Package vb implements the Variable Block: the unit of parallel work
// spec.md §3.3/§5 describes, carrying one VB's slice of original text
// through segmenting, merging, compression and writing (ZIP), or
// loading, reconstruction and writing (PIZ). It is the Go analogue of
// encoding/pam/fieldio's fieldWriteBuf: a reusable, pooled buffer that
// is reset and handed back rather than reallocated per VB.
package vb

import (
	"github.com/divonlan/genozip-go/digest"
	"github.com/divonlan/genozip-go/zcontext"
)

// VB holds one Variable Block's state. The same struct is reused for
// both ZIP (TxtData is the original bytes, Table accumulates VB-local
// contexts) and PIZ (TxtData is the reconstructed output, Table holds
// contexts loaded from disk).
type VB struct {
	VBlockI   uint32
	CompI     uint32
	FirstLine uint32
	NumLines  int

	// TxtData is this VB's slice of the original source text (ZIP) or
	// its reconstructed output (PIZ).
	TxtData []byte

	// Table is the VB-local context table during ZIP segging, or the
	// per-VB table of loaded contexts during PIZ reconstruction.
	Table *zcontext.Table

	// DigestSoFar is the rolling whole-file digest snapshot as of the
	// end of this VB (spec.md §D "VB header's md5_hash_so_far"). ZIP
	// stores it in the VB header's MD5HashSoFar; PIZ does not read it
	// back, so a --test failure is reported for the whole file only.
	DigestSoFar digest.Hash

	// ZData accumulates this VB's compressed section bytes as they are
	// produced, ready to be appended to the output file by the single
	// writer goroutine in VB order (spec.md §4.4 "writer... strictly
	// ascending vblock_i").
	ZData []byte
}

// Reset clears v for reuse by a new VB, the same shape
// fieldWriteBuf.reset gives a freshly-dequeued write buffer.
func (v *VB) Reset(vblockI, compI, firstLine uint32) {
	v.VBlockI = vblockI
	v.CompI = compI
	v.FirstLine = firstLine
	v.NumLines = 0
	v.TxtData = v.TxtData[:0]
	v.Table = zcontext.NewTable()
	v.DigestSoFar = digest.Hash{}
	v.ZData = v.ZData[:0]
}
