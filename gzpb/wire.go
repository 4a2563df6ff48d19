package gzpb

import (
	"fmt"

	"github.com/gogo/protobuf/proto"
)

// This file hand-implements Marshal/Unmarshal for the catalogue types
// in the style gogofaster-generated code uses (explicit field-by-field
// varint encoding, no reflection), the same pattern
// encoding/pam/fieldio/writer.go uses for PAMBlockHeader and
// encoding/pam/pamutil/index.go uses for PAMShardIndex. We hand-write
// it here because there is no .proto source to run protoc against;
// proto.EncodeVarint/DecodeVarint gives us the same wire primitives
// gogo's generated code would call.

// SectionListEntry is one row of the authoritative section list (§3.1).
type SectionListEntry struct {
	Offset  uint64
	Type    uint8
	CompI   uint32
	VBlockI uint32
	DictID  DictID // zero if this section type has no owning context
	Flags   uint8
}

// RandomAccessEntry records the chromosome/position span a VB covers.
type RandomAccessEntry struct {
	VBlockI        uint32
	ChromWordIndex uint32
	MinPos         uint32
	MaxPos         uint32
}

// ReconPlanOp enumerates the writer's plan item kinds (§3.1, §4.4).
type ReconPlanOp uint8

const (
	PlanTxtHeader ReconPlanOp = iota
	PlanFullVB
	PlanRange
	PlanInterleave
	PlanDownsample
	PlanEndOfVB
	PlanRemoveMe
)

// ReconPlanItem is one directive in the writer's reconstruction plan.
type ReconPlanItem struct {
	Op        ReconPlanOp
	CompI     uint32
	VBlockI   uint32
	VBlockI2  uint32 // second VB, for PlanInterleave
	StartLine uint32 // for PlanRange
	NumLines  uint32 // for PlanRange / PlanDownsample
}

func putUvarint(buf []byte, v uint64) []byte {
	return append(buf, proto.EncodeVarint(v)...)
}

func getUvarint(buf []byte) (uint64, []byte, error) {
	v, n := proto.DecodeVarint(buf)
	if n == 0 {
		return 0, nil, fmt.Errorf("gzpb: truncated varint")
	}
	return v, buf[n:], nil
}

// Marshal appends the wire encoding of e to buf and returns the result.
func (e SectionListEntry) Marshal(buf []byte) []byte {
	buf = putUvarint(buf, e.Offset)
	buf = putUvarint(buf, uint64(e.Type))
	buf = putUvarint(buf, uint64(e.CompI))
	buf = putUvarint(buf, uint64(e.VBlockI))
	buf = putUvarint(buf, uint64(e.DictID))
	buf = putUvarint(buf, uint64(e.Flags))
	return buf
}

// UnmarshalSectionListEntry decodes one entry and returns the remainder of buf.
func UnmarshalSectionListEntry(buf []byte) (SectionListEntry, []byte, error) {
	var e SectionListEntry
	var v uint64
	var err error
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.Offset = v
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.Type = uint8(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.CompI = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.VBlockI = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.DictID = DictID(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.Flags = uint8(v)
	return e, buf, nil
}

func (e RandomAccessEntry) Marshal(buf []byte) []byte {
	buf = putUvarint(buf, uint64(e.VBlockI))
	buf = putUvarint(buf, uint64(e.ChromWordIndex))
	buf = putUvarint(buf, uint64(e.MinPos))
	buf = putUvarint(buf, uint64(e.MaxPos))
	return buf
}

func UnmarshalRandomAccessEntry(buf []byte) (RandomAccessEntry, []byte, error) {
	var e RandomAccessEntry
	var v uint64
	var err error
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.VBlockI = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.ChromWordIndex = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.MinPos = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return e, nil, err
	}
	e.MaxPos = uint32(v)
	return e, buf, nil
}

func (p ReconPlanItem) Marshal(buf []byte) []byte {
	buf = putUvarint(buf, uint64(p.Op))
	buf = putUvarint(buf, uint64(p.CompI))
	buf = putUvarint(buf, uint64(p.VBlockI))
	buf = putUvarint(buf, uint64(p.VBlockI2))
	buf = putUvarint(buf, uint64(p.StartLine))
	buf = putUvarint(buf, uint64(p.NumLines))
	return buf
}

func UnmarshalReconPlanItem(buf []byte) (ReconPlanItem, []byte, error) {
	var p ReconPlanItem
	var v uint64
	var err error
	if v, buf, err = getUvarint(buf); err != nil {
		return p, nil, err
	}
	p.Op = ReconPlanOp(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return p, nil, err
	}
	p.CompI = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return p, nil, err
	}
	p.VBlockI = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return p, nil, err
	}
	p.VBlockI2 = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return p, nil, err
	}
	p.StartLine = uint32(v)
	if v, buf, err = getUvarint(buf); err != nil {
		return p, nil, err
	}
	p.NumLines = uint32(v)
	return p, buf, nil
}
