package zcontext

import (
	"fmt"

	"github.com/divonlan/genozip-go/gzpb"
)

// DictID is an alias for gzpb.DictID, kept local to this package so
// the snip/context API reads as "zcontext.DictID" rather than forcing
// every caller to import gzpb just to name a context.
type DictID = gzpb.DictID

// Op is a snip control opcode (spec.md §4.2): the first byte of a
// snip, when it falls in the low control-character range, dispatches
// to one of these reconstruction behaviors instead of being emitted
// literally. Plain text snips never start with a byte in this range,
// since every segmenter strips control characters from field values
// before handing them to a context.
type Op byte

const (
	OpLookup      Op = 1 // draw the next value from this context's local
	OpContainer   Op = 2 // remainder of the snip is a serialized container
	OpSpecial     Op = 3 // dispatch to a per-datatype numbered callback
	OpOtherDelta  Op = 4 // value = other_ctx.last_value + delta
	OpCopyBuddy   Op = 5 // copy from a previous line's history slot
	OpDiff        Op = 6 // text diff against another ctx's last value
	OpPairLookup  Op = 7 // paired FASTQ: draw from the R1 peer context
	OpRedirection Op = 8 // reconstruct by delegating to another ctx entirely
)

func (o Op) String() string {
	switch o {
	case OpLookup:
		return "LOOKUP"
	case OpContainer:
		return "CONTAINER"
	case OpSpecial:
		return "SPECIAL"
	case OpOtherDelta:
		return "OTHER_DELTA"
	case OpCopyBuddy:
		return "COPY_BUDDY"
	case OpDiff:
		return "DIFF"
	case OpPairLookup:
		return "PAIR_LOOKUP"
	case OpRedirection:
		return "REDIRECTION"
	default:
		return fmt.Sprintf("Op(%d)", o)
	}
}

// IsOp reports whether snip begins with a control opcode rather than
// literal text.
func IsOp(snip []byte) (Op, bool) {
	if len(snip) == 0 {
		return 0, false
	}
	op := Op(snip[0])
	if op >= OpLookup && op <= OpRedirection {
		return op, true
	}
	return 0, false
}

// BuddyKind distinguishes the three buddy relationships spec.md §4.5
// describes.
type BuddyKind uint8

const (
	BuddyMate BuddyKind = iota
	BuddySaggy
	BuddyBoth
)

// MakeLookup returns the one-byte SNIP_LOOKUP snip.
func MakeLookup() []byte { return []byte{byte(OpLookup)} }

// MakeContainer wraps an already-serialized container as a snip.
func MakeContainer(containerBytes []byte) []byte {
	return append([]byte{byte(OpContainer)}, containerBytes...)
}

// MakeContainerRef returns a SNIP_CONTAINER snip that names a
// container by a small integer id rather than embedding its full
// serialization, the form package container's reconstruction engine
// actually consumes (each data type registers its sub-containers once
// and refers to them by id from any context).
func MakeContainerRef(id uint64) []byte {
	return appendUint64([]byte{byte(OpContainer)}, id)
}

// ParseContainerRef decodes a SNIP_CONTAINER payload (snip[1:]) built
// by MakeContainerRef.
func ParseContainerRef(payload []byte) (id uint64, err error) {
	v, n := readUint64(payload)
	if n == 0 {
		return 0, fmt.Errorf("zcontext: truncated CONTAINER ref")
	}
	return v, nil
}

// MakeSpecial returns a SNIP_SPECIAL snip naming callback id.
func MakeSpecial(id byte, operand []byte) []byte {
	return append([]byte{byte(OpSpecial), id}, operand...)
}

// MakeOtherDelta returns a SNIP_OTHER_DELTA snip referencing otherCtx
// with the given signed delta, varint-encoded zig-zag.
func MakeOtherDelta(otherCtx DictID, delta int64) []byte {
	buf := []byte{byte(OpOtherDelta)}
	buf = appendUint64(buf, uint64(otherCtx))
	buf = appendVarint(buf, delta)
	return buf
}

// ParseOtherDelta decodes a SNIP_OTHER_DELTA payload (snip[1:]).
func ParseOtherDelta(payload []byte) (otherCtx DictID, delta int64, err error) {
	v, n := readUint64(payload)
	if n == 0 {
		return 0, 0, fmt.Errorf("zcontext: truncated OTHER_DELTA dict_id")
	}
	otherCtx = DictID(v)
	d, n2 := readVarint(payload[n:])
	if n2 == 0 {
		return 0, 0, fmt.Errorf("zcontext: truncated OTHER_DELTA delta")
	}
	return otherCtx, d, nil
}

// MakeCopyBuddy returns a SNIP_COPY_BUDDY snip for the given kind.
func MakeCopyBuddy(kind BuddyKind) []byte { return []byte{byte(OpCopyBuddy), byte(kind)} }

// ParseCopyBuddy decodes the buddy kind from a SNIP_COPY_BUDDY payload.
func ParseCopyBuddy(payload []byte) (BuddyKind, error) {
	if len(payload) < 1 {
		return 0, fmt.Errorf("zcontext: truncated COPY_BUDDY")
	}
	return BuddyKind(payload[0]), nil
}

// MakeDiff returns a SNIP_DIFF snip against otherCtx with the given
// compact diff-grammar payload.
func MakeDiff(otherCtx DictID, diffOps []byte) []byte {
	buf := []byte{byte(OpDiff)}
	buf = appendUint64(buf, uint64(otherCtx))
	return append(buf, diffOps...)
}

// ParseDiff splits a SNIP_DIFF payload into the referenced ctx and the
// diff-grammar bytes.
func ParseDiff(payload []byte) (otherCtx DictID, ops []byte, err error) {
	v, n := readUint64(payload)
	if n == 0 {
		return 0, nil, fmt.Errorf("zcontext: truncated DIFF dict_id")
	}
	return DictID(v), payload[n:], nil
}

// MakePairLookup returns the one-byte SNIP_PAIR_LOOKUP snip.
func MakePairLookup() []byte { return []byte{byte(OpPairLookup)} }

// MakeRedirection returns a SNIP_REDIRECTION snip delegating entirely
// to otherCtx.
func MakeRedirection(otherCtx DictID) []byte {
	return appendUint64([]byte{byte(OpRedirection)}, uint64(otherCtx))
}

// ParseRedirection decodes the target ctx of a SNIP_REDIRECTION payload.
func ParseRedirection(payload []byte) (DictID, error) {
	v, n := readUint64(payload)
	if n == 0 {
		return 0, fmt.Errorf("zcontext: truncated REDIRECTION")
	}
	return DictID(v), nil
}

// --- small varint helpers local to the snip grammar ---

func appendUint64(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readUint64(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range buf {
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

func appendVarint(buf []byte, v int64) []byte {
	uv := uint64(v) << 1
	if v < 0 {
		uv = ^uv
	}
	return appendUint64(buf, uv)
}

func readVarint(buf []byte) (int64, int) {
	uv, n := readUint64(buf)
	if n == 0 {
		return 0, 0
	}
	v := int64(uv >> 1)
	if uv&1 != 0 {
		v = ^v
	}
	return v, n
}
