// Package buddy implements the mate/saggy/both line history lookups
// of spec.md §4.5: a dedicated BUDDY context records, for every line,
// how many lines back that line's buddy (its paired mate read, or the
// primary read a supplementary alignment is saggy to) sits. During
// reconstruction the engine resolves SNIP_COPY_BUDDY against that
// recorded delta rather than re-scanning the VB, the same bounded
// backward reference a per-context ring buffer would give (spec.md
// "Cycles and back-references").
package buddy

import (
	"fmt"

	"github.com/divonlan/genozip-go/zcontext"
)

// tag distinguishes a BUDDY context's own per-line snip from a plain
// SNIP_* control opcode (whose first byte falls in 1..8); kind values
// are small enough to collide with that range, so every BUDDY snip is
// tagged with its top bit set before the kind byte.
const tag = 0x80

// Encode returns the per-line snip a BUDDY context stores: the buddy
// kind and how many lines back the buddy sits. delta == 0 means "this
// line has no buddy of this kind".
func Encode(kind zcontext.BuddyKind, delta int) []byte {
	buf := []byte{tag | byte(kind)}
	return appendUvarint(buf, uint64(delta))
}

// Decode reverses Encode.
func Decode(snip []byte) (kind zcontext.BuddyKind, delta int, err error) {
	if len(snip) == 0 || snip[0]&tag == 0 {
		return 0, 0, fmt.Errorf("buddy: not a buddy snip")
	}
	kind = zcontext.BuddyKind(snip[0] &^ tag)
	v, n := readUvarint(snip[1:])
	if n == 0 {
		return 0, 0, fmt.Errorf("buddy: truncated delta")
	}
	return kind, int(v), nil
}

// Tracker holds the buddy-line-by-kind map for one VB, built once from
// a BUDDY context's full b250 stream and then queried many times
// during reconstruction (one query per SNIP_COPY_BUDDY draw).
type Tracker struct {
	buddyLine []map[zcontext.BuddyKind]int // indexed by line
}

// BuildTracker decodes ctx's entire b250 stream (numLines entries, one
// per line) into a Tracker. ctx must already have its b250/local
// installed (PIZ load) or flushed (immediately after ZIP segging).
func BuildTracker(ctx *zcontext.Context, numLines int) (*Tracker, error) {
	t := &Tracker{buddyLine: make([]map[zcontext.BuddyKind]int, numLines)}
	cursor := 0
	for line := 0; line < numLines; line++ {
		value, special, err := ctx.NextB250(&cursor)
		if err != nil {
			return nil, fmt.Errorf("buddy: line %d: %w", line, err)
		}
		if special == zcontext.EmptySF || special == zcontext.MissingSF {
			continue
		}
		kind, delta, err := Decode(ctx.Dict.Word(value))
		if err != nil {
			return nil, fmt.Errorf("buddy: line %d: %w", line, err)
		}
		if delta == 0 {
			continue
		}
		if t.buddyLine[line] == nil {
			t.buddyLine[line] = make(map[zcontext.BuddyKind]int)
		}
		t.buddyLine[line][kind] = line - delta
	}
	return t, nil
}

// Resolver adapts the tracker to zcontext.BuddyResolver, resolving
// BuddyBoth as a fallback for either BuddyMate or BuddySaggy when no
// kind-specific entry was recorded for that line.
func (t *Tracker) Resolver() zcontext.BuddyResolver {
	return func(currentLine int, kind zcontext.BuddyKind) (int, bool) {
		if currentLine < 0 || currentLine >= len(t.buddyLine) {
			return 0, false
		}
		byKind := t.buddyLine[currentLine]
		if byKind == nil {
			return 0, false
		}
		if line, ok := byKind[kind]; ok {
			return line, true
		}
		if kind != zcontext.BuddyBoth {
			if line, ok := byKind[zcontext.BuddyBoth]; ok {
				return line, true
			}
		}
		return 0, false
	}
}

func appendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readUvarint(buf []byte) (uint64, int) {
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
