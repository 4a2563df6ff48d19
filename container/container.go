// Package container implements the container-driven reconstruction
// engine of spec.md §4.3: a container describes how to assemble one
// logical record (or a repeated group of them) out of its items, each
// either a leaf context or a nested sub-container, emitting separators
// and applying translators as it goes. It is the Go analogue of
// encoding/pam/pamreader.go's readRecord, which assembles one
// sam.Record field by field from per-field readers; container
// generalizes that from "one fixed Go struct" to "an arbitrary,
// data-type-defined tree of fields declared at runtime".
package container

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/divonlan/genozip-go/zcontext"
)

// Translator rewrites the bytes an item or container produced into
// their final output form, e.g. a SAM integer field rewritten as a
// little-endian BAM int (spec.md §4.3).
type Translator func(raw []byte) []byte

// Item is one field of a container: either a leaf reference into a
// context (DictID set, Sub nil) or a nested container (Sub set).
type Item struct {
	DictID    zcontext.DictID
	Sub       *Container
	Separator []byte
	// Invisible items are consumed for their side effects (advancing
	// their context's cursor, updating Last/History) but never emitted.
	Invisible bool
	Translate Translator
}

// Container is a reconstruction-time template: repeat count, an
// optional prefix emitted before every repeat, and its items
// (spec.md §4.3).
type Container struct {
	// RepeatsConst is used when >= 0. A negative value means "draw the
	// repeat count from RepeatsCtx's b250 instead".
	RepeatsConst int
	RepeatsCtx   zcontext.DictID
	Prefix       []byte
	Items        []Item
	// SelfTranslate rewrites the entire repeat's emitted bytes at once,
	// for containers that reshape their own layout (spec.md §4.3, e.g.
	// SAM AUX -> BAM AUX).
	SelfTranslate Translator
}

// SpecialFunc computes a SNIP_SPECIAL value from the engine's current
// state; callbackID identifies which per-data-type special was named
// by the snip.
type SpecialFunc func(e *Engine, callbackID byte, operand []byte) ([]byte, error)

// LineCallback runs after every completed repeat of the TOPLEVEL
// container, e.g. the line dropper, the kraken filter, the coverage
// accumulator (spec.md §4.3 step 4).
type LineCallback func(lineIndex int, line []byte)

// Engine drives reconstruction for one VB. It is re-entrant per VB and
// must be used single-threaded within a VB (spec.md §4.3).
type Engine struct {
	Table      *zcontext.Table
	Resolve    zcontext.BuddyResolver
	Containers map[uint64]*Container // registered by MakeContainerRef id
	Specials   map[byte]SpecialFunc
	Callbacks  []LineCallback

	cursors   map[zcontext.DictID]*int
	lineIndex int
}

// NewEngine creates a reconstruction engine bound to table for one VB.
func NewEngine(table *zcontext.Table, resolve zcontext.BuddyResolver) *Engine {
	return &Engine{
		Table:      table,
		Resolve:    resolve,
		Containers: make(map[uint64]*Container),
		Specials:   make(map[byte]SpecialFunc),
		cursors:    make(map[zcontext.DictID]*int),
	}
}

func (e *Engine) cursor(dictID zcontext.DictID) *int {
	c, ok := e.cursors[dictID]
	if !ok {
		c = new(int)
		e.cursors[dictID] = c
	}
	return c
}

// Reconstruct runs container_reconstruct for c, appending output to
// out (spec.md §4.3). It is the entry point for both the TOPLEVEL
// container and any nested sub-container.
func (e *Engine) Reconstruct(c *Container, out *bytes.Buffer) error {
	repeats := c.RepeatsConst
	if repeats < 0 {
		ctx := e.Table.Get(c.RepeatsCtx)
		if ctx == nil {
			return fmt.Errorf("container: repeats ctx %v not found", c.RepeatsCtx)
		}
		v, _, err := ctx.NextB250(e.cursor(c.RepeatsCtx))
		if err != nil {
			return fmt.Errorf("container: reading repeat count: %w", err)
		}
		repeats = int(v)
	}

	for r := 0; r < repeats; r++ {
		lineStart := out.Len()
		out.Write(c.Prefix)
		for _, item := range c.Items {
			itemStart := out.Len()
			var err error
			if item.Sub != nil {
				err = e.Reconstruct(item.Sub, out)
			} else {
				err = e.reconstructLeaf(item.DictID, out)
			}
			if err != nil {
				return err
			}
			if item.Invisible {
				out.Truncate(itemStart)
			} else if item.Translate != nil {
				raw := append([]byte(nil), out.Bytes()[itemStart:]...)
				out.Truncate(itemStart)
				out.Write(item.Translate(raw))
			}
			out.Write(item.Separator)
		}
		if c.SelfTranslate != nil {
			raw := append([]byte(nil), out.Bytes()[lineStart:]...)
			out.Truncate(lineStart)
			out.Write(c.SelfTranslate(raw))
		}
		for _, cb := range e.Callbacks {
			cb(e.lineIndex, out.Bytes()[lineStart:])
		}
		e.lineIndex++
	}
	return nil
}

// reconstructLeaf draws the next snip from ctx's b250 (or local, for a
// direct SNIP_LOOKUP) and dispatches on its control opcode, or emits
// it literally if it is plain text (spec.md §4.3 step 3).
func (e *Engine) reconstructLeaf(dictID zcontext.DictID, out *bytes.Buffer) error {
	ctx := e.Table.Get(dictID)
	if ctx == nil {
		return fmt.Errorf("container: context %v not found", dictID)
	}
	value, special, err := ctx.NextB250(e.cursor(dictID))
	if err != nil {
		return fmt.Errorf("container: %v: %w", dictID, err)
	}
	switch special {
	case zcontext.EmptySF, zcontext.MissingSF:
		ctx.Last = zcontext.LastValue{Valid: true, Text: nil}
		e.recordHistory(ctx, value)
		return nil
	}
	snip := ctx.Dict.Word(value)
	if op, ok := zcontext.IsOp(snip); ok {
		if err := e.dispatchOp(ctx, op, snip[1:], out); err != nil {
			return err
		}
		e.recordHistory(ctx, value)
		return nil
	}
	ctx.Last = zcontext.LastValue{Valid: true, Text: snip}
	if v, perr := strconv.ParseInt(string(snip), 10, 64); perr == nil {
		ctx.Last.Int = v
	}
	out.Write(snip)
	e.recordHistory(ctx, value)
	return nil
}

// recordHistory appends the context's just-computed Last value to its
// history, for contexts a later line's SNIP_COPY_BUDDY may reference
// (spec.md §4.5). Contexts that never serve as a buddy source carry a
// nil History and are skipped.
func (e *Engine) recordHistory(ctx *zcontext.Context, wordIndex uint32) {
	if !ctx.StorePerLine || ctx.History == nil {
		return
	}
	ctx.History.Append(zcontext.HistoryEntry{
		WordIndex: wordIndex,
		Int:       ctx.Last.Int,
		Text:      ctx.Last.Text,
	})
}

func (e *Engine) dispatchOp(ctx *zcontext.Context, op zcontext.Op, payload []byte, out *bytes.Buffer) error {
	switch op {
	case zcontext.OpLookup:
		s := ctx.Local.ReadString()
		ctx.Last = zcontext.LastValue{Valid: true, Text: s}
		out.Write(s)
		return nil

	case zcontext.OpContainer:
		id, err := zcontext.ParseContainerRef(payload)
		if err != nil {
			return err
		}
		sub, ok := e.Containers[id]
		if !ok {
			return fmt.Errorf("container: unknown container id %d", id)
		}
		return e.Reconstruct(sub, out)

	case zcontext.OpSpecial:
		if len(payload) == 0 {
			return fmt.Errorf("container: SPECIAL snip missing callback id")
		}
		fn, ok := e.Specials[payload[0]]
		if !ok {
			return fmt.Errorf("container: unknown special callback %d", payload[0])
		}
		text, err := fn(e, payload[0], payload[1:])
		if err != nil {
			return err
		}
		ctx.Last = zcontext.LastValue{Valid: true, Text: text}
		out.Write(text)
		return nil

	case zcontext.OpOtherDelta:
		otherID, delta, err := zcontext.ParseOtherDelta(payload)
		if err != nil {
			return err
		}
		other := e.Table.Get(otherID)
		if other == nil || !other.Last.Valid {
			return fmt.Errorf("container: OTHER_DELTA references unset context %v", otherID)
		}
		val := other.Last.Int + delta
		text := formatInt(val)
		ctx.Last = zcontext.LastValue{Valid: true, Int: val, Text: text}
		out.Write(text)
		return nil

	case zcontext.OpCopyBuddy:
		kind, err := zcontext.ParseCopyBuddy(payload)
		if err != nil {
			return err
		}
		if ctx.History == nil {
			return fmt.Errorf("container: %v has no history for COPY_BUDDY", ctx.DictID)
		}
		entry, err := ctx.History.ResolveCopyBuddy(e.lineIndex, kind, e.Resolve)
		if err != nil {
			return err
		}
		ctx.Last = zcontext.LastValue{Valid: true, Int: entry.Int, Text: entry.Text}
		out.Write(entry.Text)
		return nil

	case zcontext.OpDiff:
		otherID, ops, err := zcontext.ParseDiff(payload)
		if err != nil {
			return err
		}
		other := e.Table.Get(otherID)
		if other == nil || !other.Last.Valid {
			return fmt.Errorf("container: DIFF references unset context %v", otherID)
		}
		text := ApplyDiff(other.Last.Text, ops)
		ctx.Last = zcontext.LastValue{Valid: true, Text: text}
		out.Write(text)
		return nil

	case zcontext.OpPairLookup:
		s := ctx.Local.ReadString()
		ctx.Last = zcontext.LastValue{Valid: true, Text: s}
		out.Write(s)
		return nil

	case zcontext.OpRedirection:
		otherID, err := zcontext.ParseRedirection(payload)
		if err != nil {
			return err
		}
		return e.reconstructLeaf(otherID, out)

	default:
		return fmt.Errorf("container: unhandled snip opcode %v", op)
	}
}

func formatInt(v int64) []byte {
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		return []byte("0")
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return append([]byte(nil), buf[i:]...)
}
