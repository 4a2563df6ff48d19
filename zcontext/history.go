package zcontext

import "fmt"

// HistoryEntry is one line's recorded value for a StorePerLine
// context: enough to answer a SNIP_COPY_BUDDY read without
// re-reconstructing the buddy line (spec.md §4.5).
type HistoryEntry struct {
	WordIndex uint32
	Int       int64
	Text      []byte
}

// History is a per-context, per-VB append-only line history. Buddies
// are always in the past relative to the current line (spec.md §4.5),
// so a plain growing slice indexed by line number is sufficient; no
// ring eviction is needed because a VB's line count is bounded and the
// whole history is freed when the VB is released.
type History struct {
	entries []HistoryEntry
}

func NewHistory() *History { return &History{} }

// Append records the current line's value, to be read back by a later
// line's SNIP_COPY_BUDDY.
func (h *History) Append(e HistoryEntry) { h.entries = append(h.entries, e) }

// At returns the history entry for lineIndex (0-based).
func (h *History) At(lineIndex int) (HistoryEntry, error) {
	if lineIndex < 0 || lineIndex >= len(h.entries) {
		return HistoryEntry{}, fmt.Errorf("zcontext: history index %d out of range [0,%d)", lineIndex, len(h.entries))
	}
	return h.entries[lineIndex], nil
}

// Len reports how many lines have been recorded so far.
func (h *History) Len() int { return len(h.entries) }

// BuddyResolver maps the current line index to the line index of its
// buddy for a given kind. The container engine supplies the concrete
// resolver (backed by the BUDDY context's per-line deltas); this
// package only defines the shape so zcontext stays independent of the
// container package (spec.md §4.5 "consuming a BUDDY context").
type BuddyResolver func(currentLine int, kind BuddyKind) (buddyLine int, ok bool)

// ResolveCopyBuddy reads the buddy's history slot for kind relative to
// currentLine, using resolve to find which earlier line is the buddy.
func (h *History) ResolveCopyBuddy(currentLine int, kind BuddyKind, resolve BuddyResolver) (HistoryEntry, error) {
	buddyLine, ok := resolve(currentLine, kind)
	if !ok {
		return HistoryEntry{}, fmt.Errorf("zcontext: no %v buddy for line %d", kind, currentLine)
	}
	if buddyLine >= currentLine {
		return HistoryEntry{}, fmt.Errorf("zcontext: buddy line %d is not before current line %d", buddyLine, currentLine)
	}
	return h.At(buddyLine)
}
