// Package samplugin is a minimal SAM data-type plugin demonstrating
// the buddy/container/history wiring (spec.md §4.5) end to end: it is
// deliberately not a complete SAM/BAM segmenter (a real one is an
// explicit collaborator, not core scope), but it exercises every piece
// a real one would need. The 10 mandatory leading tab-separated SAM
// columns (QNAME, FLAG, RNAME, POS, MAPQ, CIGAR, RNEXT, PNEXT, TLEN,
// SEQ) each get their own context; QUAL, the optional AUX columns and
// the line terminator are kept together as one verbatim TAIL blob so
// this plugin never needs AUX's variable per-tag bookkeeping.
package samplugin

import (
	"bytes"
	"strconv"

	"github.com/divonlan/genozip-go/buddy"
	"github.com/divonlan/genozip-go/container"
	"github.com/divonlan/genozip-go/datatype"
	"github.com/divonlan/genozip-go/gzpb"
	"github.com/divonlan/genozip-go/reference"
	"github.com/divonlan/genozip-go/refhash"
	"github.com/divonlan/genozip-go/zcontext"
)

// Name is the registry name of this plugin.
const Name = "sam"

const numMandatoryFields = 10

// refwinSpecialID is this plugin's only SNIP_SPECIAL callback: it
// recomputes the reference window SEQ was diffed against, either from
// the line's already-reconstructed RNAME/POS (aligned reads) or from a
// gpos embedded directly in the snip's operand (refhash-seeded
// unaligned reads, spec.md §4.6).
const refwinSpecialID byte = 1

var (
	qnameID = gzpb.NewDictID("QNAME", gzpb.DictIDField)
	flagID  = gzpb.NewDictID("FLAG", gzpb.DictIDField)
	rnameID = gzpb.NewDictID("RNAME", gzpb.DictIDField)
	posID   = gzpb.NewDictID("POS", gzpb.DictIDField)
	mapqID  = gzpb.NewDictID("MAPQ", gzpb.DictIDField)
	cigarID = gzpb.NewDictID("CIGAR", gzpb.DictIDField)
	rnextID = gzpb.NewDictID("RNEXT", gzpb.DictIDField)
	pnextID = gzpb.NewDictID("PNEXT", gzpb.DictIDField)
	tlenID  = gzpb.NewDictID("TLEN", gzpb.DictIDField)
	seqID   = gzpb.NewDictID("SEQ", gzpb.DictIDField)
	tailID  = gzpb.NewDictID("TAIL", gzpb.DictIDField)

	// buddyID records, per line, how many lines back this line's QNAME
	// mate sits (spec.md §4.5); a SAM mate pair shares a QNAME, one
	// record FLAG-marked first-in-pair and the other second-in-pair.
	buddyID = gzpb.NewDictID("BUDDY", gzpb.DictIDField)

	// seqlenID/refwinID never hold literal SAM text; SEQLEN records
	// each line's base count and REFWIN its diffed-against reference
	// window, both Invisible in Toplevel so they consume their b250
	// cursor and populate Last without ever being emitted (spec.md
	// §4.6).
	seqlenID = gzpb.NewDictID("SEQLEN", gzpb.DictIDField)
	refwinID = gzpb.NewDictID("REFWIN", gzpb.DictIDField)
)

type samPlugin struct{}

func init() { datatype.Register(samPlugin{}) }

func (samPlugin) Name() string     { return Name }
func (samPlugin) DataType() uint16 { return 4 }

// HeaderLen returns the length of the leading "@..." header block: the
// run of lines starting with '@', up to (but not including) the first
// line that doesn't.
func (samPlugin) HeaderLen(data []byte) int {
	i := 0
	for i < len(data) && data[i] == '@' {
		end := lineEnd(data, i)
		i = end
	}
	return i
}

func (samPlugin) SegTxtHeader(header []byte) ([]byte, error) { return header, nil }

// Unconsumed keeps a trailing incomplete line for the next VB.
func (samPlugin) Unconsumed(chunk []byte) int {
	idx := bytes.LastIndexByte(chunk, '\n')
	if idx < 0 {
		return len(chunk)
	}
	return len(chunk) - idx - 1
}

// SegVB splits txtData into SAM alignment lines, storing the 10
// mandatory fields in their own contexts and everything from QUAL
// onward (inclusive of the line terminator) as one TAIL blob per line.
// QNAME is StorePerLine so the BUDDY context can record mate deltas;
// RNAME is StorePerLine so a mate-equal RNAME can be emitted as a
// SNIP_COPY_BUDDY instead of a repeated literal. When table.Aux holds
// a *reference.Bundle (spec.md §6.3 --reference), SEQ is diffed
// against the reference instead of stored literally wherever a window
// can be found.
func (samPlugin) SegVB(table *zcontext.Table, txtData []byte) (int, error) {
	qname := table.GetOrCreate(qnameID, "QNAME", zcontext.LTypeNone)
	qname.StorePerLine = true
	qname.History = zcontext.NewHistory()

	flag := table.GetOrCreate(flagID, "FLAG", zcontext.LTypeNone)
	rname := table.GetOrCreate(rnameID, "RNAME", zcontext.LTypeNone)
	rname.StorePerLine = true
	rname.History = zcontext.NewHistory()

	pos := table.GetOrCreate(posID, "POS", zcontext.LTypeNone)
	mapq := table.GetOrCreate(mapqID, "MAPQ", zcontext.LTypeNone)
	cigar := table.GetOrCreate(cigarID, "CIGAR", zcontext.LTypeNone)
	rnext := table.GetOrCreate(rnextID, "RNEXT", zcontext.LTypeNone)
	pnext := table.GetOrCreate(pnextID, "PNEXT", zcontext.LTypeNone)
	tlen := table.GetOrCreate(tlenID, "TLEN", zcontext.LTypeNone)
	seq := table.GetOrCreate(seqID, "SEQ", zcontext.LTypeNone)
	tail := table.GetOrCreate(tailID, "TAIL", zcontext.LTypeNone)
	bud := table.GetOrCreate(buddyID, "BUDDY", zcontext.LTypeNone)
	seqlen := table.GetOrCreate(seqlenID, "SEQLEN", zcontext.LTypeNone)
	refwin := table.GetOrCreate(refwinID, "REFWIN", zcontext.LTypeNone)

	bundle, _ := table.Aux.(*reference.Bundle)

	lastSeenLine := make(map[string]int) // QNAME text -> most recent line index holding it

	n := 0
	i := 0
	for i < len(txtData) {
		end := lineEnd(txtData, i)
		line := txtData[i:end]

		// Split the line (terminator included) so the TAIL field below
		// keeps the line's own newline verbatim; only QUAL/AUX ever
		// land in that last piece.
		fields := bytes.SplitN(line, []byte("\t"), numMandatoryFields+1)
		if len(fields) < numMandatoryFields {
			// Malformed line; store it whole under TAIL with empty
			// mandatory fields so reconstruction is still byte-exact.
			qname.SegSnip(nil)
			flag.SegSnip(nil)
			rname.SegSnip(nil)
			pos.SegSnip(nil)
			mapq.SegSnip(nil)
			cigar.SegSnip(nil)
			rnext.SegSnip(nil)
			pnext.SegSnip(nil)
			tlen.SegSnip(nil)
			seq.SegSnip(nil)
			seqlen.SegSnip(nil)
			refwin.SegControl(zcontext.MakeSpecial(refwinSpecialID, nil))
			tail.SegSnip(line)
			i = end
			n++
			continue
		}

		qnameText := fields[0]
		qname.SegSnip(qnameText)
		qname.Last = zcontext.LastValue{Valid: true, Text: qnameText}

		delta := 0
		if prevLine, ok := lastSeenLine[string(qnameText)]; ok {
			delta = n - prevLine
		}
		bud.SegSnip(buddy.Encode(zcontext.BuddyMate, delta))
		lastSeenLine[string(qnameText)] = n

		flag.SegSnip(fields[1])

		rnameText := fields[2]
		if delta > 0 && mateRNameEqual(rname, delta, rnameText) {
			rname.SegControl(zcontext.MakeCopyBuddy(zcontext.BuddyMate))
		} else {
			rname.SegSnip(rnameText)
		}
		rname.Last = zcontext.LastValue{Valid: true, Text: rnameText}

		posText := fields[3]
		pos.SegSnip(posText)
		mapq.SegSnip(fields[4])
		cigar.SegSnip(fields[5])
		rnext.SegSnip(fields[6])
		pnext.SegSnip(fields[7])
		tlen.SegSnip(fields[8])

		seqText := fields[9]
		seqlen.SegSnip([]byte(strconv.Itoa(len(seqText))))
		segSEQ(bundle, seq, refwin, rnameText, posText, seqText)

		if len(fields) > numMandatoryFields {
			tail.SegSnip(fields[numMandatoryFields])
		} else {
			tail.SegSnip(nil)
		}

		recordHistory(qname)
		recordHistory(rname)

		i = end
		n++
	}
	return n, nil
}

// segSEQ segs one line's SEQ field, diffing it against a reference
// window when bundle is non-nil and a usable window can be found —
// first by the line's own RNAME/POS (aligned reads), falling back to
// a refhash k-mer seed lookup for unaligned or unmatched reads (spec.md
// §4.6) — and falling back to a plain literal snip otherwise. REFWIN
// always gets exactly one snip per line so its b250 cursor never
// drifts out of step with every other context's.
func segSEQ(bundle *reference.Bundle, seq, refwin *zcontext.Context, rnameText, posText, seqText []byte) {
	if bundle == nil || len(seqText) == 0 {
		refwin.SegControl(zcontext.MakeSpecial(refwinSpecialID, nil))
		seq.SegSnip(seqText)
		return
	}

	if window, ok := windowFromPos(bundle, rnameText, posText, len(seqText)); ok {
		refwin.SegControl(zcontext.MakeSpecial(refwinSpecialID, nil))
		diffOrLiteral(seq, window, seqText)
		return
	}

	if gpos, window, ok := windowFromSeed(bundle, seqText); ok {
		refwin.SegControl(zcontext.MakeSpecial(refwinSpecialID, appendGPosVarint(nil, gpos)))
		diffOrLiteral(seq, window, seqText)
		return
	}

	refwin.SegControl(zcontext.MakeSpecial(refwinSpecialID, nil))
	seq.SegSnip(seqText)
}

// windowFromPos resolves a reference window straight from the line's
// already-known RNAME/POS, the common case for aligned reads.
func windowFromPos(bundle *reference.Bundle, rnameText, posText []byte, length int) ([]byte, bool) {
	if len(rnameText) == 0 || string(rnameText) == "*" {
		return nil, false
	}
	p, err := strconv.ParseUint(string(posText), 10, 64)
	if err != nil || p == 0 {
		return nil, false
	}
	return bundle.Genome.Window(string(rnameText), p, length)
}

// windowFromSeed hashes seqText's leading k-mer through bundle.Hash to
// find a candidate reference position without relying on RNAME/POS at
// all (spec.md §4.6 "alignment-free matching"), used for unmapped or
// RNAME-mismatched reads.
func windowFromSeed(bundle *reference.Bundle, seqText []byte) (gpos uint64, window []byte, ok bool) {
	if bundle.Hash == nil || len(seqText) < refhash.KmerLen {
		return 0, nil, false
	}
	key, ok := refhash.PackKmer(seqText[:refhash.KmerLen])
	if !ok {
		return 0, nil, false
	}
	gpos, ok = bundle.Hash.Lookup(key)
	if !ok {
		return 0, nil, false
	}
	chrom, p, ok := bundle.Genome.GPosToChrom(gpos)
	if !ok {
		return 0, nil, false
	}
	window, ok = bundle.Genome.Window(chrom, p, len(seqText))
	if !ok {
		return 0, nil, false
	}
	return gpos, window, true
}

// diffThreshold is the minimum fraction of matching bases a window
// must have before segSEQ bothers emitting a SNIP_DIFF instead of a
// plain literal; below it, the diff grammar's copy/literal overhead
// isn't worth paying for a read that barely resembles the reference.
const diffThreshold = 0.5

func diffOrLiteral(seq *zcontext.Context, window, seqText []byte) {
	ops := buildDiffOps(window, seqText)
	if !worthDiffing(ops, len(seqText)) {
		seq.SegSnip(seqText)
		return
	}
	seq.SegControl(zcontext.MakeDiff(refwinID, container.EncodeDiffOps(ops)))
}

func worthDiffing(ops []container.DiffOp, total int) bool {
	if total == 0 {
		return false
	}
	var copied int
	for _, op := range ops {
		copied += op.CopyLen
	}
	return float64(copied)/float64(total) >= diffThreshold
}

// buildDiffOps builds the copy/literal op sequence that reconstructs
// target from base (same-length byte slices): alternating runs of
// equal bytes (copied) and unequal bytes (stored literally), the
// grammar container.ApplyDiff replays (spec.md §4.6).
func buildDiffOps(base, target []byte) []container.DiffOp {
	var ops []container.DiffOp
	i := 0
	for i < len(target) {
		copyStart := i
		for i < len(target) && i < len(base) && base[i] == target[i] {
			i++
		}
		copyLen := i - copyStart

		litStart := i
		for i < len(target) && (i >= len(base) || base[i] != target[i]) {
			i++
		}
		ops = append(ops, container.DiffOp{CopyLen: copyLen, Literal: append([]byte(nil), target[litStart:i]...)})
	}
	return ops
}

// refwinSpecial is the SNIP_SPECIAL callback REFWIN's snip dispatches
// to at reconstruction time. A non-empty operand carries a refhash-
// seeded gpos directly; an empty operand means "derive the window
// from this line's own RNAME/POS", both already reconstructed earlier
// in the same TOPLEVEL repeat. Returns (nil, nil) rather than an error
// whenever no reference is loaded or no window can be found, since
// REFWIN is Invisible and SEQ always has a literal fallback.
func refwinSpecial(e *container.Engine, callbackID byte, operand []byte) ([]byte, error) {
	bundle, _ := e.Table.Aux.(*reference.Bundle)
	if bundle == nil {
		return nil, nil
	}
	if len(operand) > 0 {
		gpos, _ := readGPosVarint(operand)
		chrom, p, ok := bundle.Genome.GPosToChrom(gpos)
		if !ok {
			return nil, nil
		}
		seqlenCtx := e.Table.Get(seqlenID)
		if seqlenCtx == nil || !seqlenCtx.Last.Valid {
			return nil, nil
		}
		length, err := strconv.Atoi(string(seqlenCtx.Last.Text))
		if err != nil {
			return nil, nil
		}
		window, ok := bundle.Genome.Window(chrom, p, length)
		if !ok {
			return nil, nil
		}
		return window, nil
	}

	rname := e.Table.Get(rnameID)
	pos := e.Table.Get(posID)
	seqlenCtx := e.Table.Get(seqlenID)
	if rname == nil || pos == nil || seqlenCtx == nil || !rname.Last.Valid || !pos.Last.Valid || !seqlenCtx.Last.Valid {
		return nil, nil
	}
	length, err := strconv.Atoi(string(seqlenCtx.Last.Text))
	if err != nil {
		return nil, nil
	}
	window, ok := windowFromPos(bundle, rname.Last.Text, pos.Last.Text, length)
	if !ok {
		return nil, nil
	}
	return window, nil
}

func appendGPosVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readGPosVarint(buf []byte) (uint64, int) {
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

// mateRNameEqual reports whether the RNAME delta lines back from the
// current line (still only tentatively queued, not yet flushed to
// history) equals rnameText, so SegVB only ever emits a COPY_BUDDY
// snip when it is guaranteed to round-trip correctly.
func mateRNameEqual(rname *zcontext.Context, delta int, rnameText []byte) bool {
	idx := rname.History.Len() - delta
	if idx < 0 {
		return false
	}
	entry, err := rname.History.At(idx)
	if err != nil {
		return false
	}
	return bytes.Equal(entry.Text, rnameText)
}

// recordHistory appends ctx's just-segged value to its History, the
// ZIP-side mirror of container.Engine.recordHistory so a later line in
// the same VB can resolve a COPY_BUDDY reference against it.
func recordHistory(ctx *zcontext.Context) {
	if !ctx.StorePerLine || ctx.History == nil {
		return
	}
	pending := ctx.PendingB250()
	ctx.History.Append(zcontext.HistoryEntry{
		WordIndex: pending[len(pending)-1],
		Text:      ctx.Last.Text,
	})
}

func lineEnd(data []byte, i int) int {
	idx := bytes.IndexByte(data[i:], '\n')
	if idx < 0 {
		return len(data)
	}
	return i + idx + 1
}

func (samPlugin) Toplevel() *container.Container {
	tab := []byte("\t")
	return &container.Container{
		Items: []container.Item{
			{DictID: qnameID, Separator: tab},
			{DictID: flagID, Separator: tab},
			{DictID: rnameID, Separator: tab},
			{DictID: posID, Separator: tab},
			{DictID: mapqID, Separator: tab},
			{DictID: cigarID, Separator: tab},
			{DictID: rnextID, Separator: tab},
			{DictID: pnextID, Separator: tab},
			{DictID: tlenID, Separator: tab},
			{DictID: seqlenID, Invisible: true},
			{DictID: refwinID, Invisible: true},
			{DictID: seqID, Separator: tab},
			{DictID: tailID},
			// BUDDY carries no reconstruction output of its own; it only
			// needs to advance its b250 cursor and record history, which
			// buddy.BuildTracker does directly from the flushed stream
			// rather than through the container engine.
		},
	}
}

func (samPlugin) Specials() map[byte]container.SpecialFunc {
	return map[byte]container.SpecialFunc{refwinSpecialID: refwinSpecial}
}
func (samPlugin) BuddyDictID() zcontext.DictID { return buddyID }

// ChromDictID resolves --regions chromosome names: the random-access
// entries this plugin reports key their ChromWordIndex off RNAME's
// dictionary.
func (samPlugin) ChromDictID() zcontext.DictID { return rnameID }

func (samPlugin) RandomAccess(table *zcontext.Table) (datatype.RandomAccessInfo, bool) {
	rname := table.Get(rnameID)
	posCtx := table.Get(posID)
	if rname == nil || posCtx == nil || rname.History == nil || rname.History.Len() == 0 {
		return datatype.RandomAccessInfo{}, false
	}
	first, err := rname.History.At(0)
	if err != nil || len(first.Text) == 0 {
		return datatype.RandomAccessInfo{}, false
	}
	var minPos, maxPos uint32
	for i := 0; i < posCtx.Dict.Len(); i++ {
		p, err := strconv.ParseUint(string(posCtx.Dict.Word(uint32(i))), 10, 32)
		if err != nil {
			continue
		}
		if minPos == 0 || uint32(p) < minPos {
			minPos = uint32(p)
		}
		if uint32(p) > maxPos {
			maxPos = uint32(p)
		}
	}
	return datatype.RandomAccessInfo{Chrom: first.Text, MinPos: minPos, MaxPos: maxPos}, true
}
