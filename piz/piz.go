package piz

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"

	"github.com/divonlan/genozip-go/datatype"
	"github.com/divonlan/genozip-go/digest"
	"github.com/divonlan/genozip-go/gzpb"
	"github.com/divonlan/genozip-go/reference"
	"github.com/divonlan/genozip-go/section"
	"github.com/divonlan/genozip-go/zcontext"
)

// Stats summarizes one completed Piz call.
type Stats struct {
	NumLines uint64
	NumVBs   int
}

// planStep is one unit of reconstruction work read straight off the
// file's stored ReconPlan (spec.md §4.4, §4.9): either a single VB
// (PlanFullVB) or a mate pair reconstructed together (PlanInterleave).
// Every other ReconPlanOp this engine's writer can emit a plan item
// for (PlanRange, PlanDownsample, PlanEndOfVB, PlanRemoveMe) has no
// writer-side producer — package zip never synthesizes one — so there
// is nothing for planSteps to consume for those kinds; see DESIGN.md
// for why --regions/--sort/--downsample/--head/--tail are instead
// applied as a post-reconstruction line-selection pass.
type planStep struct {
	interleave bool
	vbI        uint32
	vbI2       uint32 // only meaningful when interleave is true
}

// planSteps reads the writer's committed plan order (spec.md §4.4)
// into the two step shapes this engine's writer ever produces.
func planSteps(plan *section.Plan) []planStep {
	var steps []planStep
	for _, it := range plan.Items() {
		switch it.Op {
		case gzpb.PlanFullVB:
			steps = append(steps, planStep{vbI: it.VBlockI})
		case gzpb.PlanInterleave:
			steps = append(steps, planStep{interleave: true, vbI: it.VBlockI, vbI2: it.VBlockI2})
		}
	}
	return steps
}

// fullVBOrder flattens steps to a plain VBlockI list, in plan order,
// the shape --regions/--sort/--downsample/--head/--tail all operate
// on. Only called once the caller has confirmed steps has no
// PlanInterleave entries.
func fullVBOrder(steps []planStep) []uint32 {
	ids := make([]uint32, len(steps))
	for i, st := range steps {
		ids[i] = st.vbI
	}
	return ids
}

// neededVBs returns every distinct VBlockI any step references.
func neededVBs(steps []planStep) []uint32 {
	seen := make(map[uint32]bool)
	var ids []uint32
	add := func(id uint32) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, st := range steps {
		add(st.vbI)
		if st.interleave {
			add(st.vbI2)
		}
	}
	return ids
}

// vbResult is one VB's fully reconstructed output plus the byte offset
// each of its records starts at.
type vbResult struct {
	data   []byte
	starts []int
}

// Piz reconstructs a genozip file at srcPath back to dstPath (spec.md
// §2, §4, §6.3). It loads the catalogue and every VB's dictionary/b250/
// local state up front (Load + loadAllVBs), narrows the VB list by
// Options.Regions/Sort, reconstructs the surviving VBs concurrently
// through the container engine (spec.md §4.3, bounded by
// Options.MaxThreads the same way Zip bounds its segmenter fan-out),
// and writes them out in the plan's order — applying
// Options.Head/Tail/Downsample at line granularity once every selected
// VB's output is in hand, and interleaving mate1/mate2 records line by
// line when Options.Interleave is set against a paired file (spec.md
// §8 "Interleave idempotence").
func Piz(srcPath, dstPath string, opts Options) (Stats, error) {
	if err := opts.validate(); err != nil {
		return Stats{}, err
	}
	opts.fillDefaults()

	l, err := Load(srcPath, opts.Password)
	if err != nil {
		return Stats{}, err
	}

	plugin, ok := datatype.ByDataType(l.Header.DataType)
	if !ok {
		return Stats{}, fmt.Errorf("piz: %s: unknown data type %d", srcPath, l.Header.DataType)
	}

	steps := planSteps(l.Plan)
	paired := false
	for _, st := range steps {
		if st.interleave {
			paired = true
			break
		}
	}
	if opts.Interleave && !paired {
		return Stats{}, fmt.Errorf("piz: %s: --interleave requires a paired file (2 components with matching VB counts); this file's plan has no PlanInterleave items", srcPath)
	}
	if (len(opts.Regions) > 0 || opts.Sort) && paired {
		return Stats{}, fmt.Errorf("piz: %s: --regions/--sort are not supported against a paired file", srcPath)
	}
	if opts.Test && (len(opts.Regions) > 0 || opts.DownsampleK > 1 || opts.Head > 0 || opts.Tail > 0 || opts.OneVB > 0) {
		return Stats{}, fmt.Errorf("piz: --test reconstructs the whole file and cannot be combined with --regions/--downsample/--head/--tail/--one-vb")
	}

	if opts.OneVB > 0 {
		var kept []planStep
		for _, st := range steps {
			switch {
			case st.vbI == uint32(opts.OneVB):
				kept = append(kept, planStep{vbI: st.vbI})
			case st.interleave && st.vbI2 == uint32(opts.OneVB):
				kept = append(kept, planStep{vbI: st.vbI2})
			}
		}
		if len(kept) == 0 {
			return Stats{}, fmt.Errorf("piz: %s: --one-vb %d: no such VB in the reconstruction plan", srcPath, opts.OneVB)
		}
		steps = kept
	}

	var bundle *reference.Bundle
	if opts.Reference != "" {
		b, rerr := reference.Load(opts.Reference)
		if rerr != nil {
			return Stats{}, fmt.Errorf("piz: %w", rerr)
		}
		if l.Header.RefFileMD5 != (section.Md5Hash{}) && section.Md5Hash(b.Genome.Digest()) != l.Header.RefFileMD5 {
			return Stats{}, fmt.Errorf("piz: %s: --reference %s does not match the reference this file was compressed against", srcPath, opts.Reference)
		}
		bundle = b
	}

	states, err := l.loadAllVBs(bundle)
	if err != nil {
		return Stats{}, err
	}
	log.Printf("piz: %s: %d VB(s), data type %d", srcPath, len(states), l.Header.DataType)

	if len(opts.Regions) > 0 || opts.Sort {
		vbIDs := fullVBOrder(steps)
		if len(opts.Regions) > 0 {
			if vbIDs, err = filterRegions(l.RA, states, vbIDs, opts.Regions, plugin.ChromDictID()); err != nil {
				return Stats{}, err
			}
		}
		if opts.Sort {
			vbIDs = sortByGenome(l.RA, vbIDs)
		}
		steps = steps[:0]
		for _, id := range vbIDs {
			steps = append(steps, planStep{vbI: id})
		}
	}

	needed := neededVBs(steps)
	results := make(map[uint32]vbResult, len(needed))
	var mu resultsMutex
	if err := traverse.Limit(opts.MaxThreads).Each(len(needed), func(i int) error {
		vbI := needed[i]
		st, ok := states[vbI]
		if !ok {
			return fmt.Errorf("piz: vb %d: no sections loaded", vbI)
		}
		data, starts, rerr := reconstructVB(plugin, st)
		if rerr != nil {
			return rerr
		}
		mu.set(results, vbI, vbResult{data: data, starts: starts})
		return nil
	}); err != nil {
		return Stats{}, err
	}

	lines, totalSelectableLines := assemble(steps, results, opts.Interleave)
	keep := lineSelector(opts, totalSelectableLines)

	// The whole-file digest is re-derived one whole VB at a time
	// whenever every VB was reconstructed — always under --test (filters
	// are rejected above), and on a normal run unless --regions dropped
	// VBs from the plan (spec.md §3.2, §6.4). Update's own buffering
	// restores strict vblock_i order no matter what order the plan
	// visits them in (spec.md §5). Head/tail/downsample only narrow the
	// written output, so they don't disturb the check.
	if opts.Test || (len(opts.Regions) == 0 && opts.OneVB == 0) {
		dig := digest.New(digest.Algorithm(l.Header.DigestAlg))
		for _, vbI := range needed {
			if derr := dig.Update(vbI, results[vbI].data); derr != nil {
				return Stats{}, fmt.Errorf("piz: digest: %w", derr)
			}
		}
		got, derr := dig.Finalize()
		if derr != nil {
			return Stats{}, fmt.Errorf("piz: %s: digest: %w", srcPath, derr)
		}
		if got != digest.Hash(l.Header.MD5HashBound) {
			return Stats{}, fmt.Errorf("piz: %s: digest mismatch: reconstructed text does not match the digest stored at compression", srcPath)
		}
	}

	if opts.Unbind {
		return unbind(l, states, results, dstPath)
	}

	onlyComp := -1
	if opts.OneVB > 0 {
		onlyComp = int(states[uint32(opts.OneVB)].CompI)
	}
	var outBuf bytes.Buffer
	writeTxtHeaders(&outBuf, l, opts.Interleave, onlyComp)

	var totalLines uint64
	for lineIdx, ln := range lines {
		if keep == nil || keep(lineIdx) {
			outBuf.Write(ln)
			totalLines++
		}
	}

	ctx := vcontext.Background()
	out, err := file.Create(ctx, dstPath)
	if err != nil {
		return Stats{}, fmt.Errorf("piz: create %s: %w", dstPath, err)
	}
	if _, err := out.Writer(ctx).Write(outBuf.Bytes()); err != nil {
		out.Close(ctx) // nolint: errcheck
		return Stats{}, fmt.Errorf("piz: write %s: %w", dstPath, err)
	}
	if err := out.Close(ctx); err != nil {
		return Stats{}, fmt.Errorf("piz: close %s: %w", dstPath, err)
	}

	return Stats{NumLines: totalLines, NumVBs: len(needed)}, nil
}

// resultsMutex is the tiny mutex traverse.Each's worker callbacks share
// to write into the shared results map, the same pattern package zip's
// writer goroutine uses for its own results map.
type resultsMutex struct{ mu sync.Mutex }

func (m *resultsMutex) set(results map[uint32]vbResult, vbI uint32, r vbResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results[vbI] = r
}

// writeTxtHeaders emits each component's TXT_HEADER in component-index
// order (spec.md §4.9). When Interleave is requested, only mate1's
// (component 0) header is written, since the merged output stream has
// one logical record sequence, not two. onlyComp >= 0 restricts the
// output to that single component's header (--one-vb).
func writeTxtHeaders(out *bytes.Buffer, l *Loaded, interleave bool, onlyComp int) {
	if interleave {
		out.Write(l.TxtHeaderData[0])
		return
	}
	comps := make([]uint32, 0, len(l.TxtHeaderData))
	for compI := range l.TxtHeaderData {
		comps = append(comps, compI)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i] < comps[j] })
	for _, compI := range comps {
		if onlyComp >= 0 && int(compI) != onlyComp {
			continue
		}
		out.Write(l.TxtHeaderData[compI])
	}
}

// unbind writes each component's header and its VBs' reconstructed
// records to its own output file, dstPath.1, dstPath.2, ... (spec.md
// §6.3 --unbind). Filters and reordering are rejected up front by
// Options.validate, so every reconstructed VB is written whole.
func unbind(l *Loaded, states map[uint32]*vbState, results map[uint32]vbResult, dstPath string) (Stats, error) {
	ctx := vcontext.Background()
	comps := make([]uint32, 0, len(l.TxtHeaderData))
	for compI := range l.TxtHeaderData {
		comps = append(comps, compI)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i] < comps[j] })

	vbIDs := make([]uint32, 0, len(results))
	for vbI := range results {
		vbIDs = append(vbIDs, vbI)
	}
	sort.Slice(vbIDs, func(i, j int) bool { return vbIDs[i] < vbIDs[j] })

	var totalLines uint64
	for _, compI := range comps {
		var buf bytes.Buffer
		buf.Write(l.TxtHeaderData[compI])
		for _, vbI := range vbIDs {
			if states[vbI].CompI != compI {
				continue
			}
			buf.Write(results[vbI].data)
			totalLines += uint64(len(results[vbI].starts))
		}
		path := fmt.Sprintf("%s.%d", dstPath, compI+1)
		out, err := file.Create(ctx, path)
		if err != nil {
			return Stats{}, fmt.Errorf("piz: create %s: %w", path, err)
		}
		if _, err := out.Writer(ctx).Write(buf.Bytes()); err != nil {
			out.Close(ctx) // nolint: errcheck
			return Stats{}, fmt.Errorf("piz: write %s: %w", path, err)
		}
		if err := out.Close(ctx); err != nil {
			return Stats{}, fmt.Errorf("piz: close %s: %w", path, err)
		}
	}
	return Stats{NumLines: totalLines, NumVBs: len(vbIDs)}, nil
}

// assemble walks steps in order, slicing each reconstructed VB's bytes
// into individual records. A PlanFullVB step simply emits its VB's
// records in order. A PlanInterleave step emits vbI then vbI2
// sequentially unless interleave is requested, in which case it
// requires both VBs to carry the same number of records and emits them
// mate1-line, mate2-line, mate1-line, ... (spec.md §8 "Interleave
// idempotence").
func assemble(steps []planStep, results map[uint32]vbResult, interleave bool) ([][]byte, int) {
	var lines [][]byte
	sliceOf := func(r vbResult, li int) []byte {
		end := len(r.data)
		if li+1 < len(r.starts) {
			end = r.starts[li+1]
		}
		return r.data[r.starts[li]:end]
	}
	emit := func(vbI uint32) {
		r := results[vbI]
		for li := range r.starts {
			lines = append(lines, sliceOf(r, li))
		}
	}
	for _, st := range steps {
		if !st.interleave {
			emit(st.vbI)
			continue
		}
		if !interleave {
			emit(st.vbI)
			emit(st.vbI2)
			continue
		}
		a, b := results[st.vbI], results[st.vbI2]
		n := len(a.starts)
		if len(b.starts) < n {
			n = len(b.starts)
		}
		for li := 0; li < n; li++ {
			lines = append(lines, sliceOf(a, li))
			lines = append(lines, sliceOf(b, li))
		}
	}
	return lines, len(lines)
}

// filterRegions narrows vbIDs to those whose random-access span
// overlaps any requested region (spec.md §6.3 --regions), resolving
// each region's chromosome name against the data type's own chromosome
// context (RNAME for SAM, CHROM for VCF-like types).
func filterRegions(ra *section.RandomAccessIndex, states map[uint32]*vbState, vbIDs []uint32, regions []Region, chromDictID zcontext.DictID) ([]uint32, error) {
	if len(ra.Entries()) == 0 || chromDictID == 0 {
		return nil, fmt.Errorf("piz: --regions requested but this file has no random-access index (its data type has no positional concept)")
	}
	var chromDict *zcontext.Dict
	for _, st := range states {
		if c := st.Table.Get(chromDictID); c != nil {
			chromDict = c.Dict
			break
		}
	}
	if chromDict == nil {
		return nil, fmt.Errorf("piz: --regions requested but no chromosome context was found in this file")
	}

	keep := make(map[uint32]bool)
	for _, rg := range regions {
		wordIdx, ok := chromDict.Lookup([]byte(rg.Chrom))
		if !ok {
			return nil, fmt.Errorf("piz: --regions: unknown chromosome %q", rg.Chrom)
		}
		for _, e := range ra.Overlapping(wordIdx, rg.Start, rg.End) {
			keep[e.VBlockI] = true
		}
	}

	var out []uint32
	for _, id := range vbIDs {
		if keep[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// sortByGenome reorders vbIDs by each VB's first random-access span
// (ChromWordIndex, MinPos); VBs with no recorded span (not positional)
// keep their relative order and sort after every positional VB (spec.md
// §6.3 --sort; see DESIGN.md on this being VB-granularity, not a true
// per-line sort).
func sortByGenome(ra *section.RandomAccessIndex, vbIDs []uint32) []uint32 {
	firstSpan := make(map[uint32]gzpb.RandomAccessEntry, len(vbIDs))
	for _, e := range ra.Entries() {
		if _, ok := firstSpan[e.VBlockI]; !ok {
			firstSpan[e.VBlockI] = e
		}
	}
	out := append([]uint32(nil), vbIDs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := firstSpan[out[i]]
		b, bok := firstSpan[out[j]]
		if aok != bok {
			return aok
		}
		if !aok {
			return false
		}
		if a.ChromWordIndex != b.ChromWordIndex {
			return a.ChromWordIndex < b.ChromWordIndex
		}
		return a.MinPos < b.MinPos
	})
	return out
}

// lineSelector returns the predicate Piz applies to the global,
// post-filter line index to implement --head/--tail/--downsample, or
// nil if none were requested (spec.md §6.3). A DownsampleK,Shard pair
// keeps line i when i%K == Shard, so "3,1" and "3,0" pick disjoint
// one-third slices of the file.
func lineSelector(opts Options, total int) func(int) bool {
	switch {
	case opts.Head > 0:
		h := opts.Head
		return func(i int) bool { return i < h }
	case opts.Tail > 0:
		start := total - opts.Tail
		if start < 0 {
			start = 0
		}
		return func(i int) bool { return i >= start }
	case opts.DownsampleK > 1:
		k, shard := opts.DownsampleK, opts.DownsampleShard
		return func(i int) bool { return i%k == shard }
	default:
		return nil
	}
}
