package zip

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"

	"github.com/divonlan/genozip-go/codec"
	"github.com/divonlan/genozip-go/crypto"
	"github.com/divonlan/genozip-go/datatype"
	"github.com/divonlan/genozip-go/digest"
	"github.com/divonlan/genozip-go/gzpb"
	"github.com/divonlan/genozip-go/reference"
	"github.com/divonlan/genozip-go/section"
	"github.com/divonlan/genozip-go/vb"
	"github.com/divonlan/genozip-go/zcontext"
)

// Stats summarizes one completed Zip call.
type Stats struct {
	NumLines         uint64
	UncompressedSize uint64
	CompressedSize   uint64
}

// Zip reads srcPath, segments it under opts.DataType's registered
// plugin, and writes a genozip file to dstPath (spec.md §2, §4, §6.3).
// It is a single-component call to zipComponents; see ZipPaired for
// the two-file (mate1/mate2) form.
func Zip(srcPath, dstPath string, opts Options) (Stats, error) {
	return zipComponents([]string{srcPath}, dstPath, opts)
}

// ZipPaired reads exactly two source files — e.g. FASTQ mate1/mate2 —
// and writes them as the two components of one genozip file (spec.md
// §4.9 "multi-component files", §6.3 --pair), so a later `piz
// --interleave` can reconstruct them as alternating mate1/mate2
// records (spec.md §8 "Interleave idempotence"). The PlanInterleave
// items that --interleave needs are written only when the two files
// chunk into the same number of VBs; otherwise buildPlan lists every
// VB as its own PlanFullVB item.
func ZipPaired(srcPaths []string, dstPath string, opts Options) (Stats, error) {
	if len(srcPaths) != 2 {
		return Stats{}, fmt.Errorf("zip: ZipPaired requires exactly 2 input files, got %d", len(srcPaths))
	}
	return zipComponents(srcPaths, dstPath, opts)
}

// component records the absolute VBlockI range one source file
// occupies in the output, so writeGlobalSections can build the
// reconstruction plan without re-deriving it from the section list.
type component struct {
	firstVBlockI uint32
	numVBs       int
}

// zipComponents drives the whole pipeline described atop Zip for one
// or more source files: a single-threaded read of each one in turn, a
// pool-bounded fan-out of its VBs into the segmenter (spec.md §5
// "bounded in-flight VBs"), and a single ordered writer goroutine per
// component that merges each VB's dictionary fragment into the
// file-global table, chooses its b250 encoding, compresses and
// (optionally) encrypts every section and appends it to the file —
// all inside the same goroutine that already drains VBs in strictly
// ascending vblock_i order, so the "word_index assigned in later VBs
// always exceeds earlier ones" invariant (spec.md §4.2) falls out for
// free rather than needing a second synchronization point. VBlockI
// counts up continuously across components rather than restarting at
// each one, so every VB in the file has a file-unique index.
func zipComponents(srcPaths []string, dstPath string, opts Options) (Stats, error) {
	if err := opts.validate(); err != nil {
		return Stats{}, err
	}
	opts.fillDefaults()

	plugin, ok := datatype.Get(opts.DataType)
	if !ok {
		return Stats{}, fmt.Errorf("zip: unknown data type %q", opts.DataType)
	}

	var bundle *reference.Bundle
	var refDigest [16]byte
	if opts.Reference != "" {
		b, err := reference.Load(opts.Reference)
		if err != nil {
			return Stats{}, fmt.Errorf("zip: %w", err)
		}
		bundle = b
		refDigest = b.Genome.Digest()
	}

	ctx := vcontext.Background()
	sw := newSectionWriter(opts.Password)
	global := zcontext.NewTable()
	global.Aux = bundle
	dig := digest.New(opts.Digest)
	var quick digest.QuickCheck

	var totalLines, totalUncompressed uint64
	vblockI := uint32(0)
	comps := make([]component, len(srcPaths))

	for compI, srcPath := range srcPaths {
		in, err := file.Open(ctx, srcPath)
		if err != nil {
			return Stats{}, fmt.Errorf("zip: open %s: %w", srcPath, err)
		}
		data, err := ioutil.ReadAll(in.Reader(ctx))
		in.Close(ctx) // nolint: errcheck
		if err != nil {
			return Stats{}, fmt.Errorf("zip: read %s: %w", srcPath, err)
		}

		headerLen := plugin.HeaderLen(data)
		txtHeaderBytes, err := plugin.SegTxtHeader(data[:headerLen])
		if err != nil {
			return Stats{}, fmt.Errorf("zip: SegTxtHeader: %w", err)
		}
		body := data[headerLen:]
		chunks := chunkVBs(body, opts.VBSize, plugin)
		n := len(chunks)
		log.Printf("zip: %s: %d bytes, %d VB(s), data type %s", srcPath, len(body), n, opts.DataType)

		if _, err := sw.appendTxtHeader(uint32(compI), section.TxtHeader{
			TxtDataSize: uint64(len(body)),
			NumLines:    section.NumLinesUnknown,
		}, txtHeaderBytes, textCandidates); err != nil {
			return Stats{}, err
		}

		firstVBlockI := vblockI + 1
		compLines, err := zipOneComponent(sw, global, plugin, dig, &quick, uint32(compI), firstVBlockI, chunks, opts.MaxThreads)
		if err != nil {
			return Stats{}, err
		}

		comps[compI] = component{firstVBlockI: firstVBlockI, numVBs: n}
		vblockI += uint32(n)
		totalLines += compLines
		totalUncompressed += uint64(len(body))
	}

	if err := writeGlobalSections(sw, opts, plugin, dig, totalLines, totalUncompressed, comps, refDigest); err != nil {
		return Stats{}, err
	}

	out, err := file.Create(ctx, dstPath)
	if err != nil {
		return Stats{}, fmt.Errorf("zip: create %s: %w", dstPath, err)
	}
	if _, err := out.Writer(ctx).Write(sw.bytes()); err != nil {
		out.Close(ctx) // nolint: errcheck
		return Stats{}, fmt.Errorf("zip: write %s: %w", dstPath, err)
	}
	if err := out.Close(ctx); err != nil {
		return Stats{}, fmt.Errorf("zip: close %s: %w", dstPath, err)
	}

	return Stats{
		NumLines:         totalLines,
		UncompressedSize: totalUncompressed,
		CompressedSize:   uint64(len(sw.bytes())),
	}, nil
}

// zipOneComponent fans chunks out to opts.MaxThreads segmenters and
// drains their results, in VB order, through finalizeVB. VBlockI
// values run from firstVBlockI up, so a multi-component file's second
// and later components continue the file-wide VBlockI sequence rather
// than restarting at 1.
func zipOneComponent(sw *sectionWriter, global *zcontext.Table, plugin datatype.Plugin, dig *digest.Digest, quick *digest.QuickCheck, compI, firstVBlockI uint32, chunks [][]byte, maxThreads int) (uint64, error) {
	n := len(chunks)
	pool := vb.NewPool(maxThreads)
	results := make(map[uint32]*vb.VB, pool.Capacity())
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	var firstErr error
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cond.Broadcast()
	}

	var compLines uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		nextLine := uint32(0)
		for next := firstVBlockI; next < firstVBlockI+uint32(n); next++ {
			mu.Lock()
			for results[next] == nil && firstErr == nil {
				cond.Wait()
			}
			v := results[next]
			delete(results, next)
			mu.Unlock()
			if v == nil {
				return
			}
			v.FirstLine = nextLine
			if ferr := finalizeVB(sw, global, v, plugin, dig, quick); ferr != nil {
				setErr(ferr)
				return
			}
			nextLine += uint32(v.NumLines)
			compLines += uint64(v.NumLines)
			pool.Put(v)
		}
	}()

	segErr := traverse.Each(n, func(i int) error {
		v := pool.Get()
		v.Reset(firstVBlockI+uint32(i), compI, 0)
		v.Table.Aux = global.Aux
		v.TxtData = append(v.TxtData[:0], chunks[i]...)
		numLines, err := plugin.SegVB(v.Table, v.TxtData)
		if err != nil {
			pool.Put(v)
			setErr(err)
			return fmt.Errorf("zip: VB %d: %w", firstVBlockI+uint32(i), err)
		}
		v.NumLines = numLines
		mu.Lock()
		results[firstVBlockI+uint32(i)] = v
		mu.Unlock()
		cond.Broadcast()
		return nil
	})
	<-done
	if firstErr != nil {
		return 0, firstErr
	}
	if segErr != nil {
		return 0, segErr
	}
	return compLines, nil
}

// finalizeVB merges one completed VB's contexts into the file-global
// table, then prepares and commits its sections: its dictionary
// fragments, b250 and local streams, and finally its own VB_HEADER
// (spec.md §4.2, §4.4). It runs only inside the per-component writer
// goroutine, so every call sees VBs in strictly ascending vblock_i
// order.
func finalizeVB(sw *sectionWriter, global *zcontext.Table, v *vb.VB, plugin datatype.Plugin, dig *digest.Digest, quick *digest.QuickCheck) error {
	// The VB_HEADER is written first on disk but built last; its
	// encryption slot must be slot 0 of this VB so the per-section key
	// counters line up with the file order PIZ replays (spec.md §4.8).
	sw.reserveSlot(v.VBlockI)

	ctxs := sortedContexts(v.Table)
	var prepared []preparedSection

	for _, local := range ctxs {
		remap, newWords := global.MergeFrom(local)
		local.RemapPending(remap)
		globalCtx := global.Get(local.DictID)
		enc := globalCtx.ChooseEncoding()

		var flags section.Flags
		if local.PendingAllTheSame() {
			local.TruncatePending(1)
			flags |= section.FlagAllTheSame
		}
		if local.StorePerLine {
			flags |= section.FlagStorePerLine
		}

		if len(newWords) > 0 {
			ps, err := sw.prepareDict(v.VBlockI, local.DictID, globalCtx.Dict.Len(), newWords, textCandidates)
			if err != nil {
				return err
			}
			prepared = append(prepared, ps)
		}

		local.FlushB250(enc)
		if len(local.B250Bytes()) > 0 {
			ps, err := sw.prepareCtx(v.VBlockI, section.TypeB250, local.DictID, zcontext.LTypeNone, local.B250Bytes(), textCandidates, flags)
			if err != nil {
				return err
			}
			prepared = append(prepared, ps)
		}

		if local.Local.Len() > 0 {
			ps, err := sw.prepareCtx(v.VBlockI, section.TypeLocal, local.DictID, local.Local.LType, local.Local.Bytes(), localCandidates(local.Local.LType), 0)
			if err != nil {
				return err
			}
			prepared = append(prepared, ps)
		}
	}

	// The plugin reports its VB's chromosome as text; the on-disk entry
	// wants the merged global word index, which only exists post-merge.
	if info, ok := plugin.RandomAccess(v.Table); ok {
		if gctx := global.Get(plugin.ChromDictID()); gctx != nil {
			if widx, found := gctx.Dict.Lookup(info.Chrom); found {
				sw.ra.Append(gzpb.RandomAccessEntry{VBlockI: v.VBlockI, ChromWordIndex: widx, MinPos: info.MinPos, MaxPos: info.MaxPos})
			}
		}
	}

	if err := dig.Update(v.VBlockI, v.TxtData); err != nil {
		return err
	}
	quick.Add(v.VBlockI, v.TxtData)
	snap, err := dig.Finalize()
	if err == nil {
		v.DigestSoFar = snap
	}

	zDataBytes := 0
	for _, ps := range prepared {
		zDataBytes += ps.size()
	}
	vh := section.VBHeader{
		H:            section.Header{VBlockI: v.VBlockI},
		FirstLine:    v.FirstLine,
		NumLines:     uint32(v.NumLines),
		VBDataSize:   uint32(len(v.TxtData)),
		ZDataBytes:   uint32(zDataBytes),
		MD5HashSoFar: section.Md5Hash(v.DigestSoFar),
	}
	sw.appendVBHeader(v.CompI, vh)
	for _, ps := range prepared {
		sw.commit(ps)
	}
	return nil
}

// writeGlobalSections appends every file-level finalize section:
// RANDOM_ACCESS, RECON_PLAN, COUNTS, the GENOZIP_HEADER (now that
// final stats are known), SECTION_LIST and FOOTER (spec.md §4.4,
// §4.9). GENOZIP_HEADER is discoverable via the footer rather than
// living at a fixed offset, the same indexed-from-the-end layout
// real genozip files use (see DESIGN.md's resolution of §4.4 vs.
// §6.1's simplified diagram).
func writeGlobalSections(sw *sectionWriter, opts Options, plugin datatype.Plugin, dig *digest.Digest, totalLines, uncompressedSize uint64, comps []component, refDigest [16]byte) error {
	sw.ra.Sort()
	ps, err := sw.preparePlain(0, section.TypeRandomAccess, sw.ra.Marshal(), textCandidates, 0)
	if err != nil {
		return err
	}
	sw.commit(ps)

	plan := buildPlan(sw, comps)
	ps, err = sw.preparePlain(0, section.TypeReconPlan, plan.Marshal(), textCandidates, 0)
	if err != nil {
		return err
	}
	sw.commit(ps)

	var countsBuf [8]byte
	binary.BigEndian.PutUint64(countsBuf[:], totalLines)
	ps, err = sw.preparePlain(0, section.TypeCounts, countsBuf[:], textCandidates, 0)
	if err != nil {
		return err
	}
	sw.commit(ps)

	finalHash, err := dig.Finalize()
	if err != nil {
		return fmt.Errorf("zip: digest: %w", err)
	}

	var passwordTest [crypto.PasswordTestSize]byte
	var encType uint8
	if opts.Password != "" {
		encType = 1
		passwordTest, err = crypto.MakePasswordTest(opts.Password)
		if err != nil {
			return err
		}
	}

	g := section.GenozipHeader{
		GenozipVersion:   1,
		EncryptionType:   encType,
		DataType:         plugin.DataType(),
		UncompressedSize: uncompressedSize,
		NumItemsBound:    totalLines,
		NumSections:      uint32(sw.list.Len() + 2),
		NumComponents:    uint32(len(comps)),
		MD5HashBound:     section.Md5Hash(finalHash),
		PasswordTest:     passwordTest,
		DigestAlg:        uint8(opts.Digest),
	}
	// Created is left at its zero value unless the caller supplies one
	// (spec.md §8 "Deterministic output": zip(T) must produce identical
	// bytes across repeated runs, which wall-clock sampling would break).
	if opts.Created != "" {
		copy(g.Created[:], opts.Created)
	}
	if opts.Reference != "" {
		copy(g.RefFilename[:], opts.Reference)
		g.RefFileMD5 = section.Md5Hash(refDigest)
	}
	ghOffset := sw.appendGenozipHeader(g)

	slBody := sw.list.Marshal()
	codecID, compressed, err := codec.SelectBest(slBody, textCandidates)
	if err != nil {
		return err
	}
	slBodyEnc, slEncLen, err := sw.encryptBody(0, compressed)
	if err != nil {
		return err
	}
	slHeader := sw.genericHeader(0, section.TypeSectionList, 0, codecID, compressed, len(slBody), slEncLen)
	sw.w.Append(slHeader, slBodyEnc)

	footer := section.Footer{GenozipHeaderOffset: ghOffset, Magic: section.Magic}
	sw.w.AppendRaw(footer.Marshal(), nil)
	return nil
}

// buildPlan synthesizes the file's reconstruction plan: one
// PlanTxtHeader per component, then either one PlanInterleave item per
// VB pair (exactly two same-sized components — spec.md §4.9 "paired
// files") or, for any other component count, one PlanFullVB per VB in
// storage order. PIZ's --interleave only ever succeeds against a
// two-component file whose plan already carries PlanInterleave items;
// see piz.planSteps.
func buildPlan(sw *sectionWriter, comps []component) section.Plan {
	var plan section.Plan
	for compI := range comps {
		plan.Append(gzpb.ReconPlanItem{Op: gzpb.PlanTxtHeader, CompI: uint32(compI)})
	}

	if len(comps) == 2 && comps[0].numVBs == comps[1].numVBs {
		for i := 0; i < comps[0].numVBs; i++ {
			plan.Append(gzpb.ReconPlanItem{
				Op:       gzpb.PlanInterleave,
				VBlockI:  comps[0].firstVBlockI + uint32(i),
				VBlockI2: comps[1].firstVBlockI + uint32(i),
			})
		}
		return plan
	}

	for _, e := range sw.list.ByType(section.TypeVBHeader) {
		plan.Append(gzpb.ReconPlanItem{Op: gzpb.PlanFullVB, CompI: e.CompI, VBlockI: e.VBlockI})
	}
	return plan
}
