// Package piz implements the decompress direction of spec.md §2/§4:
// load a genozip file's catalogue, select which Variable Blocks the
// requested view needs, reconstruct each selected VB through the
// container engine in parallel, and write the result out in strict VB
// order. It is the Go analogue of encoding/pam/pamreader.go's Reader,
// generalized from "read back one fixed BAM record shape" to "replay
// an arbitrary data-type-defined container tree".
package piz

import (
	"fmt"
	"runtime"
)

// Region restricts reconstruction to one genomic span (spec.md §6.3
// --regions). Filtering happens at Variable Block granularity against
// the file's random-access index, not per line: a VB is kept if its
// recorded [MinPos,MaxPos] span for Chrom overlaps [Start,End] at all
// (see DESIGN.md's resolution of this Open Question).
type Region struct {
	Chrom string
	Start uint32
	End   uint32
}

// Options configures one Piz invocation (spec.md §6.3 piz subcommand
// flags).
type Options struct {
	// Regions restricts output to VBs overlapping any of these spans.
	// Empty means no filtering.
	Regions []Region

	// DownsampleK, if > 1, keeps only 1 line in every K (global line
	// numbering across the whole file); DownsampleShard picks which of
	// the K lines in each group survives (spec.md §6.3 --downsample
	// K,SHARD: "3,1 selects records 2,5,8,...", 0-based and distinct
	// from "3,0" which selects 1,4,7,...).
	DownsampleK     int
	DownsampleShard int

	// Head, if > 0, keeps only the first Head lines.
	Head int

	// Tail, if > 0, keeps only the last Tail lines.
	Tail int

	// OneVB, if > 0, reconstructs only that vblock_i (spec.md §6.3
	// --one-vb), together with its component's header.
	OneVB int

	// Unbind splits a multi-component file back into one output per
	// component, written to dstPath.1, dstPath.2, ... (spec.md §6.3
	// --unbind).
	Unbind bool

	// Interleave requests record-wise R1/R2 interleaving against a
	// paired (two-component) file; it fails fast when the file's stored
	// plan carries no interleave items (spec.md §6.3 --interleave).
	Interleave bool

	// Sort requests output in genomic order. Reordering happens at VB
	// granularity (by each VB's random-access [Chrom,MinPos]), not a
	// true per-line sort (see DESIGN.md).
	Sort bool

	// Test re-derives the whole-file digest while reconstructing and
	// fails the Piz call if it does not match the hash stored in the
	// GENOZIP_HEADER (spec.md §6.3 --test).
	Test bool

	// Password decrypts section bodies, if the file was encrypted.
	Password string

	// MaxThreads bounds how many VBs are reconstructed concurrently.
	// Zero selects runtime.NumCPU().
	MaxThreads int

	// Reference names the FASTA file to diff SEQ data against (spec.md
	// §6.3 --reference). Must match the file genozip was given via
	// Options.Reference at zip time; PIZ verifies this against the
	// GENOZIP_HEADER's stored digest before reconstructing.
	Reference string
}

func (o *Options) validate() error {
	if o.DownsampleK < 0 || o.DownsampleShard < 0 {
		return fmt.Errorf("piz: Options.DownsampleK/DownsampleShard must be >= 0")
	}
	if o.DownsampleK > 0 && o.DownsampleShard >= o.DownsampleK {
		return fmt.Errorf("piz: Options.DownsampleShard must be < DownsampleK")
	}
	if o.Head < 0 || o.Tail < 0 {
		return fmt.Errorf("piz: Options.Head/Tail must be >= 0")
	}
	if o.Head > 0 && o.Tail > 0 {
		return fmt.Errorf("piz: Options.Head and Options.Tail are mutually exclusive")
	}
	if o.OneVB < 0 {
		return fmt.Errorf("piz: Options.OneVB must be >= 0")
	}
	if o.Unbind && (o.Interleave || o.Sort || o.OneVB > 0 || len(o.Regions) > 0 || o.DownsampleK > 1 || o.Head > 0 || o.Tail > 0) {
		return fmt.Errorf("piz: Options.Unbind cannot be combined with filters or reordering")
	}
	return nil
}

func (o *Options) fillDefaults() {
	if o.MaxThreads <= 0 {
		o.MaxThreads = runtime.NumCPU()
	}
}
