// Package zip implements the compress direction of spec.md §2/§4: read
// the original text, split it into Variable Blocks, segment each VB
// in parallel into the context engine, merge every VB's dictionary
// fragment into the file-global table in strict VB order, and write
// the resulting sections to a genozip file. It is the Go analogue of
// encoding/pam/pamwriter.go's Writer, generalized from "one fixed BAM
// record shape written to per-field blocks" to "an arbitrary,
// data-type-defined set of contexts written to per-context sections".
package zip

import (
	"fmt"
	"runtime"

	"github.com/divonlan/genozip-go/digest"
)

// DefaultVBSize is the target number of source bytes per Variable
// Block when Options.VBSize is left at zero (spec.md §3.3).
const DefaultVBSize = 16 << 20

// Options configures one Zip invocation (spec.md §6.3 zip subcommand
// flags), the same role pam.WriteOpts plays for one PAM write.
type Options struct {
	// DataType names the registered datatype.Plugin to segment with
	// (e.g. "generic", "fasta", "sam").
	DataType string

	// VBSize is the target number of source bytes per Variable Block.
	// Zero selects DefaultVBSize.
	VBSize int

	// MaxThreads bounds how many VBs are segmented concurrently. Zero
	// selects runtime.NumCPU().
	MaxThreads int

	// Password, if non-empty, enables section-body encryption keyed
	// from it (spec.md §4.8).
	Password string

	// Digest selects the whole-file digest algorithm (spec.md §6.4).
	// AlgorithmNone selects the MD5 default. This package only ever
	// computes the digest; package piz verifies it on reconstruction.
	Digest digest.Algorithm

	// Reference, if non-empty, names a FASTA file (spec.md §6.3
	// --reference) to load and diff SEQ data against; its per-contig
	// digest is stored in the GENOZIP_HEADER for piz-side cross-check.
	Reference string

	// Created, if non-empty, is copied verbatim into the GENOZIP_HEADER
	// in place of a wall-clock timestamp (spec.md §8 "Deterministic
	// output": repeated zip(T) runs must byte-for-byte agree, which
	// sampling time.Now() would break). Left at its zero value when
	// unset, which is itself deterministic.
	Created string
}

// validate reports an error for a field that cannot be defaulted.
func (o *Options) validate() error {
	if o.DataType == "" {
		return fmt.Errorf("zip: Options.DataType is required")
	}
	return nil
}

// fillDefaults replaces zero-valued optional fields with their
// defaults, the same validate/fillDefaults split pamwriter.go uses for
// pam.WriteOpts.
func (o *Options) fillDefaults() {
	if o.VBSize <= 0 {
		o.VBSize = DefaultVBSize
	}
	if o.MaxThreads <= 0 {
		o.MaxThreads = runtime.NumCPU()
	}
	if o.Digest == digest.AlgorithmNone {
		o.Digest = digest.AlgorithmMD5
	}
}
