// Package gzfile is the top-level entry point the CLI (and any other
// embedder) drives: it wraps package zip and package piz behind a
// single pair of option structs matching spec.md §6.3's zip/piz/test
// flags, the same validate+fill option-struct pattern
// encoding/pam/pamwriter.go's WriteOpts and pamreader.go's ReadOpts
// use for PAM's own top-level Read/Write entry points.
package gzfile

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/divonlan/genozip-go/digest"
	"github.com/divonlan/genozip-go/piz"
	"github.com/divonlan/genozip-go/section"
	"github.com/divonlan/genozip-go/zip"
)

// ZipOptions configures one compress call (spec.md §6.3 zip flags).
type ZipOptions struct {
	DataType   string
	VBSize     int
	MaxThreads int
	Password   string
	Digest     digest.Algorithm

	// Reference names a FASTA file to diff SEQ data against (spec.md
	// §6.3 --reference).
	Reference string

	// Created, if non-empty, replaces the GENOZIP_HEADER's timestamp
	// with this caller-supplied value instead of leaving it blank
	// (spec.md §8 "Deterministic output").
	Created string

	// Test re-decompresses the freshly written file and compares its
	// digest against the one just computed, failing loudly on mismatch
	// rather than trusting a single write path (spec.md §6.3 zip --test).
	Test bool
}

func (o ZipOptions) toZip() zip.Options {
	return zip.Options{
		DataType:   o.DataType,
		VBSize:     o.VBSize,
		MaxThreads: o.MaxThreads,
		Password:   o.Password,
		Digest:     o.Digest,
		Reference:  o.Reference,
		Created:    o.Created,
	}
}

// Zip compresses srcPath to dstPath (spec.md §6.3 "genozip").
func Zip(srcPath, dstPath string, opts ZipOptions) (zip.Stats, error) {
	zopts := opts.toZip()
	if opts.Test && zopts.Digest == digest.AlgorithmNone {
		zopts.Digest = digest.AlgorithmMD5
	}
	stats, err := zip.Zip(srcPath, dstPath, zopts)
	if err != nil {
		return zip.Stats{}, err
	}
	if opts.Test {
		if err := verifyRoundTrip(dstPath, opts.Password, opts.Reference, opts.MaxThreads); err != nil {
			return zip.Stats{}, err
		}
	}
	return stats, nil
}

// ZipPaired compresses exactly two source files as one paired genozip
// file (spec.md §4.9, §6.3 --pair).
func ZipPaired(srcPaths []string, dstPath string, opts ZipOptions) (zip.Stats, error) {
	zopts := opts.toZip()
	if opts.Test && zopts.Digest == digest.AlgorithmNone {
		zopts.Digest = digest.AlgorithmMD5
	}
	stats, err := zip.ZipPaired(srcPaths, dstPath, zopts)
	if err != nil {
		return zip.Stats{}, err
	}
	if opts.Test {
		if err := verifyRoundTrip(dstPath, opts.Password, opts.Reference, opts.MaxThreads); err != nil {
			return zip.Stats{}, err
		}
	}
	return stats, nil
}

func verifyRoundTrip(dstPath, password, reference string, maxThreads int) error {
	scratch, serr := ioutil.TempFile("", "genozip-test-*")
	if serr != nil {
		return fmt.Errorf("gzfile: %s: zip --test: %w", dstPath, serr)
	}
	scratchPath := scratch.Name()
	scratch.Close()              // nolint: errcheck
	defer os.Remove(scratchPath) // nolint: errcheck
	_, err := piz.Piz(dstPath, scratchPath, piz.Options{Password: password, Reference: reference, Test: true, MaxThreads: maxThreads})
	if err != nil {
		return fmt.Errorf("gzfile: %s: zip --test: round-trip verification failed: %w", dstPath, err)
	}
	return nil
}

// PizOptions configures one decompress call (spec.md §6.3 piz flags).
type PizOptions struct {
	Regions         []piz.Region
	DownsampleK     int
	DownsampleShard int
	Head            int
	Tail            int
	OneVB           int
	Unbind          bool
	Interleave      bool
	Sort            bool
	Test            bool
	Password        string
	MaxThreads      int

	// Reference names the FASTA file this file was compressed against
	// (spec.md §6.3 --REFERENCE).
	Reference string
}

func (o PizOptions) toPiz() piz.Options {
	return piz.Options{
		Regions:         o.Regions,
		DownsampleK:     o.DownsampleK,
		DownsampleShard: o.DownsampleShard,
		Head:            o.Head,
		Tail:            o.Tail,
		OneVB:           o.OneVB,
		Unbind:          o.Unbind,
		Interleave:      o.Interleave,
		Sort:            o.Sort,
		Test:            o.Test,
		Password:        o.Password,
		MaxThreads:      o.MaxThreads,
		Reference:       o.Reference,
	}
}

// Piz decompresses srcPath to dstPath (spec.md §6.3 "genounzip").
func Piz(srcPath, dstPath string, opts PizOptions) (piz.Stats, error) {
	return piz.Piz(srcPath, dstPath, opts.toPiz())
}

// List loads just srcPath's catalogue and reports summary metadata
// (spec.md §6.3 "genols"), without reconstructing any VB.
type ListInfo struct {
	DataType   uint16
	NumLines   uint64
	NumVBs     int
	Compressed bool
	DigestAlg  digest.Algorithm
}

func List(srcPath, password string) (ListInfo, error) {
	l, err := piz.Load(srcPath, password)
	if err != nil {
		return ListInfo{}, err
	}
	return ListInfo{
		DataType:   l.Header.DataType,
		NumLines:   l.NumLines,
		NumVBs:     len(l.List.ByType(section.TypeVBHeader)),
		Compressed: true,
		DigestAlg:  digest.Algorithm(l.Header.DigestAlg),
	}, nil
}
