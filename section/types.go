// Package section implements the on-disk section catalogue described
// in spec.md §3.1 and §4.1: the generic section header, its per-type
// extensions, the section type enumeration, and the section list /
// random-access index that index them. It is the Go analogue of
// encoding/pam/pamutil (FileInfo/ParsePath/ShardIndex) and
// encoding/pam/fieldio's block header, generalized from "one PAM
// rowshard directory" to "one genozip section stream".
package section

import "fmt"

// Magic is the fixed 4-byte value at the start and end of every
// genozip file (spec.md §6.1, §6.2).
const Magic uint32 = 0x27052012

// Type enumerates the section kinds, numbered the same way
// original_source/sections.h numbers them (the numbering is part of
// the on-disk contract and must never be renumbered across versions,
// per spec.md §9 "Polymorphism").
type Type uint8

const (
	TypeRandomAccess Type = iota
	TypeAliases
	TypeReference
	TypeRefIsSet
	TypeRefHash
	TypeReconPlan
	TypeCounts
	TypeTxtHeader
	TypeVBHeader
	TypeGenozipHeader
	TypeDict
	TypeB250
	TypeLocal
	TypeSectionList

	numTypes
)

var typeNames = [...]string{
	"RANDOM_ACCESS", "ALIASES", "REFERENCE", "REF_IS_SET", "REF_HASH",
	"RECON_PLAN", "COUNTS", "TXT_HEADER", "VB_HEADER", "GENOZIP_HEADER",
	"DICT", "B250", "LOCAL", "SECTION_LIST",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Valid reports whether t is a known section type.
func (t Type) Valid() bool { return t < numTypes }

// CodecID names the primary or secondary codec a section body was
// compressed with (spec.md §4.7). The registry living in package codec
// is keyed by this type; kept here (rather than in codec) because the
// section header needs it and codec depends on section, not the other
// way around.
type CodecID uint8

const (
	CodecNone CodecID = iota
	CodecFlate
	CodecZstd
	CodecSnappy
	CodecACGT
	CodecBSCLZP
	CodecRANS
	CodecInvalid CodecID = 0xff
)

// Flags is the one-byte, section-type-specific flags field of the
// generic header (spec.md §4.1, §6.2).
type Flags uint8

const (
	// FlagIsReference marks a genozip header section whose file is
	// itself usable as a --reference (spec.md §D, sections.h
	// SEC_FLAG_GENOZIP_HEADER_IS_REFERENCE).
	FlagIsReference Flags = 1 << 0
	// FlagPaired marks a context whose b250/local alternates between
	// R1 and R2 records in paired FASTQ.
	FlagPaired Flags = 1 << 1
	// FlagAllTheSame marks a b250 section containing exactly one
	// logical element used for every row of the VB (spec.md §3.2).
	FlagAllTheSame Flags = 1 << 2
	// FlagStorePerLine marks a context that writes to history on every
	// line, for buddy/mate lookups (spec.md §4.5).
	FlagStorePerLine Flags = 1 << 3
)
