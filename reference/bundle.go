package reference

import "github.com/divonlan/genozip-go/refhash"

// Bundle is what zip/piz attach to a zcontext.Table's Aux field once
// --reference is given: the genome itself plus its k-mer seed index,
// built once per file rather than once per VB (spec.md §4.6).
type Bundle struct {
	Genome *Genome
	Hash   *refhash.Table
}

// Load reads path as FASTA and builds its k-mer index in one step.
func Load(path string) (*Bundle, error) {
	g, err := LoadFASTA(path)
	if err != nil {
		return nil, err
	}
	return &Bundle{Genome: g, Hash: g.BuildKmerIndex()}, nil
}
