package reference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadFASTA reads a reference FASTA file from path and returns a
// finalized Genome (spec.md §4.6, §6.3 --reference). Contig names are
// taken from the first whitespace-delimited token after '>', matching
// samtools faidx's convention; ChromWordIndex is assigned in file
// order since no datatype plugin's CHROM dictionary exists yet at
// reference-load time.
func LoadFASTA(path string) (*Genome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reference: open %s: %w", path, err)
	}
	defer f.Close() // nolint: errcheck

	g := NewGenome()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var cur *Range
	var chromIdx uint32
	var pos uint64
	flush := func() error {
		if cur != nil {
			if err := g.AddRange(cur); err != nil {
				return err
			}
		}
		return nil
	}
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			name := strings.Fields(strings.TrimPrefix(line, ">"))
			chrom := ""
			if len(name) > 0 {
				chrom = name[0]
			}
			cur = NewRange(chrom, chromIdx, 1, 0)
			chromIdx++
			pos = 0
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("reference: %s: sequence data before any '>' header", path)
		}
		for i := 0; i < len(line); i++ {
			b := line[i]
			if b == 'N' || b == 'n' {
				cur.PutGap()
			} else {
				cur.PutBase(b)
			}
			pos++
		}
		cur.LastPos = pos
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reference: %s: %w", path, err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	g.Finalize()
	return g, nil
}
