package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/divonlan/genozip-go/gzfile"
	"github.com/divonlan/genozip-go/piz"
)

func newCmdPiz() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "piz",
		Short:    "Decompress a genozip file back to text",
		ArgsName: "srcpath dstpath",
	}
	regionsFlag := cmd.Flags.String("regions", "", `Comma-separated list of chrom:start-end spans to restrict output to`)
	downsample := cmd.Flags.String("downsample", "", "Keep 1 line in every K, as \"K\" or \"K,SHARD\" (shard defaults to 0)")
	head := cmd.Flags.Int("head", 0, "Keep only the first N lines")
	tail := cmd.Flags.Int("tail", 0, "Keep only the last N lines")
	oneVB := cmd.Flags.Int("one-vb", 0, "Reconstruct only this vblock_i (with its component's header)")
	unbind := cmd.Flags.Bool("unbind", false, "Split a multi-component file into one output per component (dstpath.1, dstpath.2, ...)")
	interleave := cmd.Flags.Bool("interleave", false, "Interleave R1/R2 records (requires a paired file)")
	sortFlag := cmd.Flags.Bool("sort", false, "Reorder output in genomic order")
	test := cmd.Flags.Bool("test", false, "Verify the whole-file digest instead of writing dstpath")
	password := cmd.Flags.String("password", "", "Decrypt section bodies with this password")
	threads := cmd.Flags.Int("threads", 0, "Max concurrent VB reconstructions (0 selects runtime.NumCPU())")
	reference := cmd.Flags.String("reference", "", "FASTA file this genozip file was compressed against")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("piz takes srcpath dstpath, but found %v", argv)
		}
		regions, err := parseRegions(*regionsFlag)
		if err != nil {
			return err
		}
		k, shard, err := parseDownsample(*downsample)
		if err != nil {
			return err
		}
		opts := gzfile.PizOptions{
			Regions:         regions,
			DownsampleK:     k,
			DownsampleShard: shard,
			Head:            *head,
			Tail:            *tail,
			OneVB:           *oneVB,
			Unbind:          *unbind,
			Interleave:      *interleave,
			Sort:            *sortFlag,
			Test:            *test,
			Password:        *password,
			MaxThreads:      *threads,
			Reference:       *reference,
		}
		stats, err := gzfile.Piz(argv[0], argv[1], opts)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d lines reconstructed from %d VB(s)\n", argv[1], stats.NumLines, stats.NumVBs)
		return nil
	})
	return cmd
}

// parseRegions parses the --regions flag's "chrom:start-end,chrom:start-end"
// form (spec.md §6.3 --regions).
func parseRegions(s string) ([]piz.Region, error) {
	if s == "" {
		return nil, nil
	}
	var out []piz.Region
	for _, part := range strings.Split(s, ",") {
		chromPos := strings.SplitN(part, ":", 2)
		if len(chromPos) != 2 {
			return nil, fmt.Errorf("piz: --regions: %q is not chrom:start-end", part)
		}
		span := strings.SplitN(chromPos[1], "-", 2)
		if len(span) != 2 {
			return nil, fmt.Errorf("piz: --regions: %q is not chrom:start-end", part)
		}
		start, err := strconv.ParseUint(span[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("piz: --regions: %q: %w", part, err)
		}
		end, err := strconv.ParseUint(span[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("piz: --regions: %q: %w", part, err)
		}
		out = append(out, piz.Region{Chrom: chromPos[0], Start: uint32(start), End: uint32(end)})
	}
	return out, nil
}

// parseDownsample parses the --downsample flag's "K" or "K,SHARD" form
// (spec.md §6.3 --downsample: "3,1 selects records 2,5,8,...", distinct
// from the bare "3" / "3,0" form that selects 1,4,7,...).
func parseDownsample(s string) (k, shard int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(s, ",", 2)
	if k, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("piz: --downsample: %q: %w", s, err)
	}
	if len(parts) == 2 {
		if shard, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("piz: --downsample: %q: %w", s, err)
		}
	}
	return k, shard, nil
}
