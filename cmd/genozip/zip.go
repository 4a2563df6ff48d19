package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/divonlan/genozip-go/digest"
	"github.com/divonlan/genozip-go/gzfile"
)

func newCmdZip() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "zip",
		Short:    "Compress a text file into a genozip file",
		ArgsName: "srcpath dstpath",
	}
	dataType := cmd.Flags.String("data-type", "generic", "Registered data type to segment with (generic, fasta, sam)")
	vbSize := cmd.Flags.Int("vblock-size", 0, "Target bytes per Variable Block (0 selects the built-in default)")
	threads := cmd.Flags.Int("threads", 0, "Max concurrent Variable Blocks (0 selects runtime.NumCPU())")
	password := cmd.Flags.String("password", "", "Encrypt section bodies with this password")
	md5 := cmd.Flags.Bool("md5", false, "Compute an MD5 whole-file digest (the default)")
	adler := cmd.Flags.Bool("adler", false, "Compute an Adler32 whole-file digest instead of MD5")
	test := cmd.Flags.Bool("test", false, "Decompress immediately after compressing and verify the digest matches")
	reference := cmd.Flags.String("reference", "", "FASTA file to diff SEQ data against")
	pair := cmd.Flags.String("pair", "", "Second input file (mate2); srcpath/dstpath become mate1/paired-output")
	created := cmd.Flags.String("created", "", "Value to store in the file's Created field instead of leaving it blank")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("zip takes srcpath dstpath, but found %v", argv)
		}
		opts := gzfile.ZipOptions{
			DataType:   *dataType,
			VBSize:     *vbSize,
			MaxThreads: *threads,
			Password:   *password,
			Test:       *test,
			Reference:  *reference,
			Created:    *created,
		}
		if *md5 && *adler {
			return fmt.Errorf("zip: --md5 and --adler are mutually exclusive")
		}
		if *md5 {
			opts.Digest = digest.AlgorithmMD5
		}
		if *adler {
			opts.Digest = digest.AlgorithmAdler32
		}
		if *pair != "" {
			pstats, err := gzfile.ZipPaired([]string{argv[0], *pair}, argv[1], opts)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d lines, %d -> %d bytes (paired)\n", argv[1], pstats.NumLines, pstats.UncompressedSize, pstats.CompressedSize)
			return nil
		}
		zstats, err := gzfile.Zip(argv[0], argv[1], opts)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d lines, %d -> %d bytes\n", argv[1], zstats.NumLines, zstats.UncompressedSize, zstats.CompressedSize)
		return nil
	})
	return cmd
}
