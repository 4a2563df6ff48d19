package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/divonlan/genozip-go/gzfile"
)

func newCmdLs() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "ls",
		Short:    "Show summary metadata for one or more genozip files, without decompressing",
		ArgsName: "<genozip file>...",
	}
	password := cmd.Flags.String("password", "", "Password, if the listed file(s) are encrypted")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("ls takes one or more genozip file paths")
		}
		for _, path := range argv {
			info, err := gzfile.List(path, *password)
			if err != nil {
				return err
			}
			fmt.Printf("%s\tdata_type=%d\tlines=%d\tvblocks=%d\tdigest=%s\n",
				path, info.DataType, info.NumLines, info.NumVBs, info.DigestAlg)
		}
		return nil
	})
	return cmd
}
