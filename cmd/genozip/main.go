// Command genozip is the CLI entry point for compressing, decompressing
// and inspecting genozip containers (spec.md §6.3), following
// cmd/bio-pamtool/cmd/main.go's cmdline.Command tree pattern.
package main

import (
	"log"

	"v.io/x/lib/cmdline"

	// Register the built-in data types.
	_ "github.com/divonlan/genozip-go/datatype/generic"
	_ "github.com/divonlan/genozip-go/datatype/samplugin"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "genozip",
			Short:    "Compress, decompress and inspect genozip container files",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdZip(),
				newCmdPiz(),
				newCmdLs(),
			},
		})
}
