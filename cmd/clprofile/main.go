// clprofile summarizes profile log lines. It reads name=value pairs
// from stdin or from the files given on the command line and prints
// per-mark statistics.
//
//	grep 'profile' app.log | clprofile
//	clprofile app.log app.log.1
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/svckit/svckit/profile"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [file ...]\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Summarizes profile log lines from files or stdin.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Args(), os.Stdout); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "clprofile:", err)
		os.Exit(1)
	}
}

func run(paths []string, out io.Writer) error {
	header := color.New(color.FgCyan, color.Bold)

	if len(paths) == 0 {
		header.Fprintln(out, "profile report (stdin)")
		return profile.Report(os.Stdin, out)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		header.Fprintf(out, "profile report: %s\n", path)
		err = profile.Report(f, out)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
