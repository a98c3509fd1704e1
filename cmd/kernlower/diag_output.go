package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kernlower/internal/diag"
	"kernlower/internal/diagfmt"
)

type outputOptions struct {
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
}

func readOutputOptions(cmd *cobra.Command) (outputOptions, error) {
	flags := cmd.Root().PersistentFlags()
	var opts outputOptions
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return opts, fmt.Errorf("failed to get color flag: %w", err)
	}
	if opts.color, err = readColorMode(colorFlag, stderrFile(cmd)); err != nil {
		return opts, err
	}
	if opts.quiet, err = flags.GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.timings, err = flags.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.maxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return opts, nil
}

// printDiagnostics writes bag sorted and deduplicated. Info diagnostics are
// hidden with --quiet.
func printDiagnostics(w io.Writer, bag *diag.Bag, opts outputOptions) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	shown := bag
	if opts.quiet {
		shown = diag.NewBag(bag.Len())
		for _, d := range bag.Items() {
			if d.Severity > diag.SevInfo {
				shown.Add(d)
			}
		}
	}
	shown.Sort()
	shown.Dedup()
	diagfmt.Pretty(w, shown, diagfmt.PrettyOpts{
		Color:     opts.color,
		ShowNotes: true,
		Max:       opts.maxDiagnostics,
	})
}

func stderrFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		return f
	}
	return nil
}
