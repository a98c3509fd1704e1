package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kernlower/internal/driver"
	"kernlower/internal/observ"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <file.ll>...",
	Short: "Lower array-handle functions in .ll files to GPU kernels",
	Long: `Lower every function of each input: handle parameters become raw pointers,
decode chains collapse to one getelementptr, calls are retargeted to canonical
names and every function is listed in the kernel descriptor tables.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLower,
}

func init() {
	lowerCmd.Flags().StringP("output", "o", "", "output file for a single input (\"-\" for stdout)")
	lowerCmd.Flags().String("out-dir", "lowered", "directory receiving <name>.ll per input")
	lowerCmd.Flags().String("emit", "llvm", "output format (llvm|kir)")
	lowerCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	lowerCmd.Flags().Bool("no-cache", false, "disable the on-disk cache of lowered outputs")
	lowerCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	addLoweringFlags(lowerCmd)
}

func runLower(cmd *cobra.Command, args []string) error {
	out, err := readOutputOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	output, err := flags.GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	outDir, err := flags.GetString("out-dir")
	if err != nil {
		return fmt.Errorf("failed to get out-dir flag: %w", err)
	}
	emitFlag, err := flags.GetString("emit")
	if err != nil {
		return fmt.Errorf("failed to get emit flag: %w", err)
	}
	format, err := driver.ParseOutputFormat(emitFlag)
	if err != nil {
		return err
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	if output != "" && len(args) > 1 {
		return fmt.Errorf("-o can only be used with a single input (got %d)", len(args))
	}
	toStdout := output == "-"
	opts := driver.Options{
		Config:         cfg,
		Format:         format,
		MaxDiagnostics: out.maxDiagnostics,
	}
	switch {
	case toStdout:
	case output != "":
		opts.Output = output
	default:
		opts.OutDir = outDir
	}
	if out.timings {
		opts.Timer = observ.NewTimer()
	}
	if !noCache {
		cache, err := driver.OpenDiskCache("kernlower")
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		} else {
			opts.Cache = cache
		}
	}

	var results []*driver.FileResult
	if !toStdout && shouldUseTUI(mode) {
		results, err = lowerWithUI(cmd.Context(), "lowering", args, opts, jobs)
	} else {
		var session *driver.Session
		if session, err = driver.NewSession(opts); err != nil {
			return err
		}
		results, err = session.LowerFiles(cmd.Context(), args, jobs)
	}
	if err != nil && !driver.IsCancelled(err) {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, res := range results {
		if res == nil {
			continue
		}
		printDiagnostics(stderr, res.Bag, out)
		if res.Err == nil {
			if toStdout {
				if _, werr := io.WriteString(cmd.OutOrStdout(), res.Text); werr != nil {
					return werr
				}
			} else if !out.quiet {
				reportLowered(cmd.OutOrStdout(), res)
			}
		} else if res.Bag == nil || !res.Bag.HasErrors() {
			fmt.Fprintf(stderr, "error: %s: %v\n", res.Input, res.Err)
		}
		if out.timings {
			printStageTimings(stderr, res)
		}
	}
	if out.timings {
		printTimerSummary(stderr, opts.Timer)
	}
	if err != nil {
		return err
	}
	if failed := driver.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
	}
	return nil
}

func reportLowered(w io.Writer, res *driver.FileResult) {
	kernels := res.Kernels()
	line := fmt.Sprintf("%s -> %s (%d kernel", res.Input, res.Dest, len(kernels))
	if len(kernels) != 1 {
		line += "s"
	}
	line += ")"
	if res.Cached {
		line += " [cached]"
	}
	if len(kernels) > 0 && len(kernels) <= 4 {
		line += ": " + strings.Join(kernels, ", ")
	}
	fmt.Fprintln(w, line)
}
