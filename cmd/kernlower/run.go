package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kernlower/internal/backend/llvm"
	"kernlower/internal/diag"
	"kernlower/internal/driver"
	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/observ"
)

var runCmd = &cobra.Command{
	Use:   "run --passes=<a,b,...> [flags] <file.ll>",
	Short: "Apply selected passes to one .ll file",
	Long: `Run a comma separated list of passes in order (see "kernlower passes") and
print the resulting module. Unlike "lower", nothing is cached.`,
	Args: cobra.ExactArgs(1),
	RunE: runPasses,
}

func init() {
	runCmd.Flags().String("passes", "lower-arrays", "comma separated pass pipeline")
	runCmd.Flags().StringP("output", "o", "-", "output file (\"-\" for stdout)")
	runCmd.Flags().String("emit", "llvm", "output format (llvm|kir)")
	addLoweringFlags(runCmd)
}

func runPasses(cmd *cobra.Command, args []string) error {
	out, err := readOutputOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	spec, err := cmd.Flags().GetString("passes")
	if err != nil {
		return fmt.Errorf("failed to get passes flag: %w", err)
	}
	pipeline, err := lower.ParsePipeline(spec)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	emitFlag, err := cmd.Flags().GetString("emit")
	if err != nil {
		return fmt.Errorf("failed to get emit flag: %w", err)
	}
	format, err := driver.ParseOutputFormat(emitFlag)
	if err != nil {
		return err
	}

	input := args[0]
	bag := diag.NewBag(out.maxDiagnostics)
	r := diag.BagReporter{Bag: bag}
	defer printDiagnostics(cmd.ErrOrStderr(), bag, out)

	m, err := llvm.ReadFile(input, r)
	if err != nil {
		return err
	}
	opts, err := cfg.LowerOptions(input, r)
	if err != nil {
		return err
	}
	if out.timings {
		opts.Timer = observ.NewTimer()
		defer printTimerSummary(cmd.ErrOrStderr(), opts.Timer)
	}
	if err := lower.RunPasses(cmd.Context(), m, pipeline, opts); err != nil {
		return err
	}

	var text string
	if format == driver.FormatKIR {
		var buf bytes.Buffer
		if err := kir.Dump(&buf, m); err != nil {
			return err
		}
		text = buf.String()
	} else if text, _, err = llvm.Emit(m, cfg.EmitOptions(r)); err != nil {
		return err
	}

	if output == "" || output == "-" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	return os.WriteFile(output, []byte(text), 0o644)
}
