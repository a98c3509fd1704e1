package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kernlower/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "kernlower",
	Short: "Lower array-handle functions to GPU kernels",
	Long: `kernlower rewrites functions that take managed array handles into GPU
kernels whose parameters are raw address-space tagged pointers.`,
	SilenceUsage:       true,
	PersistentPreRunE:  startTracing,
	PersistentPostRunE: stopTracing,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Line(false) + "\n")

	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(passesCmd)
	rootCmd.AddCommand(versionCmd)

	registerGlobalFlags(rootCmd)
}

// main executes the root command. Any error exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		dumpTraceRings(os.Stderr)
		traceCleanup()
		os.Exit(1)
	}
}

func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	flags.String("config", "", "path to kernlower.toml (default: search upward from the working directory)")

	flags.String("trace", "", "write trace events to file (\"-\" for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "ring buffer size for ring trace mode")
	flags.Duration("trace-heartbeat", 0, "emit heartbeat trace events at this interval (0 disables)")
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
