package main

import (
	"fmt"
	"io"
	"time"

	"kernlower/internal/driver"
	"kernlower/internal/observ"
)

var reportedStages = []driver.Stage{driver.StageCache, driver.StageParse, driver.StageLower, driver.StageEmit, driver.StageWrite}

func printStageTimings(out io.Writer, res *driver.FileResult) {
	if out == nil || res == nil {
		return
	}
	fmt.Fprintf(out, "%s:", res.Input)
	for _, stage := range reportedStages {
		if res.Timings.Has(stage) {
			fmt.Fprintf(out, " %s %.1f ms", stage, toMillis(res.Timings.Duration(stage)))
		}
	}
	if res.Cached {
		fmt.Fprint(out, " (cached)")
	}
	fmt.Fprintln(out)
}

func printTimerSummary(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil || len(timer.Report().Phases) == 0 {
		return
	}
	fmt.Fprint(out, timer.Summary())
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
