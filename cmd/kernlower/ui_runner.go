package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"kernlower/internal/driver"
	"kernlower/internal/ui"
)

type batchOutcome struct {
	results []*driver.FileResult
	err     error
}

// lowerWithUI runs the batch while a progress view consumes its events.
// opts.Progress is replaced by the channel feeding the view.
func lowerWithUI(ctx context.Context, title string, files []string, opts driver.Options, jobs int) ([]*driver.FileResult, error) {
	events := make(chan driver.Event, 256)
	opts.Progress = driver.ChannelSink{Ch: events}
	session, err := driver.NewSession(opts)
	if err != nil {
		return nil, err
	}

	outcomeCh := make(chan batchOutcome, 1)
	go func() {
		res, err := session.LowerFiles(ctx, files, jobs)
		outcomeCh <- batchOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// keep draining so workers never block on a closed view
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
