package ui

import (
	"context"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a multi-step command
type RunnerConfig struct {
	Title     string   // Command title (e.g., "Join network")
	Command   string   // Full command (e.g., "netsetup-cfg connect")
	Params    []Detail // Parameters to display in the header
	StepNames []string // One name per step

	// Troubleshoot returns tips for a failed run. Nil prints none.
	Troubleshoot func(err error) []string

	Output io.Writer // Default: os.Stdout
}

// Operation is the work a Runner executes. It reports progress through
// onStep and returns details for the success box.
type Operation func(ctx context.Context, onStep StepCallback) ([]Detail, error)

// Runner prints header → step lines → result around an operation
type Runner struct {
	config   RunnerConfig
	printer  *Printer
	progress *Progress
}

// NewRunner creates a runner for a command
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Runner{
		config:   config,
		printer:  NewPrinter(config.Output),
		progress: NewProgress(config.StepNames...),
	}
}

// Progress returns the runner's step tracker
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run executes op and prints the outcome. op's error is returned unchanged.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	start := time.Now()

	r.printer.PrintHeader(r.config.Title, r.config.Command, r.config.Params...)
	r.printer.Newline()

	details, err := op(ctx, r.onStep)
	duration := time.Since(start).Round(time.Millisecond)

	r.printer.Newline()
	if err != nil {
		var tips []string
		if r.config.Troubleshoot != nil {
			tips = r.config.Troubleshoot(err)
		}
		r.printer.PrintError(r.config.Title+" failed", err, tips)
		return err
	}

	details = append(details, Detail{Key: "Duration", Value: duration.String()})
	r.printer.PrintSuccess(r.config.Title+" complete", details...)
	return nil
}

// onStep records a step update and prints finished steps
func (r *Runner) onStep(number int, status StepStatus, message string) {
	r.progress.UpdateStep(number, status, message)
	if number < 1 || number > r.progress.Total() {
		return
	}

	line := r.progress.RenderStep(r.progress.Steps[number-1])
	switch status {
	case StepComplete, StepFailed, StepSkipped:
		r.printer.Println(line)
	case StepRunning:
		// Overwritten when the step finishes
		r.printer.Print(line + "\r")
	}
}
