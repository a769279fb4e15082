// Package ui renders the one-shot output of the netsetup commands.
//
// Unlike the interactive wizard, these components print and return: a
// header naming the command, a step list while it runs and a result box
// when it ends.
//
//   - Header: command banner with its parameters
//   - Progress: step list with status markers
//   - Result: success, failure or warning box with ordered details
//   - Runner: header → steps → result around an Operation
//   - Confirm: typed confirmation before a destructive action
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Join network",
//	    Command:   "netsetup-cfg connect",
//	    Params:    []ui.Detail{{Key: "Portal", Value: addr}},
//	    StepNames: []string{"Send credentials", "Wait for link"},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Detail, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "")
//	    return nil, nil
//	})
//
// Logging is controlled by NETSETUP_LOG_LEVEL. When it is unset zap is
// silent, so only this package's output reaches the terminal.
package ui
