package report_test

import (
	"context"
	"errors"
	"fmt"
	"os"

	report "github.com/einride/tableau-slack-report"
)

func ExampleReporter() {
	cfg := report.Config{
		// No specified timeout uses report.DefaultTimeout
		// No specified clock uses the system clock
		// No specified logger uses a nop-logger
	}
	// Register a listener that prints all executions
	cfg.ExecutionListeners = append(cfg.ExecutionListeners, func(execution report.Execution) {
		fmt.Printf("%v: %v\n", execution.Script, execution.Status)
	})
	// Script that fails to deliver the report.
	cfg.Script = report.NewScript("example", func(ctx context.Context) error {
		return errors.New("slack unavailable")
	})
	r := report.New(&cfg)
	// Trigger the script (blocking call).
	execution := r.Trigger(context.Background())
	fmt.Println(execution.Succeeded())
	// Output:
	// example: error
	// false
}

func ExampleLoggerOpts() {
	// Create a console logger that only logs on warning level to os.Stdout.
	logger := report.DefaultLoggerOpts().
		WithOutput(os.Stdout).
		WithJSON(false).
		WithLogLevel(report.LogLevelWarning).
		New()
	defer func() { _ = logger.Sync() }()

	logger.Info("this is not logged")
	fmt.Println(logger.Core().Enabled(report.LogLevelWarning.ZapLevel()))
	// Output:
	// true
}
