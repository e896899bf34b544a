package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tdw419/geometry-os-sub002/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("tectonic", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Tectonic Realignment Engine - a constraint-aware canvas layout optimizer.

Usage:
  tectonic [options]

The engine polls a shared state directory for externally authored layout
proposals, realigns tile positions, and writes back a layout delta and a
status summary.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an .hcl config file or a directory of them.")
	stateDirFlag := flagSet.String("state-dir", "", "Shared protocol state directory (overrides config).")
	pollMSFlag := flagSet.Int("poll-ms", 0, "Proposal poll interval in milliseconds (overrides config).")
	historyFlag := flagSet.String("history", "", "SQLite realignment ledger path (overrides config).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	onceFlag := flagSet.Bool("once", false, "Perform a single poll and exit instead of looping.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *pollMSFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid poll-ms: must not be negative"}
	}
	slog.Debug("CLI parameter validation complete.")

	config := &app.Config{
		ConfigPath:      *configFlag,
		StateDir:        *stateDirFlag,
		PollInterval:    time.Duration(*pollMSFlag) * time.Millisecond,
		HistoryPath:     *historyFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		Once:            *onceFlag,
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
