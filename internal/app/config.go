package app

import "time"

// Config holds the CLI-supplied settings an App instance runs with. File
// configuration is loaded separately through config.Loader; non-zero values
// here override it.
type Config struct {
	ConfigPath string // .hcl file or directory

	StateDir     string        // overrides protocol.state_dir
	PollInterval time.Duration // overrides protocol.poll_interval_ms
	HistoryPath  string        // overrides history.path

	HealthcheckPort int
	LogFormat       string
	LogLevel        string
	// Once makes Run perform a single poll and return, for cron-style use
	// and tests.
	Once bool
}
