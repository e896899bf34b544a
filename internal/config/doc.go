// Package config defines the format-agnostic configuration model for the
// realignment engine, along with the Loader interface for reading it from a
// concrete format.
//
// The config.Model is the single source of truth for every tunable the
// engine honors: the aggregation window, solver spacing and displacement
// limits, locality-constraint strength, and the file-protocol state
// directory. The HCL implementation of Loader lives in internal/hcl; CLI
// flags overlay the loaded model in internal/cli.
package config
