package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose    = "verbose"
	FlagConfig     = "config"
	FlagLogFile    = "log-file"
	FlagSocketPath = "socket-path"

	// Watch command flags
	FlagTUI                    = "tui"
	FlagDaemon                 = "daemon"
	FlagDetail                 = "detail"
	FlagInterval               = "interval"
	FlagImmediate              = "immediate"
	FlagNoWatch                = "no-watch"
	FlagCCLSCommand            = "ccls"
	FlagCompilationDatabaseDir = "compilation-database-dir"

	// Logs command flags
	FlagFollow = "follow"
	FlagCount  = "count"

	// Output format flags
	FlagJSON = "json"

	// Refresh command flags
	FlagWait        = "wait"
	FlagWaitTimeout = "wait-timeout"
)
