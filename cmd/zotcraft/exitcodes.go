package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing settings, invalid paths)
	ExitDataError   = 3 // Data error (source unreadable, malformed input)
)
