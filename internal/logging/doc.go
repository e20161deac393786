// Package logging provides a simple leveled logging interface for the
// media library service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true.
//
// Background jobs log through a [Logger] created with [New], which tags each
// line with the job's component name:
//
//	log := logging.New("scan")
//	log.Info("Scanning... %d new", added)
package logging
