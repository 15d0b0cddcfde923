// Package logging provides a simple leveled logging interface for the
// media deriver, backed by a zap logger.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (DEBUG=true forces debug). LOG_FORMAT=json switches the console encoder
// for a JSON encoder, which is what log shippers in containers expect.
//
// Per-asset code paths use With to obtain a scoped logger carrying
// structured fields:
//
//	log := logging.With("asset", asset.Path, "kind", "video")
//	log.Infof("probe complete in %v", elapsed)
package logging
