// Package logger provides the structured logging interface used across the
// crawler.
//
// It wraps zerolog with a small interface so components can be handed a
// TestLogger in tests. Every line carries the app name and a per-run id;
// when a log directory is configured each run also writes a
// run_<timestamp>.log file next to the console output.
//
//	cfg := &config.LoggingConfig{Level: "info", Directory: "logs"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//	logger.WithField("collection", "My_Songs").Info("Crawl started")
//
// Credentials must never reach a logger unredacted; callers pass response
// bodies and error text through auth.Redact first.
package logger
