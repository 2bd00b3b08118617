// Package logger provides the structured logging interface used across the
// crawlers. It wraps zerolog with a small interface so components can be
// handed a capturing TestLogger or a no-op logger in tests.
//
//	if err := logger.Initialize(&cfg.Logging, runID); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("platform", "tiktok")
//	log.InfoWithFields("Query window", map[string]interface{}{
//	    "start": "20250213",
//	    "end":   "20250314",
//	})
//
// When logging.file is set, every line is written both to the console and
// to the file as JSON. NoConsole drops the console writer while the
// dashboard owns the terminal.
package logger
