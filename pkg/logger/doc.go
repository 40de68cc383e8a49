// Package logger provides the structured logging interface used across
// curiousqa, backed by zerolog.
//
// Initialize the global logger once from configuration:
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("username", "alice").Info("Export started")
//
// Components take a Logger and derive a child carrying their name:
//
//	log = log.WithField("component", "paginator")
//	log.DebugWithFields("Page fetched", map[string]interface{}{"cursor": c})
//
// Console format writes colored lines to stderr, json writes one object per
// line, and logging.file additionally appends JSON to a file.
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to drop them.
package logger
