// Package logging builds the shell's zap loggers.
//
// Interactive runs log colored console lines to stderr; everything else logs
// JSON. Either way stdout is left to command output, and Config.File can tee
// a JSON copy into the data directory for later inspection.
//
// Components receive a *Logger through their constructors and derive a
// named child with Named. Constructors call OrNop so tests can omit logging.
//
//	logger := logging.NewDefault()
//	catalogLog := logger.Named("catalog")
//	catalogLog.Warn("Skipping module", zap.String("module", name), zap.Error(err))
package logging
