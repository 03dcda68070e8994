// Package logger configures structured logging for the skls packages.
//
// All components log through log/slog. Setup installs a process-wide root
// logger once (console output, optionally mirrored to a rotating log file and
// to parquet error telemetry); Get hands out component loggers and honours
// custom loggers injected by the embedding application.
//
// # Custom loggers
//
// Applications that already own a logger can inject it globally or under a
// name:
//
//	logger.SetCustom(myLogger, "")          // every component
//	logger.SetCustom(graphLogger, "graph")  // only when asked for by name
//
//	log := logger.Get("vectorstore")                               // global custom or root
//	log = logger.Get("graph", logger.WithCustomName("graph"))      // named custom first
//
// # Timing
//
//	defer logger.MeasureTime(log, "GenerateOneShot")()
package logger
