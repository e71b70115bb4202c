// Package logging builds the slog loggers kura commands share.
//
// Console lines go to stderr so command output on stdout stays parseable. A
// JSON copy lands in <log_dir>/kura.log, which `kura logs` reads back. Batch
// code tags lines through WithContext, which copies the directory, code,
// phase and run id stored on the context by package services.
package logging
