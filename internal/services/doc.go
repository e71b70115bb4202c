// Package services defines shared utilities consumed by the batch phases and
// the metadata source adapters.
//
// Key responsibilities:
//   - Context helpers that stamp directory names, record ids, phases, and run
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let batch loops tell
//     per-element failures (log and continue) from store failures (abort).
//
// Use these helpers when wiring new phase logic so error handling and
// observability stay uniform across the tool.
package services
