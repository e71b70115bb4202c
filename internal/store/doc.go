// Package store persists canonical game records in SQLite.
//
// One row exists per filed library directory, keyed by its canonical code.
// Rows are never removed; a vanished directory is flagged deleted instead.
// The external id joining a row to the catalog document is write-once.
//
// Every mutating call holds a per-record lock for its duration, so a
// read-modify-write on one record never interleaves with another write to the
// same record while writes to different records proceed concurrently.
// Failures are tagged services.ErrStore: a store that cannot be written is
// treated as unusable by callers.
//
// Schema changes append to migrations in schema.go; Open upgrades older
// databases in place and refuses ones written by a newer build.
package store
