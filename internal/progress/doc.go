// Package progress reports batch progress. Batch operations receive a
// Reporter explicitly; there is no process-wide bar.
package progress
