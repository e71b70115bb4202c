// Package pipeline drives the batch operations: gathering candidates for
// unsorted directories, organizing them into the library, scanning the
// library into the store, downloading metadata, and reconciling with the
// catalog document.
//
// Scoring, decisions and filing run one directory at a time. Locator queries
// and metadata fetches use a bounded worker pool sized by
// locators.concurrency. Sidecars and store records are the checkpoint: an
// interrupted run is resumed by running it again.
package pipeline
