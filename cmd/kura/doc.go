// Package main hosts the kura CLI entrypoint and command graph.
//
// Each batch command loads configuration, takes the run lock, opens the store
// and builds a pipeline.Driver before running one phase. Interactive
// confirmation uses the terminal when stdin is a TTY and falls back to the
// configured non-interactive policy otherwise.
package main
