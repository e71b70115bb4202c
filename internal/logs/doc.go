// Package logs reads the JSON log file written under paths.log_dir.
//
// Last returns the newest matching entries with bounded memory; Follow polls
// for appended lines until its context ends. Both parse each line into an
// Entry and apply a Filter, so `kura logs --run <id>` shows one run.
package logs
