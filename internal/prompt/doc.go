// Package prompt provides the interactive terminal confirmer used by the
// decision gate when a match is ambiguous.
package prompt
