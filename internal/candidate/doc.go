// Package candidate defines the records exchanged with metadata sources and
// the Locator capability set each source implements.
package candidate
