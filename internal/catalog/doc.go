// Package catalog reads and writes the LaunchBox platform XML document.
//
// A Game is a value: its child elements are kept in document order, and
// elements the store does not manage are carried through untouched.
// Merge computes a new entry from an existing one and a store-derived one
// without mutating either.
package catalog
