// Package filer relocates identified directories into the library under
// <library>/<code>/<original name>. Filing is a single rename and is safe to
// repeat: a directory already at its destination is reported, not moved.
package filer
