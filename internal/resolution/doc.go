// Package resolution persists the per-directory identification checkpoint: the
// candidates each locator returned, an optional noMatch exclusion, and the
// accepted code once one is chosen.
package resolution
