// Package scoring turns a locator's candidate records into scored codes.
//
// Every signal adds a fixed weight from config.Scoring: existence, sole
// result, extracted-code presence and corroboration, exact and substring name
// matches, and the same comparisons with whitespace removed. Names are folded
// with textutil.Fold before comparison. Locators may contribute extra signals
// (for example a maker match) through Signal values.
package scoring
