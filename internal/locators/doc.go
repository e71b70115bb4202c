// Package locators builds the candidate registry from configuration. Each
// subpackage adapts one metadata source to candidate.Locator.
package locators
