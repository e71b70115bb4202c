// Package decision implements the three-state gate that turns a scored
// candidate list into Accepted, Rejected, or NoCandidates.
//
// Entries below the ask threshold are dropped; a best score at or above the
// accept threshold is accepted outright. Anything in between is escalated to
// an injected Confirmer: a yes/no question for a single survivor, otherwise a
// numbered list of the top suggestions with a "none" option. A rejection is
// terminal; callers record it so later runs do not ask again.
package decision
