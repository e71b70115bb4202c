// Package preflight provides readiness checks for the filesystem paths and
// metadata sources kura depends on.
//
// The CLI "kura check" command runs every check; "kura status" shows only the
// filesystem ones so it stays usable offline. Catalog checks run only when a
// LaunchBox directory is configured.
package preflight
