// Package textutil holds the name helpers shared by gathering and scoring:
// directory-name tag stripping and width/compatibility folding for
// comparison.
package textutil
