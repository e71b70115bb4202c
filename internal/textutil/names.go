package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	// bracketPattern matches ASCII and full-width bracketed tags: [Maker], (RJ123456), 【体験版】.
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}|【[^】]*】|（[^）]*）|「[^」]*」|『[^』]*』`)
	versionPattern = regexp.MustCompile(`(?i)(?:^|\s)(?:ver(?:sion)?\.?\s*|v)\d+(?:[._]\d+)*[a-z]?\b`)
	codePattern    = regexp.MustCompile(`(?i)\b(?:RJ|RE|VJ|BJ)\d{6,8}\b`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// StripTags removes bracketed tags, version tokens and embedded catalog codes
// from a directory name and collapses the remaining whitespace. Underscores
// are treated as spaces.
//
//	StripTags("Amazing Game [Maker] (RJ123456)") == "Amazing Game"
func StripTags(name string) string {
	out := strings.ReplaceAll(name, "_", " ")
	out = bracketPattern.ReplaceAllString(out, " ")
	out = codePattern.ReplaceAllString(out, " ")
	out = versionPattern.ReplaceAllString(out, " ")
	out = spacePattern.ReplaceAllString(out, " ")
	return strings.Trim(out, " -~.")
}

// Fold maps a name onto its comparison form: full-width and half-width
// variants collapse (ＡＢＣ == ABC, ｶﾀｶﾅ == カタカナ), compatibility characters
// are NFKC-normalized, and letters are lower-cased.
func Fold(name string) string {
	out := width.Fold.String(name)
	out = norm.NFKC.String(out)
	out = strings.ToLower(out)
	return strings.TrimSpace(spacePattern.ReplaceAllString(out, " "))
}

// RemoveSpaces drops every whitespace rune.
func RemoveSpaces(name string) string {
	return strings.Join(strings.Fields(name), "")
}
