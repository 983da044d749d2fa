package exporter

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FilePrefix starts every exported file name.
const FilePrefix = "screencapture"

var (
	schemePattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)
	nonAlnumPattern = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// DeriveName turns a page URL into a file name fragment.
//
// The query string and fragment are dropped, then the scheme, and every run of
// non-alphanumeric characters collapses to one hyphen. A non-empty result is returned
// with a leading hyphen so it can be appended to FilePrefix directly.
//
//	DeriveName("https://example.com/a?x=1#y") == "-example-com-a"
//	DeriveName("") == ""
func DeriveName(sourceURL string) string {
	name, _, _ := strings.Cut(sourceURL, "?")
	name, _, _ = strings.Cut(name, "#")
	if name == "" {
		return ""
	}

	name = schemePattern.ReplaceAllString(name, "")
	name = nonAlnumPattern.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-_")
	if name == "" {
		return ""
	}
	return "-" + name
}

// FileName builds the full output name for a capture of sourceURL taken at now.
func FileName(sourceURL string, now time.Time, format Format) string {
	return fmt.Sprintf("%s%s-%d.%s", FilePrefix, DeriveName(sourceURL), now.UnixMilli(), format.Extension())
}
