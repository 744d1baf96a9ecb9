package ocr

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ArtifactPrefix starts every OCR artifact file name.
const ArtifactPrefix = "GCV-OCR"

var (
	nonSlugChars  = regexp.MustCompile(`[^\w\s-]`)
	slugSeparator = regexp.MustCompile(`[-\s]+`)
)

// Slugify reduces s to lowercase ASCII letters, digits, underscores and
// single hyphens.
func Slugify(s string) string {
	decomposed := norm.NFKD.String(s)
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, decomposed)
	cleaned := nonSlugChars.ReplaceAllString(strings.ToLower(ascii), "")
	cleaned = strings.TrimSpace(cleaned)
	return strings.Trim(slugSeparator.ReplaceAllString(cleaned, "-"), "-_")
}

// PageDir is the per-page working directory inside a content path.
func PageDir(contentPath, refNo string) string {
	return filepath.Join(contentPath, "pages", refNo)
}

// ResultBase is the shared path of a page's artifacts, without extension.
func ResultBase(contentPath, refNo, jobName string) string {
	name := ArtifactPrefix + "_" + Slugify(jobName) + "_" + refNo
	return filepath.Join(PageDir(contentPath, refNo), name)
}
