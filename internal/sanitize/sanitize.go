// Package sanitize makes untrusted feed- and user-supplied text safe to
// store and later render inside HTML.
package sanitize

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Clean strips markup from untrusted text and escapes what remains.
// Script and style elements are removed together with their contents,
// every other tag is dropped, NUL bytes are removed, the HTML-significant
// characters (& < > " ') are entity-encoded and the result is trimmed.
// Clean is pure and idempotent: the text is fully decoded by the parser
// before being re-escaped, so already-clean input passes through intact.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		// Unparseable input: escape the raw text as-is.
		return strings.TrimSpace(html.EscapeString(s))
	}
	doc.Find("script, style, noscript").Remove()

	return strings.TrimSpace(html.EscapeString(doc.Text()))
}

// Snippet cleans s and truncates the result to at most max runes. A cut
// that lands inside an encoded entity would leave a bare ampersand, so a
// trailing partial entity is dropped from the truncated text.
func Snippet(s string, max int) string {
	cleaned := Clean(s)
	runes := []rune(cleaned)
	if len(runes) <= max {
		return cleaned
	}
	return trimPartialEntity(string(runes[:max]))
}

// trimPartialEntity removes a trailing entity bisected by truncation.
// Clean encodes every raw ampersand, so a final '&' with no ';' after it
// can only be a severed entity.
func trimPartialEntity(s string) string {
	if i := strings.LastIndexByte(s, '&'); i != -1 && !strings.Contains(s[i:], ";") {
		return s[:i]
	}
	return s
}
