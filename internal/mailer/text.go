package mailer

import "regexp"

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes every <...> sequence from html. Entities are left as-is;
// this is a plain-text fallback, not an HTML-to-text converter.
func StripTags(html string) string {
	return tagPattern.ReplaceAllString(html, "")
}
