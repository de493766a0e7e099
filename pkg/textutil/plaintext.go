// Package textutil cleans user supplied free text.
package textutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	spacesPattern = regexp.MustCompile(`[ \t\f\v]{2,}`)
	breakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6])>`)
)

// PlainText turns a snippet that may contain HTML into plain text. Block-level
// closing tags and <br> become line breaks, other tags are dropped, entities
// are decoded and blank lines removed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}

	s = breakPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spacesPattern.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
