// internal/delivery/caption.go
package delivery

import (
	"strings"
)

// ParseCaption extracts a candidate title and link from a free-form upload
// caption. The title is the first non-empty line; the link is the first
// whitespace-separated token that starts with http:// or https://, searched
// across the whole caption. Either result may be empty.
func ParseCaption(caption string) (title, link string) {
	for _, line := range strings.Split(caption, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			title = line
			break
		}
	}
	for _, tok := range strings.Fields(caption) {
		if strings.HasPrefix(tok, "http://") || strings.HasPrefix(tok, "https://") {
			link = tok
			break
		}
	}
	return title, link
}
