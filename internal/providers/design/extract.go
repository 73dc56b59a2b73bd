package design

import (
	"regexp"
	"strings"
)

var (
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)
	bareURLPattern       = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	imageExtPattern      = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp)(\?|$)`)
)

// firstImageURL extracts the generated image reference from a chat-style
// reply. Preference order: first markdown image, then the first bare URL
// with an image extension, then any bare URL at all.
func firstImageURL(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if m := markdownImagePattern.FindStringSubmatch(content); len(m) == 2 {
		return m[1]
	}
	urls := bareURLPattern.FindAllString(content, -1)
	for _, u := range urls {
		if imageExtPattern.MatchString(u) {
			return strings.TrimRight(u, ".,;")
		}
	}
	if len(urls) > 0 {
		return strings.TrimRight(urls[0], ".,;")
	}
	return ""
}
