package forum

import (
	"html"
	"regexp"
	"strings"
)

const excerptLength = 160

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// makeExcerpt делает короткий текстовый анонс из HTML-содержимого темы.
func makeExcerpt(content string) string {
	text := html.UnescapeString(tagPattern.ReplaceAllString(content, " "))
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}
