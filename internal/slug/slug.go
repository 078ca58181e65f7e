// Package slug генерирует URL-идентификаторы для тем и категорий форума.
package slug

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// nonAlphanumeric - всё, кроме латиницы, цифр, пробелов и дефисов.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace      = regexp.MustCompile(`\s+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// maxLength - предел длины slug без учета суффикса.
const maxLength = 80

// Generate строит slug из произвольной строки: "Hello, World! 2026" -> "hello-world-2026".
// Может вернуть пустую строку, если в исходной строке нет подходящих символов.
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > maxLength {
		result = strings.Trim(result[:maxLength], "-")
	}
	return result
}

// FromTitle возвращает slug для заголовка. Заголовки без латиницы и цифр
// (например, "欢迎来到论坛") получают slug вида "post-1a2b3c4d".
func FromTitle(title, prefix string) string {
	if s := Generate(title); s != "" {
		return s
	}
	return prefix + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Valid проверяет, что строка уже является корректным slug.
func Valid(s string) bool {
	return s != "" && Generate(s) == s
}
