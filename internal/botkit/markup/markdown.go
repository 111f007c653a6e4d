package markup

import "strings"

// Символы, которые в MarkdownV2 нужно экранировать обратным слэшем
const specialChars = "\\_*[]()~`>#+-=|{}.!"

var replacer = newReplacer(specialChars)

func newReplacer(chars string) *strings.Replacer {
	pairs := make([]string, 0, len(chars)*2)
	for _, c := range chars {
		pairs = append(pairs, string(c), "\\"+string(c))
	}
	return strings.NewReplacer(pairs...)
}

// EscapeForMarkdown экранирует спец символы markdown специально для телеграма
func EscapeForMarkdown(src string) string {
	return replacer.Replace(src)
}

// Bold экранирует текст и выделяет его жирным
func Bold(src string) string {
	return "*" + EscapeForMarkdown(src) + "*"
}

// Code выводит текст моноширинным шрифтом. Внутри `...` экранируются только ` и \
func Code(src string) string {
	return "`" + strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(src) + "`"
}
