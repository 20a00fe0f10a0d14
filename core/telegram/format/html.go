package format

import (
	"fmt"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes user-controlled text for Telegram HTML parse mode.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// Link renders an HTML anchor with an escaped label.
func Link(url, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, url, EscapeHTML(label))
}

// UserLink renders a tg://user deep link for the given user id.
func UserLink(id int64, label string) string {
	return Link(fmt.Sprintf("tg://user?id=%d", id), label)
}

// Code wraps text into an inline code span.
func Code(text string) string {
	return "<code>" + EscapeHTML(text) + "</code>"
}

// Bold wraps text into a bold span.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}
