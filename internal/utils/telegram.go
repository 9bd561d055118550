package utils

import (
	"errors"
	"html"
	"strings"
	"unicode/utf8"

	"reposcanner/internal/models"
)

// MessageLimit is the longest text Telegram accepts in one message.
const MessageLimit = 4096

// SplitMessage cuts text into chunks of at most limit characters, breaking
// after a newline when possible.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		for n > limit {
			flush()
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		if curLen+n > limit {
			flush()
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}

func Pre(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}

func Code(text string) string {
	return "<code>" + html.EscapeString(text) + "</code>"
}

func Bold(text string) string {
	return "<b>" + html.EscapeString(text) + "</b>"
}

// ErrorText renders an error as an HTML chat reply.
func ErrorText(err error) string {
	msg := html.EscapeString(err.Error())
	switch {
	case errors.Is(err, models.ErrMissingCredential):
		return "🔑 <b>Missing credential.</b>\n" + msg + "\nSet your tokens with /token and /rigobot."
	case errors.Is(err, models.ErrInvalidURL):
		return "⚠️ <b>Invalid URL.</b>\n" + msg
	case errors.Is(err, models.ErrNotFound):
		return "❌ <b>Not found.</b>\n" + msg
	case errors.Is(err, models.ErrParse):
		return "⚠️ <b>Could not parse the file.</b>\n" + msg
	case errors.Is(err, models.ErrNetwork):
		return "🌐 <b>Request failed.</b>\n" + msg
	}
	return "⚠️ " + msg
}
