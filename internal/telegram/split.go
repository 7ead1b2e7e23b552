package telegram

import "strings"

// MaxMessageLength is the Bot API limit for one text message, in characters.
const MaxMessageLength = 4096

// SplitText breaks text into chunks of at most limit runes, preferring line
// boundaries. Lines longer than limit are cut.
func SplitText(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		if len(current)+len(runes) > limit {
			flush()
		}
		for len(runes) > limit {
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		current = append(current, runes...)
	}
	flush()

	trimmed := chunks[:0]
	for _, chunk := range chunks {
		if chunk = strings.TrimSuffix(chunk, "\n"); chunk != "" {
			trimmed = append(trimmed, chunk)
		}
	}
	return trimmed
}
