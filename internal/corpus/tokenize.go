package corpus

import "strings"

// Tokenize splits a log message into lower-cased alphanumeric tokens. The
// same tokenizer feeds the lexical scorer and the importance classifier
// vocabulary lookup, so both see identical token streams for one entry.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)

	tokens := make([]string, 0, 16)
	start := -1
	for i, r := range lower {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, lower[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, lower[start:])
	}
	return tokens
}
