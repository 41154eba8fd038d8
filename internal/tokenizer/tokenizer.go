// Package tokenizer splits one protocol line into whitespace-separated
// words (spec §4.2). There is no quoting and no escaping; a single
// ASCII space is the sole delimiter, and the tokenizer does not retain
// the input buffer across lines.
package tokenizer

import "strings"

// Words splits line into its constituent words, in order. An empty
// line yields no words.
func Words(line string) []string {
	fields := strings.Split(line, " ")
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		words = append(words, f)
	}
	return words
}
