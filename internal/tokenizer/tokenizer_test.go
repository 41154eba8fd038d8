package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestWords(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"rgb 00ff00", []string{"rgb", "00ff00"}},
		{"  rgb   00ff00  ", []string{"rgb", "00ff00"}},
		{"@3 notifyon 3", []string{"@3", "notifyon", "3"}},
	}
	for _, c := range cases {
		got := Words(c.line)
		if c.want == nil {
			assert.Empty(t, got, "line %q", c.line)
		} else {
			assert.Equal(t, c.want, got, "line %q", c.line)
		}
	}
}

// Never any consecutive spaces survive tokenization, regardless of how
// many runs of spaces separate or surround the words.
func TestWordsNeverEmpty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(rt, "n")
		var line string
		for i := 0; i < n; i++ {
			pad := rapid.IntRange(0, 3).Draw(rt, "pad")
			for j := 0; j < pad; j++ {
				line += " "
			}
			line += "word"
		}
		for _, w := range Words(line) {
			assert.NotEmpty(t, w)
		}
	})
}
