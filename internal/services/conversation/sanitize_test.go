package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "20 minute HIIT", "20 minute HIIT"},
		{"trims surrounding space", "   core  ", "core"},
		{"collapses inner runs of space", "leg\t\t day   please", "leg day please"},
		{"strips tags keeps text", "<p>Upper <b>body</b></p>", "Upper body"},
		{"drops script bodies", "hi<script>alert(1)</script>", "hi"},
		{"unescapes entities", "squats &amp; lunges", "squats & lunges"},
		{"keeps angle brackets as text", "5 &lt; 10", "5 < 10"},
		{"keeps a literal comparison", "5 < 10 reps", "5 < 10 reps"},
		{"drops encoded script", "&lt;script&gt;alert(1)&lt;/script&gt; leg day", "leg day"},
		{"drops encoded tags", "&lt;b&gt;core&lt;/b&gt;", "core"},
		{"drops double encoded tags", "&amp;lt;img src=x onerror=alert(1)&amp;gt;plank", "plank"},
		{"normalizes CRLF", "line one\r\nline two", "line one\nline two"},
		{"collapses blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"drops control characters", "ab\x07c\x1bd", "abcd"},
		{"drops byte order mark", "\ufeffstretch", "stretch"},
		{"keeps unicode", "étirements 💪", "étirements 💪"},
		{"empty", "", ""},
	}

	s := NewSanitizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Sanitize(tt.input))
		})
	}
}

func TestSanitizeOutputIsStable(t *testing.T) {
	s := NewSanitizer()
	inputs := []string{
		"&lt;script&gt;alert(1)&lt;/script&gt; leg day",
		"&amp;amp;amp;amp;amp;amp;amp;amp;amp;amp;lt;b&amp;gt;deep",
		"<p>5 &lt; 10</p> don't stop",
	}
	for _, input := range inputs {
		once := s.Sanitize(input)
		assert.Equal(t, once, s.Sanitize(once), input)
		assert.NotRegexp(t, `<[a-zA-Z/!]`, once, input)
	}
}
